package server

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sundris/auctionhouse/internal/model"
)

// Engine defines the storage engine operations the session layer drives.
type Engine interface {
	Login(ctx context.Context, username string) (*model.User, error)
	ViewItems(ctx context.Context, userID int64) ([]model.OwnedItem, error)
	Deposit(ctx context.Context, userID int64, itemName string, quantity int64) error
	Withdraw(ctx context.Context, userID int64, itemName string, quantity int64) error
	ViewSellOrders(ctx context.Context) ([]model.SellOrder, error)
	PlaceSellOrder(ctx context.Context, orderType model.OrderType, sellerID int64, itemName string, quantity, price, expirationTime int64) (int64, error)
	ExecuteImmediateSellOrder(ctx context.Context, buyerID, orderID int64) error
	PlaceBidOnAuctionSellOrder(ctx context.Context, bidderID, orderID, bid int64) error
}

const helpText = `Available commands:
- ping
- whoami
- help
- view_items
- deposit <item name> [<quantity>]
- withdraw <item name> [<quantity>]
- view_sell_orders
- sell [immediate|auction] <item name> [<quantity>] <price>
- buy <sell order id> [<bid>]`

// commandProcessor executes commands on behalf of one authenticated user.
type commandProcessor struct {
	user   *model.User
	engine Engine

	// sell orders expire this long after placement
	orderLifetime time.Duration
	now           func() time.Time
}

func newCommandProcessor(user *model.User, engine Engine, orderLifetime time.Duration) *commandProcessor {
	return &commandProcessor{
		user:          user,
		engine:        engine,
		orderLifetime: orderLifetime,
		now:           time.Now,
	}
}

// process runs one request and returns the reply to write back. Errors are
// rendered by the session as "Failed to process request: <reason>".
func (p *commandProcessor) process(ctx context.Context, request string) (string, error) {
	command, args := request, ""
	if pos := strings.IndexByte(request, ' '); pos >= 0 {
		command, args = request[:pos], strings.TrimSpace(request[pos+1:])
	}

	switch command {
	case "ping":
		return "pong", nil
	case "whoami":
		return p.user.Username, nil
	case "help":
		return helpText, nil
	case "view_items":
		return p.viewItems(ctx)
	case "deposit":
		return p.deposit(ctx, args)
	case "withdraw":
		return p.withdraw(ctx, args)
	case "view_sell_orders":
		return p.viewSellOrders(ctx)
	case "sell":
		return p.sell(ctx, args)
	case "buy":
		return p.buy(ctx, args)
	default:
		return "", fmt.Errorf("Unknown command '%s'", command)
	}
}

func (p *commandProcessor) viewItems(ctx context.Context) (string, error) {
	items, err := p.engine.ViewItems(ctx, p.user.ID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Items: [")
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "(%q, %d)", item.Name, item.Quantity)
	}
	b.WriteString("]")
	return b.String(), nil
}

func (p *commandProcessor) deposit(ctx context.Context, args string) (string, error) {
	if args == "" {
		return "", fmt.Errorf("Argument is required. Format: 'deposit <item name> [<quantity>]'")
	}

	itemName, quantity := parseItemNameAndQuantity(args)
	if err := p.engine.Deposit(ctx, p.user.ID, itemName, quantity); err != nil {
		return "", fmt.Errorf("Failed to deposit %d %s(s): %w", quantity, itemName, err)
	}
	return fmt.Sprintf("Successfully deposited %d %s(s)", quantity, itemName), nil
}

func (p *commandProcessor) withdraw(ctx context.Context, args string) (string, error) {
	if args == "" {
		return "", fmt.Errorf("Argument is required. Format: 'withdraw <item name> [<quantity>]'")
	}

	itemName, quantity := parseItemNameAndQuantity(args)
	if err := p.engine.Withdraw(ctx, p.user.ID, itemName, quantity); err != nil {
		return "", fmt.Errorf("Failed to withdraw %d %s(s): %w", quantity, itemName, err)
	}
	// "withdrawed" is what the deployed clients and the benchmark expect.
	return fmt.Sprintf("Successfully withdrawed %d %s(s)", quantity, itemName), nil
}

func (p *commandProcessor) viewSellOrders(ctx context.Context) (string, error) {
	orders, err := p.engine.ViewSellOrders(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Sell orders:")
	for _, order := range orders {
		onAuction := ""
		if order.Type == model.OrderTypeAuction {
			onAuction = "on auction "
		}
		expiration := time.Unix(order.ExpirationTime, 0).UTC().Format(time.DateTime)

		if order.Quantity == 1 {
			fmt.Fprintf(&b, "\n- #%d: %s is selling a %s for %d funds %suntil %s",
				order.ID, order.SellerName, order.ItemName, order.Price, onAuction, expiration)
		} else {
			fmt.Fprintf(&b, "\n- #%d: %s is selling %d %s(s) for %d funds %suntil %s",
				order.ID, order.SellerName, order.Quantity, order.ItemName, order.Price, onAuction, expiration)
		}
	}
	return b.String(), nil
}

// sell args are in the format "[immediate|auction] <item name> [<quantity>] <price>".
// Price is mandatory, quantity is optional and defaults to 1.
// Examples:
//   - "arrow 5 10"           -> {"arrow", quantity=5, price=10, immediate}
//   - "holy sword 1 100"     -> {"holy sword", quantity=1, price=100, immediate}
//   - "arrow 10"             -> {"arrow", quantity=1, price=10, immediate}
//   - "immidiate arrow 10 5" -> {"immidiate arrow", quantity=10, price=5, immediate}
//   - "auction arrow 10 5"   -> {"arrow", quantity=10, price=5, auction}
func (p *commandProcessor) sell(ctx context.Context, args string) (string, error) {
	orderType := model.OrderTypeImmediate
	if pos := strings.IndexByte(args, ' '); pos >= 0 {
		if t, ok := model.ParseOrderType(args[:pos]); ok {
			orderType = t
			args = args[pos+1:]
		}
	}

	pos := strings.LastIndexByte(args, ' ')
	if pos < 0 {
		return "", errUnparsableSellOrder
	}
	price, err := strconv.ParseInt(args[pos+1:], 10, 64)
	if err != nil {
		return "", errUnparsableSellOrder
	}

	itemName, quantity := parseItemNameAndQuantity(args[:pos])
	expirationTime := p.now().Unix() + int64(p.orderLifetime.Seconds())

	_, err = p.engine.PlaceSellOrder(ctx, orderType, p.user.ID, itemName, quantity, price, expirationTime)
	if err != nil {
		return "", fmt.Errorf("Failed to place %s sell order for %d %s(s): %w", orderType, quantity, itemName, err)
	}
	return fmt.Sprintf("Successfully placed %s sell order for %d %s(s)", orderType, quantity, itemName), nil
}

var errUnparsableSellOrder = fmt.Errorf(
	"Unable to parse order. " +
		"Expected: 'sell [immediate|auction] <item_name> [<quantity>] <price>'. " +
		"Default type is 'immediate' and default quantity is 1")

// buy args are in the format "<sell order id> [<bid>]".
// With a bid, places the bid on an auction sell order; without one,
// executes an immediate sell order.
func (p *commandProcessor) buy(ctx context.Context, args string) (string, error) {
	var bid *int64
	if pos := strings.LastIndexByte(args, ' '); pos >= 0 {
		if parsed, err := strconv.ParseInt(args[pos+1:], 10, 64); err == nil {
			bid = &parsed
			args = args[:pos]
		}
	}

	orderID, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		return "", fmt.Errorf("Unable to parse sell order id")
	}

	if bid != nil {
		if err := p.engine.PlaceBidOnAuctionSellOrder(ctx, p.user.ID, orderID, *bid); err != nil {
			return "", fmt.Errorf("Failed to place bid on sell order #%d: %w", orderID, err)
		}
		return fmt.Sprintf("Successfully placed bid on sell order #%d", orderID), nil
	}

	if err := p.engine.ExecuteImmediateSellOrder(ctx, p.user.ID, orderID); err != nil {
		return "", fmt.Errorf("Failed to executed immediate sell order #%d: %w", orderID, err)
	}
	return fmt.Sprintf("Successfully executed immediate sell order #%d", orderID), nil
}

// parseItemNameAndQuantity parses the last word as a quantity; if that is
// not an integer, the whole string is the item name and quantity is 1.
// Examples:
//   - "arrow 5"      -> {"arrow", 5}
//   - "holy sword 1" -> {"holy sword", 1}
//   - "arrow"        -> {"arrow", 1}
//   - "holy sword"   -> {"holy sword", 1}
func parseItemNameAndQuantity(args string) (string, int64) {
	if pos := strings.LastIndexByte(args, ' '); pos >= 0 {
		if quantity, err := strconv.ParseInt(args[pos+1:], 10, 64); err == nil {
			return args[:pos], quantity
		}
	}
	return args, 1
}
