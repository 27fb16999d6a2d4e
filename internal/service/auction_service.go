package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/sundris/auctionhouse/internal/model"
	"github.com/sundris/auctionhouse/pkg/database"
)

// UserRepositoryInterface defines the interface for user data access.
type UserRepositoryInterface interface {
	GetByUsername(ctx context.Context, q database.Querier, username string) (*model.User, error)
	Insert(ctx context.Context, q database.Querier, username string) (int64, error)
}

// ItemRepositoryInterface defines the interface for item and holding data
// access.
type ItemRepositoryInterface interface {
	GetIDByName(ctx context.Context, q database.Querier, name string) (int64, error)
	GetOrCreate(ctx context.Context, q database.Querier, name string) (int64, error)
	InsertHolding(ctx context.Context, q database.Querier, userID, itemID, quantity int64) error
	Add(ctx context.Context, q database.Querier, userID, itemID, quantity int64) error
	Deduct(ctx context.Context, q database.Querier, userID, itemID, quantity int64, keepAtZero bool) error
	ListOwned(ctx context.Context, q database.Querier, userID int64) ([]model.OwnedItem, error)
}

// OrderRepositoryInterface defines the interface for sell order data access.
type OrderRepositoryInterface interface {
	Insert(ctx context.Context, q database.Querier, sellerID, itemID, quantity, price, expirationTime int64, buyerID *int64) (int64, error)
	Get(ctx context.Context, q database.Querier, orderID int64) (*model.StoredSellOrder, error)
	Delete(ctx context.Context, q database.Querier, orderID int64) error
	UpdateBid(ctx context.Context, q database.Querier, orderID, price, buyerID int64) error
	ListLive(ctx context.Context, q database.Querier) ([]model.SellOrder, error)
	SettleExpired(ctx context.Context, q database.Querier, now, fundsItemID int64) (int64, error)
}

// AuctionService is the storage engine: every mutation of users, holdings
// and sell orders flows through it. It owns the single database connection
// and serializes all operations behind a mutex, so any two operations are
// totally ordered; atomicity within one operation comes from the wrapped
// transaction.
type AuctionService struct {
	mu          sync.Mutex
	db          *sql.DB
	userRepo    UserRepositoryInterface
	itemRepo    ItemRepositoryInterface
	orderRepo   OrderRepositoryInterface
	fundsItemID int64
}

// NewAuctionService creates an AuctionService over the given database and
// repositories. fundsItemID is the id of the preloaded funds item.
func NewAuctionService(db *sql.DB, userRepo UserRepositoryInterface, itemRepo ItemRepositoryInterface, orderRepo OrderRepositoryInterface, fundsItemID int64) *AuctionService {
	return &AuctionService{
		db:          db,
		userRepo:    userRepo,
		itemRepo:    itemRepo,
		orderRepo:   orderRepo,
		fundsItemID: fundsItemID,
	}
}

// Login returns the user with the given username, creating it on first
// sight. Creation also creates the user's funds holding with quantity 0,
// atomically. Idempotent: repeated calls return the same id.
func (s *AuctionService) Login(ctx context.Context, username string) (*model.User, error) {
	if username == "" {
		return nil, ErrEmptyUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.userRepo.GetByUsername(ctx, s.db, username)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // Safe: no-op if committed

	userID, err := s.userRepo.Insert(ctx, tx, username)
	if err != nil {
		return nil, err
	}
	// Every user carries a funds row from login onward, even at balance 0.
	if err := s.itemRepo.InsertHolding(ctx, tx, userID, s.fundsItemID, 0); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit login: %w", err)
	}

	return &model.User{ID: userID, Username: username}, nil
}

// ViewItems returns every holding of the user, funds first.
func (s *AuctionService) ViewItems(ctx context.Context, userID int64) ([]model.OwnedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.itemRepo.ListOwned(ctx, s.db, userID)
}

// Deposit credits the user with quantity units of the named item, creating
// the item on first sight.
func (s *AuctionService) Deposit(ctx context.Context, userID int64, itemName string, quantity int64) error {
	if itemName == "" {
		return ErrEmptyItemName
	}
	if quantity <= 0 {
		return ErrNonPositiveQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	itemID, err := s.itemRepo.GetOrCreate(ctx, tx, itemName)
	if err != nil {
		return err
	}
	if err := s.itemRepo.Add(ctx, tx, userID, itemID, quantity); err != nil {
		return err
	}
	return tx.Commit()
}

// Withdraw debits the user quantity units of the named item. The holding
// row is deleted when it reaches zero, except for funds, which every user
// keeps for life.
func (s *AuctionService) Withdraw(ctx context.Context, userID int64, itemName string, quantity int64) error {
	if itemName == "" {
		return ErrEmptyItemName
	}
	if quantity <= 0 {
		return ErrNonPositiveQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	itemID, err := s.itemRepo.GetIDByName(ctx, tx, itemName)
	if err == nil {
		err = s.itemRepo.Deduct(ctx, tx, userID, itemID, quantity, itemID == s.fundsItemID)
	}
	if err != nil {
		// An unknown item and an empty holding look the same to the caller.
		if errors.Is(err, ErrItemNotFound) || errors.Is(err, ErrInsufficientQuantity) {
			return fmt.Errorf("Not enough %s(s) to withdraw", itemName)
		}
		return err
	}
	return tx.Commit()
}

// ViewSellOrders returns every live sell order, ordered by id.
func (s *AuctionService) ViewSellOrders(ctx context.Context) ([]model.SellOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.orderRepo.ListLive(ctx, s.db)
}

// Fee is the listing surcharge in funds for a sell order at the given
// price: 5% rounded down, plus one. Debited from the seller when the order
// is placed and never refunded, not even when the order expires unsold.
func Fee(price int64) int64 {
	return price/20 + 1
}

// PlaceSellOrder lists quantity units of the named item for sale until
// expirationTime. The items and the listing fee leave the seller's
// inventory immediately; an immediate order records the seller as its own
// buyer, an auction order starts with no buyer and price as the reserve.
// Returns the new order id.
func (s *AuctionService) PlaceSellOrder(ctx context.Context, orderType model.OrderType, sellerID int64, itemName string, quantity, price, expirationTime int64) (int64, error) {
	if itemName == "" {
		return 0, ErrEmptyItemName
	}
	if itemName == model.FundsItemName {
		return 0, ErrSellingFunds
	}
	if quantity < 0 {
		return 0, ErrNegativeQuantity
	}
	if price < 0 {
		return 0, ErrNegativePrice
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	itemID, err := s.itemRepo.GetIDByName(ctx, tx, itemName)
	if err == nil {
		err = s.itemRepo.Deduct(ctx, tx, sellerID, itemID, quantity, false)
	}
	if err != nil {
		if errors.Is(err, ErrItemNotFound) || errors.Is(err, ErrInsufficientQuantity) {
			return 0, fmt.Errorf("Not enough %s(s) to sell", itemName)
		}
		return 0, err
	}

	fee := Fee(price)
	if err := s.itemRepo.Deduct(ctx, tx, sellerID, s.fundsItemID, fee, true); err != nil {
		if errors.Is(err, ErrInsufficientQuantity) {
			return 0, fmt.Errorf("Not enough funds to pay %d funds fee (which is 5%% + 1)", fee)
		}
		return 0, err
	}

	var buyerID *int64
	if orderType == model.OrderTypeImmediate {
		buyerID = &sellerID
	}
	orderID, err := s.orderRepo.Insert(ctx, tx, sellerID, itemID, quantity, price, expirationTime, buyerID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit sell order: %w", err)
	}
	return orderID, nil
}

// ExecuteImmediateSellOrder executes an immediate sell order at its asking
// price: the buyer pays the price in funds, the seller receives it, and the
// items change hands. All-or-nothing; no partial fills.
func (s *AuctionService) ExecuteImmediateSellOrder(ctx context.Context, buyerID, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	order, err := s.orderRepo.Get(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if order.Type() != model.OrderTypeImmediate {
		return ErrNotImmediate
	}
	if buyerID == order.SellerID {
		return ErrOwnOrder
	}

	if err := s.itemRepo.Deduct(ctx, tx, buyerID, s.fundsItemID, order.Price, true); err != nil {
		if errors.Is(err, ErrInsufficientQuantity) {
			return fmt.Errorf("Not enough funds to buy sell order #%d for %d funds", orderID, order.Price)
		}
		return err
	}
	if err := s.itemRepo.Add(ctx, tx, order.SellerID, s.fundsItemID, order.Price); err != nil {
		return err
	}
	if err := s.itemRepo.Add(ctx, tx, buyerID, order.ItemID, order.Quantity); err != nil {
		return err
	}
	if err := s.orderRepo.Delete(ctx, tx, orderID); err != nil {
		return err
	}
	return tx.Commit()
}

// PlaceBidOnAuctionSellOrder places a strictly higher bid on an auction
// order. The previous high bidder, if any, is refunded in full and the new
// bid is escrowed from the bidder's funds; the refund-then-debit order also
// applies when a bidder raises their own bid, so the bid amount must always
// be covered in full.
func (s *AuctionService) PlaceBidOnAuctionSellOrder(ctx context.Context, bidderID, orderID, bid int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	order, err := s.orderRepo.Get(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if order.Type() != model.OrderTypeAuction {
		return ErrNotAuction
	}
	if bidderID == order.SellerID {
		return ErrOwnOrder
	}
	if bid <= order.Price {
		return ErrBidTooLow
	}

	if prevBidder, ok := order.HighBidder(); ok {
		if err := s.itemRepo.Add(ctx, tx, prevBidder, s.fundsItemID, order.Price); err != nil {
			return err
		}
	}
	if err := s.itemRepo.Deduct(ctx, tx, bidderID, s.fundsItemID, bid, true); err != nil {
		if errors.Is(err, ErrInsufficientQuantity) {
			return fmt.Errorf("Not enough funds to bid %d funds on sell order #%d", bid, orderID)
		}
		return err
	}
	if err := s.orderRepo.UpdateBid(ctx, tx, orderID, bid, bidderID); err != nil {
		return err
	}
	return tx.Commit()
}

// ProcessExpiredSellOrders atomically settles every order expired at now:
// items return to the seller for immediate orders and auctions without a
// bid, auctions with a bid deliver the items to the high bidder and the bid
// to the seller. Listing fees are never refunded. Idempotent for any fixed
// now; safe to call at any cadence. Returns the number of orders swept.
func (s *AuctionService) ProcessExpiredSellOrders(ctx context.Context, now int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	swept, err := s.orderRepo.SettleExpired(ctx, tx, now, s.fundsItemID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit sweep: %w", err)
	}
	return swept, nil
}
