package model

import (
	"database/sql"
	"fmt"
)

// FundsItemName is the reserved item name used as the in-system currency.
// Every user owns exactly one funds holding; it is created at login and kept
// even when the balance reaches zero.
const FundsItemName = "funds"

// User is an authenticated identity. Users are created on first login and
// never deleted; ids are never reused.
type User struct {
	ID       int64
	Username string
}

// OwnedItem is one row of a user's inventory as shown by view_items.
type OwnedItem struct {
	Name     string
	Quantity int64
}

// OrderType discriminates the two flavors of sell orders.
type OrderType int

const (
	// OrderTypeImmediate orders are executed by any other user at the asking
	// price before they expire.
	OrderTypeImmediate OrderType = iota
	// OrderTypeAuction orders accrue bids; the highest bidder at expiry wins.
	OrderTypeAuction
)

// ParseOrderType reports whether s names an order type. Only the exact
// tokens are recognized; anything else (including typos like "immidiate")
// is treated as part of an item name by the command parser.
func ParseOrderType(s string) (OrderType, bool) {
	switch s {
	case "immediate":
		return OrderTypeImmediate, true
	case "auction":
		return OrderTypeAuction, true
	default:
		return 0, false
	}
}

func (t OrderType) String() string {
	switch t {
	case OrderTypeImmediate:
		return "immediate"
	case OrderTypeAuction:
		return "auction"
	default:
		return fmt.Sprintf("OrderType(%d)", int(t))
	}
}

// SellOrder is a live sell order joined with the seller's username and the
// item name, as returned by view_sell_orders.
type SellOrder struct {
	ID             int64
	SellerName     string
	ItemName       string
	Quantity       int64
	Price          int64
	ExpirationTime int64 // Unix seconds
	Type           OrderType
}

// StoredSellOrder is a sell order as stored, before joining.
//
// The type discriminator is encoded in the buyer column: a buyer equal to
// the seller marks an immediate order; NULL marks an auction with no bid
// yet; any other buyer is the standing high bidder and Price is their bid.
// The expiration sweep relies on exactly this encoding to classify "return
// to seller" against "deliver to bidder".
type StoredSellOrder struct {
	ID             int64
	SellerID       int64
	ItemID         int64
	Quantity       int64
	Price          int64
	ExpirationTime int64
	BuyerID        sql.NullInt64
}

// Type derives the order type from the buyer column.
func (o *StoredSellOrder) Type() OrderType {
	if o.BuyerID.Valid && o.BuyerID.Int64 == o.SellerID {
		return OrderTypeImmediate
	}
	return OrderTypeAuction
}

// HighBidder returns the current high bidder, if any.
func (o *StoredSellOrder) HighBidder() (int64, bool) {
	if o.BuyerID.Valid && o.BuyerID.Int64 != o.SellerID {
		return o.BuyerID.Int64, true
	}
	return 0, false
}
