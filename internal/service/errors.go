package service

import "errors"

// Sentinel errors of the auction engine. Several of these are written to
// the wire verbatim, so their text is part of the protocol; the benchmark
// and the existing client key on the "Successfully" reply prefix and show
// failure text to the user as-is.
var (
	// ErrEmptyUsername is returned by Login for an empty username.
	ErrEmptyUsername = errors.New("Username cannot be empty")

	// ErrEmptyItemName is returned when an operation names no item.
	ErrEmptyItemName = errors.New("Item name cannot be empty")

	// ErrNonPositiveQuantity is returned when a deposit or withdrawal
	// quantity is zero or negative.
	ErrNonPositiveQuantity = errors.New("Quantity must be positive")

	// ErrNegativeQuantity is returned when a sell order quantity is negative.
	ErrNegativeQuantity = errors.New("Quantity cannot be negative")

	// ErrNegativePrice is returned when a sell order price is negative.
	ErrNegativePrice = errors.New("Price cannot be negative")

	// ErrSellingFunds is returned when a sell order offers funds for funds.
	ErrSellingFunds = errors.New("Selling funds is not allowed")

	// ErrItemNotFound is returned by repositories for an unknown item name.
	ErrItemNotFound = errors.New("no such item")

	// ErrInsufficientQuantity is returned by repositories when a holding has
	// fewer units than a debit requires.
	ErrInsufficientQuantity = errors.New("not enough items")

	// ErrOrderNotFound is returned for an unknown sell order id.
	ErrOrderNotFound = errors.New("No such sell order")

	// ErrOwnOrder is returned when a user tries to buy or bid on their own
	// sell order.
	ErrOwnOrder = errors.New("Cannot buy or bid on your own sell order")

	// ErrNotImmediate is returned when buying an auction order without a bid.
	ErrNotImmediate = errors.New("Not an immediate sell order, place a bid instead")

	// ErrNotAuction is returned when bidding on an immediate order.
	ErrNotAuction = errors.New("Not an auction sell order, buy it without a bid instead")

	// ErrBidTooLow is returned when a bid does not exceed the current price.
	ErrBidTooLow = errors.New("Bid must be higher than the current price")
)
