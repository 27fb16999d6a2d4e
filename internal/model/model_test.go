package model

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOrderType(t *testing.T) {
	orderType, ok := ParseOrderType("immediate")
	assert.True(t, ok)
	assert.Equal(t, OrderTypeImmediate, orderType)

	orderType, ok = ParseOrderType("auction")
	assert.True(t, ok)
	assert.Equal(t, OrderTypeAuction, orderType)

	for _, s := range []string{"", "immidiate", "Immediate", "AUCTION", "auctions"} {
		_, ok := ParseOrderType(s)
		assert.False(t, ok, s)
	}
}

func TestOrderTypeString(t *testing.T) {
	assert.Equal(t, "immediate", OrderTypeImmediate.String())
	assert.Equal(t, "auction", OrderTypeAuction.String())
}

func TestStoredSellOrder_TypeAndHighBidder(t *testing.T) {
	immediate := &StoredSellOrder{SellerID: 1, BuyerID: sql.NullInt64{Int64: 1, Valid: true}}
	assert.Equal(t, OrderTypeImmediate, immediate.Type())
	_, ok := immediate.HighBidder()
	assert.False(t, ok)

	auction := &StoredSellOrder{SellerID: 1}
	assert.Equal(t, OrderTypeAuction, auction.Type())
	_, ok = auction.HighBidder()
	assert.False(t, ok)

	outbid := &StoredSellOrder{SellerID: 1, BuyerID: sql.NullInt64{Int64: 2, Valid: true}}
	assert.Equal(t, OrderTypeAuction, outbid.Type())
	bidder, ok := outbid.HighBidder()
	assert.True(t, ok)
	assert.Equal(t, int64(2), bidder)
}
