package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sundris/auctionhouse/internal/model"
	"github.com/sundris/auctionhouse/internal/service"
	"github.com/sundris/auctionhouse/pkg/database"
)

// OrderRepository provides data access for sell orders.
type OrderRepository struct{}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{}
}

// Insert creates a sell order and returns its id. buyerID is the seller's
// own id for immediate orders and nil for auctions.
func (r *OrderRepository) Insert(ctx context.Context, q database.Querier, sellerID, itemID, quantity, price, expirationTime int64, buyerID *int64) (int64, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO sell_orders (seller_id, item_id, quantity, price, expiration_time, buyer_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sellerID, itemID, quantity, price, expirationTime, buyerID)
	if err != nil {
		return 0, fmt.Errorf("insert sell order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sell order id: %w", err)
	}
	return id, nil
}

// Get retrieves a sell order by id.
// Returns service.ErrOrderNotFound if no such order exists.
func (r *OrderRepository) Get(ctx context.Context, q database.Querier, orderID int64) (*model.StoredSellOrder, error) {
	var order model.StoredSellOrder
	err := q.QueryRowContext(ctx,
		`SELECT id, seller_id, item_id, quantity, price, expiration_time, buyer_id
		FROM sell_orders WHERE id = ?`,
		orderID).Scan(
		&order.ID,
		&order.SellerID,
		&order.ItemID,
		&order.Quantity,
		&order.Price,
		&order.ExpirationTime,
		&order.BuyerID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, service.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get sell order #%d: %w", orderID, err)
	}
	return &order, nil
}

// Delete removes a sell order row.
func (r *OrderRepository) Delete(ctx context.Context, q database.Querier, orderID int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM sell_orders WHERE id = ?`, orderID); err != nil {
		return fmt.Errorf("delete sell order #%d: %w", orderID, err)
	}
	return nil
}

// UpdateBid records a new high bid on an auction order.
func (r *OrderRepository) UpdateBid(ctx context.Context, q database.Querier, orderID, price, buyerID int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE sell_orders SET price = ?, buyer_id = ? WHERE id = ?`,
		price, buyerID, orderID)
	if err != nil {
		return fmt.Errorf("update bid on sell order #%d: %w", orderID, err)
	}
	return nil
}

// ListLive returns every live sell order joined with the seller's username
// and the item name, ordered by ascending order id.
func (r *OrderRepository) ListLive(ctx context.Context, q database.Querier) ([]model.SellOrder, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT sell_orders.id, users.username, items.name,
			sell_orders.quantity, sell_orders.price, sell_orders.expiration_time,
			sell_orders.buyer_id, sell_orders.seller_id
		FROM sell_orders
		INNER JOIN users ON sell_orders.seller_id = users.id
		INNER JOIN items ON sell_orders.item_id = items.id
		ORDER BY sell_orders.id`)
	if err != nil {
		return nil, fmt.Errorf("list sell orders: %w", err)
	}
	defer rows.Close()

	var orders []model.SellOrder
	for rows.Next() {
		var (
			order    model.SellOrder
			buyerID  sql.NullInt64
			sellerID int64
		)
		if err := rows.Scan(
			&order.ID,
			&order.SellerName,
			&order.ItemName,
			&order.Quantity,
			&order.Price,
			&order.ExpirationTime,
			&buyerID,
			&sellerID,
		); err != nil {
			return nil, fmt.Errorf("scan sell order: %w", err)
		}
		if buyerID.Valid && buyerID.Int64 == sellerID {
			order.Type = model.OrderTypeImmediate
		} else {
			order.Type = model.OrderTypeAuction
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sell orders: %w", err)
	}

	if orders == nil {
		orders = []model.SellOrder{}
	}
	return orders, nil
}

// SettleExpired settles every order whose expiration_time is at or before
// now, in two set-oriented statements meant to run inside one transaction:
//
//  1. A single aggregated upsert against user_items. Each expired order
//     contributes its items either back to the seller (immediate orders and
//     auctions without a bid: buyer_id IS NULL OR buyer_id = seller_id) or
//     to the high bidder, and auctions with a bid additionally pay the
//     seller the bid price in funds, which the bidder escrowed at bid time.
//     Contributions are grouped by (recipient, item) so each affected
//     holding is written at most once. Listing fees are not refunded.
//  2. A deletion of the swept rows.
//
// Returns the number of orders swept.
func (r *OrderRepository) SettleExpired(ctx context.Context, q database.Querier, now, fundsItemID int64) (int64, error) {
	_, err := q.ExecContext(ctx,
		`INSERT INTO user_items (user_id, item_id, quantity)
		SELECT user_id, item_id, SUM(quantity) FROM (
			SELECT
				CASE WHEN buyer_id IS NULL OR buyer_id = seller_id
					THEN seller_id ELSE buyer_id END AS user_id,
				item_id,
				quantity
			FROM sell_orders
			WHERE expiration_time <= ?1
			UNION ALL
			SELECT seller_id AS user_id, ?2 AS item_id, price AS quantity
			FROM sell_orders
			WHERE expiration_time <= ?1
				AND buyer_id IS NOT NULL AND buyer_id != seller_id
		)
		GROUP BY user_id, item_id
		ON CONFLICT (user_id, item_id) DO UPDATE SET quantity = quantity + excluded.quantity`,
		now, fundsItemID)
	if err != nil {
		return 0, fmt.Errorf("settle expired sell orders: %w", err)
	}

	res, err := q.ExecContext(ctx,
		`DELETE FROM sell_orders WHERE expiration_time <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sell orders: %w", err)
	}
	swept, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count swept sell orders: %w", err)
	}
	return swept, nil
}
