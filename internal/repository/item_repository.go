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

// ItemRepository provides data access for items and per-user holdings.
type ItemRepository struct{}

// NewItemRepository creates a new ItemRepository.
func NewItemRepository() *ItemRepository {
	return &ItemRepository{}
}

// GetIDByName retrieves the id of an item by name.
// Returns service.ErrItemNotFound if no such item exists.
func (r *ItemRepository) GetIDByName(ctx context.Context, q database.Querier, name string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM items WHERE name = ?`, name,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, service.ErrItemNotFound
		}
		return 0, fmt.Errorf("get item %s: %w", name, err)
	}
	return id, nil
}

// GetOrCreate retrieves the id of an item by name, creating the item row if
// it does not exist yet. Items are never deleted.
func (r *ItemRepository) GetOrCreate(ctx context.Context, q database.Querier, name string) (int64, error) {
	id, err := r.GetIDByName(ctx, q, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, service.ErrItemNotFound) {
		return 0, err
	}

	res, err := q.ExecContext(ctx, `INSERT INTO items (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("insert item %s: %w", name, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("item id for %s: %w", name, err)
	}
	return id, nil
}

// Quantity returns how many units of an item the user holds.
// A missing holding row counts as zero.
func (r *ItemRepository) Quantity(ctx context.Context, q database.Querier, userID, itemID int64) (int64, error) {
	var quantity int64
	err := q.QueryRowContext(ctx,
		`SELECT quantity FROM user_items WHERE user_id = ? AND item_id = ?`,
		userID, itemID,
	).Scan(&quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get quantity user=%d item=%d: %w", userID, itemID, err)
	}
	return quantity, nil
}

// InsertHolding creates a holding row with the given quantity. Used at login
// to create the user's funds row; fails if the row already exists.
func (r *ItemRepository) InsertHolding(ctx context.Context, q database.Querier, userID, itemID, quantity int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO user_items (user_id, item_id, quantity) VALUES (?, ?, ?)`,
		userID, itemID, quantity)
	if err != nil {
		return fmt.Errorf("insert holding user=%d item=%d: %w", userID, itemID, err)
	}
	return nil
}

// Add credits quantity units of an item to the user, creating the holding
// row if it does not exist.
func (r *ItemRepository) Add(ctx context.Context, q database.Querier, userID, itemID, quantity int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO user_items (user_id, item_id, quantity)
		VALUES (?1, ?2, ?3)
		ON CONFLICT (user_id, item_id) DO UPDATE SET quantity = quantity + ?3`,
		userID, itemID, quantity)
	if err != nil {
		return fmt.Errorf("add %d of item %d to user %d: %w", quantity, itemID, userID, err)
	}
	return nil
}

// Deduct debits quantity units of an item from the user.
// Returns service.ErrInsufficientQuantity when the user holds fewer units
// than requested. When the holding reaches exactly zero the row is deleted,
// unless keepAtZero is set (the funds row is kept for the user's lifetime).
func (r *ItemRepository) Deduct(ctx context.Context, q database.Querier, userID, itemID, quantity int64, keepAtZero bool) error {
	current, err := r.Quantity(ctx, q, userID, itemID)
	if err != nil {
		return err
	}
	if current < quantity {
		return service.ErrInsufficientQuantity
	}

	if current > quantity || keepAtZero {
		_, err = q.ExecContext(ctx,
			`UPDATE user_items SET quantity = quantity - ?3
			WHERE user_id = ?1 AND item_id = ?2`,
			userID, itemID, quantity)
	} else {
		_, err = q.ExecContext(ctx,
			`DELETE FROM user_items WHERE user_id = ? AND item_id = ?`,
			userID, itemID)
	}
	if err != nil {
		return fmt.Errorf("deduct %d of item %d from user %d: %w", quantity, itemID, userID, err)
	}
	return nil
}

// ListOwned returns every holding of the user joined with item names,
// ordered by ascending item id. The funds item is created first at schema
// initialization, so it always leads the listing.
func (r *ItemRepository) ListOwned(ctx context.Context, q database.Querier, userID int64) ([]model.OwnedItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT items.name, user_items.quantity
		FROM user_items
		INNER JOIN items ON user_items.item_id = items.id
		WHERE user_items.user_id = ?
		ORDER BY user_items.item_id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list items of user %d: %w", userID, err)
	}
	defer rows.Close()

	var items []model.OwnedItem
	for rows.Next() {
		var item model.OwnedItem
		if err := rows.Scan(&item.Name, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan owned item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate owned items: %w", err)
	}

	// Return empty slice, not nil
	if items == nil {
		items = []model.OwnedItem{}
	}
	return items, nil
}
