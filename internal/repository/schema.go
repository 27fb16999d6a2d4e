package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sundris/auctionhouse/internal/model"
)

// Schema creation is idempotent: every statement is IF NOT EXISTS / OR
// IGNORE, so EnsureSchema can run on every startup against the same file.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		username TEXT NOT NULL UNIQUE
	) STRICT`,

	`CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	) STRICT`,

	// The currency is stored as a regular item to keep balances and
	// inventories in one table.
	`INSERT OR IGNORE INTO items (name) VALUES ('funds')`,

	`CREATE TABLE IF NOT EXISTS user_items (
		user_id INTEGER NOT NULL,
		item_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity >= 0),
		FOREIGN KEY (user_id) REFERENCES users (id),
		FOREIGN KEY (item_id) REFERENCES items (id),
		PRIMARY KEY (user_id, item_id)
	) STRICT`,

	// AUTOINCREMENT keeps order ids monotonic: rows are deleted on
	// settlement and on sweep, and a plain rowid key would hand the highest
	// swept id to the next order placed.
	`CREATE TABLE IF NOT EXISTS sell_orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seller_id INTEGER NOT NULL,
		item_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		price INTEGER NOT NULL CHECK (price > 0),
		expiration_time INTEGER NOT NULL,
		buyer_id INTEGER,
		FOREIGN KEY (seller_id) REFERENCES users (id),
		FOREIGN KEY (item_id) REFERENCES items (id),
		FOREIGN KEY (buyer_id) REFERENCES users (id)
	) STRICT`,

	`CREATE INDEX IF NOT EXISTS idx_sell_orders_expiration
		ON sell_orders (expiration_time)`,
}

// EnsureSchema creates the schema if needed and returns the id of the
// preloaded funds item.
func EnsureSchema(ctx context.Context, db *sql.DB) (int64, error) {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("create schema: %w", err)
		}
	}

	var fundsItemID int64
	err := db.QueryRowContext(ctx,
		`SELECT id FROM items WHERE name = ?`, model.FundsItemName,
	).Scan(&fundsItemID)
	if err != nil {
		return 0, fmt.Errorf("look up funds item: %w", err)
	}
	return fundsItemID, nil
}
