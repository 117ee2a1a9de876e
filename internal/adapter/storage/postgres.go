package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"stockwatch/internal/domain/model"
)

type PostgresAdapter struct {
	db *sqlx.DB
}

func NewPostgresAdapter(connStr string, maxOpen, maxIdle int) (*PostgresAdapter, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresAdapter{db: db}, nil
}

func (a *PostgresAdapter) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS watchlist_items (
		id SERIAL PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		symbol VARCHAR(10) NOT NULL,
		original_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		category VARCHAR(32) NOT NULL DEFAULT 'general',
		priority VARCHAR(16) NOT NULL DEFAULT 'normal',
		created_at TIMESTAMP DEFAULT NOW(),
		UNIQUE (user_id, symbol)
	);
	CREATE INDEX IF NOT EXISTS idx_watchlist_user ON watchlist_items(user_id);
	`
	_, err := a.db.ExecContext(ctx, query)
	return err
}

func (a *PostgresAdapter) GetWatchlist(ctx context.Context, userID string, limit int) ([]model.WatchlistItem, error) {
	if limit <= 0 {
		limit = 50
	}

	var items []model.WatchlistItem
	err := a.db.SelectContext(ctx, &items,
		`SELECT symbol, original_price, category, priority
		 FROM watchlist_items
		 WHERE user_id = $1
		 ORDER BY created_at
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load watchlist for user %s: %w", userID, err)
	}
	return items, nil
}

func (a *PostgresAdapter) Add(ctx context.Context, userID string, item model.WatchlistItem) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO watchlist_items (user_id, symbol, original_price, category, priority)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, symbol) DO UPDATE
		 SET category = EXCLUDED.category, priority = EXCLUDED.priority`,
		userID, item.Symbol, item.OriginalPrice, item.Category, item.Priority)
	if err != nil {
		return fmt.Errorf("failed to add watchlist item: %w", err)
	}
	return nil
}

func (a *PostgresAdapter) Remove(ctx context.Context, userID, symbol string) error {
	_, err := a.db.ExecContext(ctx,
		`DELETE FROM watchlist_items WHERE user_id = $1 AND symbol = $2`,
		userID, symbol)
	if err != nil {
		return fmt.Errorf("failed to remove watchlist item: %w", err)
	}
	return nil
}

func (a *PostgresAdapter) UpdateOriginalPrice(ctx context.Context, userID, symbol string, price float64) error {
	_, err := a.db.ExecContext(ctx,
		`UPDATE watchlist_items SET original_price = $3
		 WHERE user_id = $1 AND symbol = $2`,
		userID, symbol, price)
	if err != nil {
		return fmt.Errorf("failed to update original price: %w", err)
	}
	return nil
}

func (a *PostgresAdapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *PostgresAdapter) Close() error {
	return a.db.Close()
}
