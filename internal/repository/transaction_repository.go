package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eaglebank/insights-service/shared/models"
	"github.com/lib/pq"
)

// PostgresStore is the PostgreSQL TransactionStore. Writes live in this file,
// reads in transaction_read_repository.go.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens and pings a lib/pq connection pool.
func OpenPostgres(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// ReplaceAll deletes every row and bulk-loads txs with COPY, inside one
// transaction. Concurrent readers keep seeing the previous rows until commit.
func (r *PostgresStore) ReplaceAll(ctx context.Context, txs []models.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin replace: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("failed to clear transactions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("transactions",
		"title", "description", "price", "category", "image", "sold", "date_of_sale"))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}
	for _, t := range txs {
		if _, err := stmt.ExecContext(ctx,
			t.Title, t.Description, t.Price, t.Category, t.Image, t.Sold, t.DateOfSale,
		); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy transaction %q: %w", t.Title, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit replace: %w", err)
	}
	return nil
}

func (r *PostgresStore) Close(context.Context) error {
	return r.db.Close()
}
