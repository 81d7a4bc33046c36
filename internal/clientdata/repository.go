// Package clientdata provides persistent caching for external API client responses.
// Entries are JSON blobs with expiration timestamps; expired entries stay readable
// so callers can fall back to stale data when the upstream API is unavailable.
package clientdata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Cache tables.
const (
	TableExchangeRate = "exchangerate" // national-currency rates keyed by "FROM:TO"
	TableUSDRates     = "usd_rates"    // USD equivalence keyed by currency code
)

// AllTables lists all cache tables for cleanup operations.
var AllTables = []string{TableExchangeRate, TableUSDRates}

var keyColumns = map[string]string{
	TableExchangeRate: "pair",
	TableUSDRates:     "currency",
}

// Repository provides cache operations for client data.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// keyColumn validates the table name and returns its key column.
// Table names are never taken from user input unchecked.
func keyColumn(table string) (string, error) {
	col, ok := keyColumns[table]
	if !ok {
		return "", fmt.Errorf("invalid table name: %s", table)
	}
	return col, nil
}

// Store saves data with expiration = now + ttl.
func (r *Repository) Store(ctx context.Context, table, key string, data interface{}, ttl time.Duration) error {
	col, err := keyColumn(table)
	if err != nil {
		return err
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s, data, expires_at) VALUES (?, ?, ?)", table, col)
	if _, err := r.db.ExecContext(ctx, query, key, string(jsonData), time.Now().Add(ttl).Unix()); err != nil {
		return fmt.Errorf("failed to store data in %s: %w", table, err)
	}
	return nil
}

// GetIfFresh returns data only if it has not expired. Missing or expired keys yield nil, nil.
func (r *Repository) GetIfFresh(ctx context.Context, table, key string) (json.RawMessage, error) {
	col, err := keyColumn(table)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT data FROM %s WHERE %s = ? AND expires_at > ?", table, col)
	return r.scanOne(ctx, table, query, key, time.Now().Unix())
}

// Get returns data regardless of expiration. Missing keys yield nil, nil.
func (r *Repository) Get(ctx context.Context, table, key string) (json.RawMessage, error) {
	col, err := keyColumn(table)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT data FROM %s WHERE %s = ?", table, col)
	return r.scanOne(ctx, table, query, key)
}

func (r *Repository) scanOne(ctx context.Context, table, query string, args ...interface{}) (json.RawMessage, error) {
	var data string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get data from %s: %w", table, err)
	}
	return json.RawMessage(data), nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(ctx context.Context, table, key string) error {
	col, err := keyColumn(table)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, col), key); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// DeleteExpired removes all rows of table where expires_at < now.
func (r *Repository) DeleteExpired(ctx context.Context, table string) (int64, error) {
	if _, err := keyColumn(table); err != nil {
		return 0, err
	}

	result, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table), time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired from %s: %w", table, err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
	}
	return deleted, nil
}

// DeleteAllExpired removes expired entries from every cache table.
func (r *Repository) DeleteAllExpired(ctx context.Context) (map[string]int64, error) {
	results := make(map[string]int64, len(AllTables))
	for _, table := range AllTables {
		deleted, err := r.DeleteExpired(ctx, table)
		if err != nil {
			return results, err
		}
		results[table] = deleted
	}
	return results, nil
}
