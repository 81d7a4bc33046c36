package slips

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mosaic-erp/reinsurance/internal/database"
	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// SQLiteRepository stores slips in portfolio.db as msgpack bodies.
type SQLiteRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLiteRepository creates a repository over the portfolio database.
func NewSQLiteRepository(db *sql.DB, log zerolog.Logger) *SQLiteRepository {
	return &SQLiteRepository{db: db, log: log.With().Str("repo", "slips").Logger()}
}

func (r *SQLiteRepository) GetSlip(ctx context.Context, id string) (Slip, error) {
	var body []byte
	err := r.db.QueryRowContext(ctx, "SELECT body FROM slips WHERE id = ?", id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return Slip{}, &domain.NotFoundError{Kind: "slip", ID: id}
	}
	if err != nil {
		return Slip{}, &domain.PersistenceError{Op: "get slip", ID: id, Err: err}
	}
	return decodeSlip(id, body)
}

func (r *SQLiteRepository) SaveSlip(ctx context.Context, s Slip) (Slip, error) {
	if s.ID == "" {
		return Slip{}, domain.NewValidationError("id", "is required")
	}
	now := time.Now().UTC().Truncate(time.Second)
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	body, err := msgpack.Marshal(&s)
	if err != nil {
		return Slip{}, &domain.PersistenceError{Op: "encode slip", ID: s.ID, Err: err}
	}

	deleted := 0
	if s.Deleted {
		deleted = 1
	}
	err = database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO slips (id, slip_number, status, deleted, body, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				slip_number = excluded.slip_number,
				status = excluded.status,
				deleted = excluded.deleted,
				body = excluded.body,
				updated_at = excluded.updated_at`,
			s.ID, s.SlipNumber, string(s.Status), deleted, body, s.CreatedAt.Unix(), s.UpdatedAt.Unix(),
		)
		return err
	})
	if err != nil {
		return Slip{}, &domain.PersistenceError{Op: "save slip", ID: s.ID, Err: err}
	}
	return s, nil
}

func (r *SQLiteRepository) DeleteSlip(ctx context.Context, id string) error {
	return r.setDeleted(ctx, id, true)
}

func (r *SQLiteRepository) RestoreSlip(ctx context.Context, id string) error {
	return r.setDeleted(ctx, id, false)
}

func (r *SQLiteRepository) setDeleted(ctx context.Context, id string, deleted bool) error {
	s, err := r.GetSlip(ctx, id)
	if err != nil {
		return err
	}
	s.Deleted = deleted
	_, err = r.SaveSlip(ctx, s)
	return err
}

func (r *SQLiteRepository) ListSlips(ctx context.Context, filter ListFilter) ([]Slip, error) {
	var (
		where []string
		args  []interface{}
	)
	if !filter.IncludeDeleted {
		where = append(where, "deleted = 0")
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	query := "SELECT id, body FROM slips"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list slips", Err: err}
	}
	defer rows.Close()

	var out []Slip
	for rows.Next() {
		var (
			id   string
			body []byte
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, &domain.PersistenceError{Op: "list slips", Err: err}
		}
		s, err := decodeSlip(id, body)
		if err != nil {
			r.log.Warn().Err(err).Str("slip_id", id).Msg("Skipping unreadable slip row")
			continue
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "list slips", Err: err}
	}
	return out, nil
}

func decodeSlip(id string, body []byte) (Slip, error) {
	var s Slip
	if err := msgpack.Unmarshal(body, &s); err != nil {
		return Slip{}, &domain.PersistenceError{Op: "decode slip", ID: id, Err: fmt.Errorf("msgpack: %w", err)}
	}
	// Rows written before the status enum was closed may carry legacy text.
	if status, err := ParseStatus(string(s.Status)); err == nil {
		s.Status = status
	}
	return s, nil
}
