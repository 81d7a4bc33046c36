package policies

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

// SQLiteRepository stores policies in portfolio.db. Filterable columns are kept
// alongside a msgpack body holding the full record.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewSQLiteRepository creates a repository over the portfolio database.
func NewSQLiteRepository(db *sql.DB, log zerolog.Logger) *SQLiteRepository {
	return &SQLiteRepository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repo", "policies").Logger(),
	}
}

// GetPolicy loads one policy, deleted or not.
func (r *SQLiteRepository) GetPolicy(ctx context.Context, id string) (Policy, error) {
	var body []byte
	err := r.db.QueryRowContext(ctx, "SELECT body FROM policies WHERE id = ?", id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return Policy{}, &domain.NotFoundError{Kind: "policy", ID: id}
	}
	if err != nil {
		return Policy{}, &domain.PersistenceError{Op: "get policy", ID: id, Err: err}
	}
	return decodePolicy(id, body)
}

// SavePolicy inserts or replaces p, stamping CreatedAt on first save and UpdatedAt always.
func (r *SQLiteRepository) SavePolicy(ctx context.Context, p Policy) (Policy, error) {
	if p.ID == "" {
		return Policy{}, domain.NewValidationError("id", "is required")
	}
	now := r.now().UTC().Truncate(time.Second)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	body, err := msgpack.Marshal(&p)
	if err != nil {
		return Policy{}, &domain.PersistenceError{Op: "encode policy", ID: p.ID, Err: err}
	}

	err = database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO policies (id, reference, channel, status, currency, deleted, body, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				reference = excluded.reference,
				channel = excluded.channel,
				status = excluded.status,
				currency = excluded.currency,
				deleted = excluded.deleted,
				body = excluded.body,
				updated_at = excluded.updated_at`,
			p.ID, p.Reference, string(p.Channel), string(p.Status), string(p.Currency),
			boolToInt(p.Deleted), body, p.CreatedAt.Unix(), p.UpdatedAt.Unix(),
		)
		return err
	})
	if err != nil {
		return Policy{}, &domain.PersistenceError{Op: "save policy", ID: p.ID, Err: err}
	}

	r.log.Debug().Str("policy_id", p.ID).Str("status", string(p.Status)).Msg("Saved policy")
	return p, nil
}

// DeletePolicy soft-deletes a policy.
func (r *SQLiteRepository) DeletePolicy(ctx context.Context, id string) error {
	return r.setDeleted(ctx, id, true)
}

// RestorePolicy clears the soft-delete flag.
func (r *SQLiteRepository) RestorePolicy(ctx context.Context, id string) error {
	return r.setDeleted(ctx, id, false)
}

func (r *SQLiteRepository) setDeleted(ctx context.Context, id string, deleted bool) error {
	p, err := r.GetPolicy(ctx, id)
	if err != nil {
		return err
	}
	p.Deleted = deleted
	_, err = r.SavePolicy(ctx, p)
	return err
}

// ListPolicies returns matching policies ordered by creation time.
func (r *SQLiteRepository) ListPolicies(ctx context.Context, filter ListFilter) ([]Policy, error) {
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
	if filter.Channel != "" {
		where = append(where, "channel = ?")
		args = append(args, string(filter.Channel))
	}

	query := "SELECT id, body FROM policies"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list policies", Err: err}
	}
	defer rows.Close()

	var out []Policy
	for rows.Next() {
		var (
			id   string
			body []byte
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, &domain.PersistenceError{Op: "list policies", Err: err}
		}
		p, err := decodePolicy(id, body)
		if err != nil {
			r.log.Warn().Err(err).Str("policy_id", id).Msg("Skipping unreadable policy row")
			continue
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "list policies", Err: err}
	}
	return out, nil
}

func decodePolicy(id string, body []byte) (Policy, error) {
	var p Policy
	if err := msgpack.Unmarshal(body, &p); err != nil {
		return Policy{}, &domain.PersistenceError{Op: "decode policy", ID: id, Err: fmt.Errorf("msgpack: %w", err)}
	}
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
