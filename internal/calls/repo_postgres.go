package calls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// PostgresRepo stores the call history in Postgres.
//
// Assumes table:
//   calls (call_id PK, workspace_id, user_id, contact_id, direction,
//          from_number, to_number, display_name, outcome, duration,
//          provider_call_id, recording_url, notes, started_at, ended_at,
//          created_at)
// with an index on (workspace_id, started_at DESC).

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const callColumns = `call_id, workspace_id, user_id, contact_id, direction, from_number, to_number,
display_name, outcome, duration, provider_call_id, recording_url, notes, started_at, ended_at, created_at`

func scanCall(row interface{ Scan(...any) error }) (Call, error) {
	var c Call
	err := row.Scan(
		&c.CallID,
		&c.WorkspaceID,
		&c.UserID,
		&c.ContactID,
		&c.Direction,
		&c.From,
		&c.To,
		&c.DisplayName,
		&c.Outcome,
		&c.DurationSeconds,
		&c.ProviderCallID,
		&c.RecordingURL,
		&c.Notes,
		&c.StartedAt,
		&c.EndedAt,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}
	return c, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, c Call) error {
	const q = `
INSERT INTO calls (` + callColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
`
	_, err := r.db.ExecContext(ctx, q,
		c.CallID,
		c.WorkspaceID,
		c.UserID,
		c.ContactID,
		c.Direction,
		c.From,
		c.To,
		c.DisplayName,
		c.Outcome,
		c.DurationSeconds,
		c.ProviderCallID,
		c.RecordingURL,
		c.Notes,
		c.StartedAt,
		c.EndedAt,
		c.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, workspaceID, callID string) (Call, error) {
	const q = `
SELECT ` + callColumns + `
FROM calls
WHERE workspace_id = $1 AND call_id = $2
`
	return scanCall(r.db.QueryRowContext(ctx, q, workspaceID, callID))
}

func (r *PostgresRepo) GetByProviderID(ctx context.Context, providerCallID string) (Call, error) {
	const q = `
SELECT ` + callColumns + `
FROM calls
WHERE provider_call_id = $1
LIMIT 1
`
	return scanCall(r.db.QueryRowContext(ctx, q, providerCallID))
}

func (r *PostgresRepo) List(ctx context.Context, workspaceID string, f Filter) ([]Call, error) {
	var (
		conds = []string{"workspace_id = $1"}
		args  = []any{workspaceID}
	)
	if f.ContactID != "" {
		args = append(args, f.ContactID)
		conds = append(conds, fmt.Sprintf("contact_id = $%d", len(args)))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.Outcome != "" {
		args = append(args, f.Outcome)
		conds = append(conds, fmt.Sprintf("outcome = $%d", len(args)))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		conds = append(conds, fmt.Sprintf("started_at >= $%d", len(args)))
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)

	q := fmt.Sprintf(`
SELECT `+callColumns+`
FROM calls
WHERE %s
ORDER BY started_at DESC
LIMIT $%d
`, strings.Join(conds, " AND "), len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) SetRecordingURL(ctx context.Context, workspaceID, callID, url string) error {
	const q = `
UPDATE calls SET recording_url = $3
WHERE workspace_id = $1 AND call_id = $2
`
	return execExpectingRow(ctx, r.db, q, workspaceID, callID, url)
}

func (r *PostgresRepo) SetNotes(ctx context.Context, workspaceID, callID, notes string) error {
	const q = `
UPDATE calls SET notes = $3
WHERE workspace_id = $1 AND call_id = $2
`
	return execExpectingRow(ctx, r.db, q, workspaceID, callID, notes)
}

func execExpectingRow(ctx context.Context, db *sql.DB, q string, args ...any) error {
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
