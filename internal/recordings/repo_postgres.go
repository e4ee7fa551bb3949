package recordings

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo stores recordings in Postgres.
//
// Assumes table:
//   recordings (id PK, workspace_id, call_id, url, duration, reviewed,
//               reviewed_by, reviewed_at, notes, created_at)
// with an index on (workspace_id, reviewed, created_at DESC).

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const recordingColumns = `id, workspace_id, call_id, url, duration, reviewed, reviewed_by, reviewed_at, notes, created_at`

func scanRecording(row interface{ Scan(...any) error }) (Recording, error) {
	var (
		rec        Recording
		reviewedAt sql.NullTime
	)
	err := row.Scan(
		&rec.ID,
		&rec.WorkspaceID,
		&rec.CallID,
		&rec.URL,
		&rec.DurationSeconds,
		&rec.Reviewed,
		&rec.ReviewedBy,
		&reviewedAt,
		&rec.Notes,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Recording{}, ErrNotFound
		}
		return Recording{}, err
	}
	if reviewedAt.Valid {
		rec.ReviewedAt = reviewedAt.Time
	}
	return rec, nil
}

func nullTime(t sql.NullTime) any {
	if !t.Valid {
		return nil
	}
	return t.Time
}

func (r *PostgresRepo) Insert(ctx context.Context, rec Recording) error {
	const q = `
INSERT INTO recordings (` + recordingColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`
	_, err := r.db.ExecContext(ctx, q,
		rec.ID,
		rec.WorkspaceID,
		rec.CallID,
		rec.URL,
		rec.DurationSeconds,
		rec.Reviewed,
		rec.ReviewedBy,
		nullTime(sql.NullTime{Time: rec.ReviewedAt, Valid: !rec.ReviewedAt.IsZero()}),
		rec.Notes,
		rec.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) Update(ctx context.Context, rec Recording) error {
	const q = `
UPDATE recordings
SET reviewed = $3, reviewed_by = $4, reviewed_at = $5, notes = $6
WHERE workspace_id = $1 AND id = $2
`
	res, err := r.db.ExecContext(ctx, q,
		rec.WorkspaceID,
		rec.ID,
		rec.Reviewed,
		rec.ReviewedBy,
		nullTime(sql.NullTime{Time: rec.ReviewedAt, Valid: !rec.ReviewedAt.IsZero()}),
		rec.Notes,
	)
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

func (r *PostgresRepo) Get(ctx context.Context, workspaceID, id string) (Recording, error) {
	const q = `
SELECT ` + recordingColumns + `
FROM recordings
WHERE workspace_id = $1 AND id = $2
`
	return scanRecording(r.db.QueryRowContext(ctx, q, workspaceID, id))
}

func (r *PostgresRepo) List(ctx context.Context, workspaceID string, onlyUnreviewed bool) ([]Recording, error) {
	q := `
SELECT ` + recordingColumns + `
FROM recordings
WHERE workspace_id = $1
`
	if onlyUnreviewed {
		q += "AND reviewed = FALSE\n"
	}
	q += "ORDER BY created_at DESC\n"

	rows, err := r.db.QueryContext(ctx, q, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
