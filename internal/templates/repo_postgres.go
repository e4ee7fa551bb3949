package templates

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo stores templates in Postgres.
//
// Assumes table:
//   templates (id PK, workspace_id, name, channel, subject, body,
//              created_at, updated_at)
// with an index on (workspace_id, name).

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const templateColumns = `id, workspace_id, name, channel, subject, body, created_at, updated_at`

func scanTemplate(row interface{ Scan(...any) error }) (Template, error) {
	var t Template
	err := row.Scan(
		&t.ID,
		&t.WorkspaceID,
		&t.Name,
		&t.Channel,
		&t.Subject,
		&t.Body,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Template{}, ErrNotFound
		}
		return Template{}, err
	}
	return t, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, t Template) error {
	const q = `
INSERT INTO templates (` + templateColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	_, err := r.db.ExecContext(ctx, q,
		t.ID, t.WorkspaceID, t.Name, t.Channel, t.Subject, t.Body, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Update(ctx context.Context, t Template) error {
	const q = `
UPDATE templates
SET name = $3, channel = $4, subject = $5, body = $6, updated_at = $7
WHERE workspace_id = $1 AND id = $2
`
	return execExpectingRow(ctx, r.db, q,
		t.WorkspaceID, t.ID, t.Name, t.Channel, t.Subject, t.Body, t.UpdatedAt,
	)
}

func (r *PostgresRepo) Delete(ctx context.Context, workspaceID, id string) error {
	const q = `
DELETE FROM templates
WHERE workspace_id = $1 AND id = $2
`
	return execExpectingRow(ctx, r.db, q, workspaceID, id)
}

func (r *PostgresRepo) Get(ctx context.Context, workspaceID, id string) (Template, error) {
	const q = `
SELECT ` + templateColumns + `
FROM templates
WHERE workspace_id = $1 AND id = $2
`
	return scanTemplate(r.db.QueryRowContext(ctx, q, workspaceID, id))
}

func (r *PostgresRepo) List(ctx context.Context, workspaceID string) ([]Template, error) {
	const q = `
SELECT ` + templateColumns + `
FROM templates
WHERE workspace_id = $1
ORDER BY name
`
	rows, err := r.db.QueryContext(ctx, q, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
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
