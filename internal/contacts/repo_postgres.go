package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"sales-crm/pkg/utils"
)

// PostgresRepo stores contacts in Postgres.
//
// Assumes table:
//   contacts (id PK, workspace_id, owner_user_id, first_name, last_name,
//             company, phone, email, lead_status, source, notes,
//             created_at, updated_at)
// with UNIQUE (workspace_id, phone).

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const contactColumns = `id, workspace_id, owner_user_id, first_name, last_name, company,
phone, email, lead_status, source, notes, created_at, updated_at`

func scanContact(row interface{ Scan(...any) error }) (Contact, error) {
	var c Contact
	err := row.Scan(
		&c.ID,
		&c.WorkspaceID,
		&c.OwnerUserID,
		&c.FirstName,
		&c.LastName,
		&c.Company,
		&c.Phone,
		&c.Email,
		&c.LeadStatus,
		&c.Source,
		&c.Notes,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Contact{}, ErrNotFound
		}
		return Contact{}, err
	}
	return c, nil
}

// Insert adds a contact, enforcing phone uniqueness inside the transaction
// rather than relying only on the constraint, so the caller gets a typed
// error instead of a driver-specific one.
func (r *PostgresRepo) Insert(ctx context.Context, c Contact) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		var exists bool
		const dup = `SELECT EXISTS (SELECT 1 FROM contacts WHERE workspace_id = $1 AND phone = $2)`
		if err := tx.QueryRowContext(ctx, dup, c.WorkspaceID, c.Phone).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrDuplicate
		}

		const q = `
INSERT INTO contacts (` + contactColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`
		_, err := tx.ExecContext(ctx, q,
			c.ID,
			c.WorkspaceID,
			c.OwnerUserID,
			c.FirstName,
			c.LastName,
			c.Company,
			c.Phone,
			c.Email,
			c.LeadStatus,
			c.Source,
			c.Notes,
			c.CreatedAt,
			c.UpdatedAt,
		)
		return err
	})
}

func (r *PostgresRepo) Update(ctx context.Context, c Contact) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		var exists bool
		const dup = `SELECT EXISTS (SELECT 1 FROM contacts WHERE workspace_id = $1 AND phone = $2 AND id <> $3)`
		if err := tx.QueryRowContext(ctx, dup, c.WorkspaceID, c.Phone, c.ID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrDuplicate
		}

		const q = `
UPDATE contacts SET
  owner_user_id = $3, first_name = $4, last_name = $5, company = $6,
  phone = $7, email = $8, lead_status = $9, source = $10, notes = $11,
  updated_at = $12
WHERE workspace_id = $1 AND id = $2
`
		res, err := tx.ExecContext(ctx, q,
			c.WorkspaceID,
			c.ID,
			c.OwnerUserID,
			c.FirstName,
			c.LastName,
			c.Company,
			c.Phone,
			c.Email,
			c.LeadStatus,
			c.Source,
			c.Notes,
			c.UpdatedAt,
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
	})
}

func (r *PostgresRepo) Delete(ctx context.Context, workspaceID, id string) error {
	const q = `DELETE FROM contacts WHERE workspace_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q, workspaceID, id)
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

func (r *PostgresRepo) Get(ctx context.Context, workspaceID, id string) (Contact, error) {
	const q = `
SELECT ` + contactColumns + `
FROM contacts
WHERE workspace_id = $1 AND id = $2
`
	return scanContact(r.db.QueryRowContext(ctx, q, workspaceID, id))
}

func (r *PostgresRepo) GetByPhone(ctx context.Context, workspaceID, phone string) (Contact, error) {
	const q = `
SELECT ` + contactColumns + `
FROM contacts
WHERE workspace_id = $1 AND phone = $2
`
	return scanContact(r.db.QueryRowContext(ctx, q, workspaceID, phone))
}

func (r *PostgresRepo) List(ctx context.Context, workspaceID string, qr Query) ([]Contact, error) {
	var (
		conds = []string{"workspace_id = $1"}
		args  = []any{workspaceID}
	)
	if qr.OwnerUserID != "" {
		args = append(args, qr.OwnerUserID)
		conds = append(conds, fmt.Sprintf("owner_user_id = $%d", len(args)))
	}
	if qr.LeadStatus != "" {
		args = append(args, qr.LeadStatus)
		conds = append(conds, fmt.Sprintf("lead_status = $%d", len(args)))
	}
	if s := strings.TrimSpace(qr.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR company ILIKE $%d OR phone ILIKE $%d OR email ILIKE $%d)",
			n, n, n, n, n))
	}
	limit := qr.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	limitIdx := len(args)
	args = append(args, qr.Offset)

	q := fmt.Sprintf(`
SELECT `+contactColumns+`
FROM contacts
WHERE %s
ORDER BY last_name, first_name
LIMIT $%d OFFSET $%d
`, strings.Join(conds, " AND "), limitIdx, len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
