package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends audit events to Postgres. No read path is exposed;
// audit queries happen through ops tooling, not the API.
//
// Assumes table:
//   audit_events (id PK, workspace_id, type, actor_user_id, actor_role,
//                 ip_address, contact_id, call_id, phone_number, message,
//                 metadata, created_at)
// with an index on (workspace_id, created_at DESC).

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (id, workspace_id, type, actor_user_id, actor_role,
ip_address, contact_id, call_id, phone_number, message, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.WorkspaceID,
		e.Type,
		e.ActorUserID,
		e.ActorRole,
		e.IPAddress,
		e.ContactID,
		e.CallID,
		e.PhoneNumber,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}
