package contacts

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("contacts: not found")
	ErrDuplicate = errors.New("contacts: phone already exists in workspace")
)

// Repository is the persistence contract for contacts.
//
// Uniqueness invariant: one phone number per workspace.
type Repository interface {
	Insert(ctx context.Context, c Contact) error
	Update(ctx context.Context, c Contact) error
	Delete(ctx context.Context, workspaceID, id string) error
	Get(ctx context.Context, workspaceID, id string) (Contact, error)
	GetByPhone(ctx context.Context, workspaceID, phone string) (Contact, error)
	List(ctx context.Context, workspaceID string, q Query) ([]Contact, error)
}
