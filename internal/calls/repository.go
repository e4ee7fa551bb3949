package calls

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("calls: not found")

// Repository is the persistence contract for the call history.
type Repository interface {
	Insert(ctx context.Context, c Call) error
	Get(ctx context.Context, workspaceID, callID string) (Call, error)
	// GetByProviderID resolves a call via the provider's identifier; used by
	// recording callbacks, which only know the CallSid.
	GetByProviderID(ctx context.Context, providerCallID string) (Call, error)
	List(ctx context.Context, workspaceID string, f Filter) ([]Call, error)
	SetRecordingURL(ctx context.Context, workspaceID, callID, url string) error
	SetNotes(ctx context.Context, workspaceID, callID, notes string) error
}
