package persistence

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the requested state does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrSealBroken is returned when sealed state cannot be opened, which is
	// treated the same as an invalid session: fail closed.
	ErrSealBroken = errors.New("persistence: sealed state cannot be opened")
)

// SessionState is the durable client session: the auth token plus the
// serialized user, mirroring the two keys the web client kept in storage.
type SessionState struct {
	Token     string
	UserJSON  []byte
	UpdatedAt time.Time
}

// SessionStore persists the singleton session state. Written on login, read
// on startup, cleared on logout or auth failure.
type SessionStore interface {
	SaveSession(ctx context.Context, state SessionState) error
	LoadSession(ctx context.Context) (SessionState, error)
	ClearSession(ctx context.Context) error
}

// DraftCache keeps the last known server copy of shipment drafts so the
// wizard can resume offline-started sessions without refetching everything.
type DraftCache interface {
	PutDraft(ctx context.Context, id string, payload []byte, updatedAt time.Time) error
	GetDraft(ctx context.Context, id string) ([]byte, error)
	DeleteDraft(ctx context.Context, id string) error
}

// InvoiceCache keeps the last fetched invoice list for offline display.
type InvoiceCache interface {
	ReplaceInvoices(ctx context.Context, payload []byte, fetchedAt time.Time) error
	LoadInvoices(ctx context.Context) (payload []byte, fetchedAt time.Time, err error)
}
