package ticket

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a Backend when no document has been written yet.
var ErrNotFound = errors.New("ticket document not found")

// Backend persists the whole ticket document as one opaque blob.
type Backend interface {
	// Read returns the stored document or ErrNotFound.
	Read(ctx context.Context) ([]byte, error)
	// Write replaces the stored document.
	Write(ctx context.Context, data []byte) error
	// Quarantine sets unreadable bytes aside, stamped with at, and returns where they went.
	// After it returns, Read reports ErrNotFound until the next Write.
	Quarantine(ctx context.Context, data []byte, at time.Time) (string, error)
}
