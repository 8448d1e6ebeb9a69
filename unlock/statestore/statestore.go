// Package statestore provides database-backed storage for serialized
// unlock state, for hosts that keep their settings in a shared database
// rather than a local file.
package statestore

import (
	"context"
)

// StateStore persists the opaque unlock-state string per install.
// The string's contents are produced and consumed only by the unlock
// engine; stores must round-trip it byte for byte.
type StateStore interface {
	// Save creates or replaces the state for an install (upsert).
	Save(ctx context.Context, installID, state string) error

	// Load returns the state for an install. A missing record returns
	// ("", nil): the empty string is the engine's first-run sentinel,
	// not an error.
	Load(ctx context.Context, installID string) (string, error)

	// Delete removes the state for an install.
	Delete(ctx context.Context, installID string) error

	// Close releases any resources held by the store.
	Close(ctx context.Context) error
}
