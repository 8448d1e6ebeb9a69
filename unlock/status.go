package unlock

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/DISTRHO/DISTRHO/unlock/statestore"
)

// Status holds the registration state of one product install and exposes
// the unlock operations. A product keeps a single Status around for its
// whole run; Status itself performs no locking, so concurrent unlock
// attempts are the owner's problem (last writer wins on the state).
type Status struct {
	cfg       LicenseConfig
	transport Transport
	state     *State
	log       zerolog.Logger
}

// StatusOption configures a Status.
type StatusOption func(*Status)

// WithTransport replaces the default HTTP transport for webserver
// unlocks. Mostly useful for tests and exotic server setups.
func WithTransport(t Transport) StatusOption {
	return func(s *Status) {
		s.transport = t
	}
}

// WithLogger enables structured logging of unlock activity. The default
// is a no-op logger.
func WithLogger(l zerolog.Logger) StatusOption {
	return func(s *Status) {
		s.log = l
	}
}

// NewStatus creates the unlock facade for a product, starting from the
// default (locked, unregistered) state. Call Load to pick up a previously
// saved state.
func NewStatus(cfg LicenseConfig, opts ...StatusOption) *Status {
	s := &Status{
		cfg:   cfg,
		state: &State{},
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.transport == nil {
		s.transport = NewHTTPTransport()
	}
	return s
}

// IsUnlocked reports whether the product has been authorized for this
// machine. Feature gates should call this directly; it is a trivial read.
func (s *Status) IsUnlocked() bool { return s.state.Unlocked() }

// UserEmail returns the registered user's email address, if known.
func (s *Status) UserEmail() string { return s.state.UserEmail() }

// SetUserEmail records the user's email so forms can be pre-filled.
// Optional; a successful webserver unlock stores the confirmed address
// itself.
func (s *Status) SetUserEmail(email string) { s.state.SetUserEmail(email) }

// ApplyKeyFile attempts an unlock with pasted or dropped key-file text.
// This is the offline path for machines without internet access.
//
// It returns true and flips the unlock state only when the whole pipeline
// passes: well-formed text, valid signature under the product key,
// matching product ID, and (if the key is machine-bound) a match against
// one of this machine's tokens. Any failure returns false and changes
// nothing; a key is never applied partially.
func (s *Status) ApplyKeyFile(content string) bool {
	payload, err := validateKeyFile(s.cfg, content)
	if err != nil {
		s.log.Warn().Err(err).Msg("key file rejected")
		return false
	}

	s.state.SetUnlocked(true)
	if payload.Email != "" {
		s.state.SetUserEmail(payload.Email)
	}
	s.log.Info().Msg("product unlocked via key file")
	return true
}

// Load restores the unlock state from a string previously produced by
// Save. Pass the empty string on first run; a corrupt or empty string
// yields the default locked state rather than an error.
func (s *Status) Load(encoded string) {
	s.state = DeserializeState(encoded)
}

// Save serializes the current state into an opaque string for the host
// to store in its persistent settings. Where that string lives is the
// host's business.
func (s *Status) Save() string {
	return s.state.Serialize()
}

// Restore loads the state for installID from a StateStore. A missing
// record is the normal first-run case and leaves the default state.
func (s *Status) Restore(ctx context.Context, store statestore.StateStore, installID string) error {
	encoded, err := store.Load(ctx, installID)
	if err != nil {
		return fmt.Errorf("load unlock state: %w", err)
	}
	s.Load(encoded)
	return nil
}

// Persist saves the current state for installID into a StateStore.
func (s *Status) Persist(ctx context.Context, store statestore.StateStore, installID string) error {
	if err := store.Save(ctx, installID, s.Save()); err != nil {
		return fmt.Errorf("save unlock state: %w", err)
	}
	return nil
}
