// Package session owns ChargingSession records. The dispatcher holds only
// transient references during an in-flight operation; every durable mutation
// goes through a Store.
package session

import (
	"context"
	"errors"

	"github.com/evroam/roaminghub/core/model"
)

var (
	// ErrNotFound is returned when no session exists for the given id.
	ErrNotFound = errors.New("session: not found")
	// ErrExists is returned by Create when the id is already taken.
	ErrExists = errors.New("session: already exists")
)

// Store keeps charging sessions keyed by session id. Implementations must
// guarantee at most one live (non-terminated) session per id and serialize
// mutations per session id while allowing unrelated sessions to proceed
// independently.
type Store interface {
	// Get returns a copy of the session with the given id.
	Get(ctx context.Context, id string) (*model.ChargingSession, error)
	// Exists reports whether a session with the given id is stored.
	Exists(ctx context.Context, id string) (bool, error)
	// Create stores a new session; ErrExists if the id is taken.
	Create(ctx context.Context, s *model.ChargingSession) error
	// MutateStart applies fn to the session under the per-id lock, creating
	// the session first if absent.
	MutateStart(ctx context.Context, id string, fn func(*model.ChargingSession)) error
	// MutateStop applies fn to an existing session under the per-id lock.
	MutateStop(ctx context.Context, id string, fn func(*model.ChargingSession)) error
	// AttachCDR attaches the record to the session. The first successful
	// attach is authoritative: false is returned when a record is already
	// attached, and the stored record is left untouched.
	AttachCDR(ctx context.Context, id string, cdr model.ChargeDetailRecord) (bool, error)
	// List returns copies of all stored sessions in id order.
	List(ctx context.Context) ([]model.ChargingSession, error)
}
