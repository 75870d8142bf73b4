// Package reservation owns ChargingReservation records and their history.
package reservation

import (
	"context"
	"errors"

	"github.com/evroam/roaminghub/core/model"
)

// ErrNotFound is returned when no reservation exists for the given id.
var ErrNotFound = errors.New("reservation: not found")

// Store keeps reservations keyed by reservation id. Every Upsert appends a
// new version; GetLatest returns the most recent one.
type Store interface {
	// Get returns the latest version of the reservation.
	Get(ctx context.Context, id string) (*model.ChargingReservation, error)
	// GetLatest is an alias of Get kept for contract clarity.
	GetLatest(ctx context.Context, id string) (*model.ChargingReservation, error)
	// Upsert appends a new version of the reservation.
	Upsert(ctx context.Context, r *model.ChargingReservation) error
	// History returns all stored versions, oldest first.
	History(ctx context.Context, id string) ([]model.ChargingReservation, error)
	// List returns the latest version of every reservation in id order.
	List(ctx context.Context) ([]model.ChargingReservation, error)
}
