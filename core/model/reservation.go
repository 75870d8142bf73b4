package model

import "time"

// DefaultMaxReservationDuration caps how long a reservation may hold capacity
// unless a tighter bound is configured. Requested durations above the cap are
// clamped, not rejected.
const DefaultMaxReservationDuration = 15 * time.Minute

// ReservationState tracks the lifecycle of a reservation.
type ReservationState int

const (
	ReservationCreated ReservationState = iota
	ReservationActive
	ReservationCanceled
	ReservationExpired
)

// String returns a human-readable representation of the state.
func (s ReservationState) String() string {
	switch s {
	case ReservationCreated:
		return "created"
	case ReservationActive:
		return "active"
	case ReservationCanceled:
		return "canceled"
	case ReservationExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// CancelReservationReason codes why a reservation was released.
type CancelReservationReason int

const (
	CancelReasonUser CancelReservationReason = iota
	CancelReasonOperator
	CancelReasonSystemTimeout
	CancelReasonExpired
	CancelReasonOther
)

// String returns a human-readable representation of the reason.
func (r CancelReservationReason) String() string {
	switch r {
	case CancelReasonUser:
		return "user_request"
	case CancelReasonOperator:
		return "operator_request"
	case CancelReasonSystemTimeout:
		return "system_timeout"
	case CancelReasonExpired:
		return "expired"
	case CancelReasonOther:
		return "other"
	default:
		return "unknown"
	}
}

// ChargingReservation represents a held capacity slot. Affinity is mutually
// exclusive: either the operator that created it or the CSO roaming provider,
// never both.
type ChargingReservation struct {
	ID                  string           `json:"id"`
	LinkedReservationID string           `json:"linked_reservation_id,omitempty"`
	Level               ReservationLevel `json:"level"`
	Location            Location         `json:"location"`

	OperatorID        string `json:"operator_id,omitempty"`
	RoamingProviderID string `json:"roaming_provider_id,omitempty"`

	ProviderID     string         `json:"provider_id,omitempty"`
	Identification Identification `json:"identification,omitempty"`
	ProductID      string         `json:"product_id,omitempty"`

	CreatedAt time.Time     `json:"created_at"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`

	State        ReservationState        `json:"state"`
	CancelReason CancelReservationReason `json:"cancel_reason,omitempty"`
}

// ExpiresAt returns the instant the reservation lapses.
func (r ChargingReservation) ExpiresAt() time.Time {
	start := r.StartTime
	if start.IsZero() {
		start = r.CreatedAt
	}
	return start.Add(r.Duration)
}

// Affinity returns the id of the collaborator that created the reservation.
func (r ChargingReservation) Affinity() string {
	if r.OperatorID != "" {
		return r.OperatorID
	}
	return r.RoamingProviderID
}
