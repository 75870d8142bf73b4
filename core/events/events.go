// Package events defines the payloads published on the event bus after the
// dispatcher applies a state transition. External notification components
// (MQTT fan-out, audit trails) subscribe to these instead of hooking into the
// dispatcher itself.
package events

import (
	"time"

	"github.com/evroam/roaminghub/core/model"
	"github.com/evroam/roaminghub/core/result"
)

// SessionStartedEvent is published when a session enters the started state.
type SessionStartedEvent struct {
	SessionID    string
	Location     model.Location
	Collaborator string
	Outcome      result.Kind
	Time         time.Time
}

// SessionStoppedEvent is published when a stop outcome is recorded.
type SessionStoppedEvent struct {
	SessionID    string
	Collaborator string
	Outcome      result.Kind
	Time         time.Time
}

// ReservationEvent is published when a reservation is created or canceled.
type ReservationEvent struct {
	ReservationID string
	State         model.ReservationState
	Collaborator  string
	Reason        model.CancelReservationReason
	Time          time.Time
}

// AuthorizationEvent is published when an authorization race settles.
type AuthorizationEvent struct {
	SessionID    string
	Collaborator string
	Outcome      result.Kind
	Latency      time.Duration
}

// CDRSettledEvent is published for each charge detail record delivered to its
// settlement target.
type CDRSettledEvent struct {
	SessionID    string
	Collaborator string
	Outcome      result.Kind
	Time         time.Time
}
