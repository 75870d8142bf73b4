package model

import "time"

// SessionState tracks the lifecycle of a charging session.
type SessionState int

const (
	SessionAuthorized SessionState = iota
	SessionStarted
	SessionStopped
	SessionSettled
)

// String returns a human-readable representation of the state.
func (s SessionState) String() string {
	switch s {
	case SessionAuthorized:
		return "authorized"
	case SessionStarted:
		return "started"
	case SessionStopped:
		return "stopped"
	case SessionSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// ChargingSession represents one charge attempt from authorization through
// settlement. The affinity fields record which collaborator handled each leg
// so that later stop and settlement calls are routed back consistently.
// Provider ids are back-references resolved lazily, never ownership edges.
type ChargingSession struct {
	ID       string   `json:"id"`
	Location Location `json:"location"`

	StartIdentification Identification `json:"start_identification,omitempty"`
	StopIdentification  Identification `json:"stop_identification,omitempty"`

	// Affinity: at most one of the StartedBy fields is set.
	StartedByOperatorID        string `json:"started_by_operator_id,omitempty"`
	StartedByRoamingProviderID string `json:"started_by_roaming_provider_id,omitempty"`
	// RelayedByEMPProviderID records the EMP roaming provider that relayed
	// the original start request, if any.
	RelayedByEMPProviderID string `json:"relayed_by_emp_provider_id,omitempty"`

	StoppedByOperatorID        string `json:"stopped_by_operator_id,omitempty"`
	StoppedByRoamingProviderID string `json:"stopped_by_roaming_provider_id,omitempty"`

	StartProviderID string `json:"start_provider_id,omitempty"`
	StopProviderID  string `json:"stop_provider_id,omitempty"`

	ReservationID string `json:"reservation_id,omitempty"`
	ProductID     string `json:"product_id,omitempty"`

	State        SessionState `json:"state"`
	AuthorizedAt time.Time    `json:"authorized_at,omitempty"`
	StartedAt    time.Time    `json:"started_at,omitempty"`
	StoppedAt    time.Time    `json:"stopped_at,omitempty"`

	CDR *ChargeDetailRecord `json:"cdr,omitempty"`
}

// Stopped reports whether the session bears a stop timestamp and is terminal.
func (s *ChargingSession) Stopped() bool {
	return !s.StoppedAt.IsZero()
}

// StartAffinity returns the id of the collaborator recorded as having
// authorized or started the session, if any.
func (s *ChargingSession) StartAffinity() string {
	if s.StartedByOperatorID != "" {
		return s.StartedByOperatorID
	}
	return s.StartedByRoamingProviderID
}
