// Package collaborator defines the shared capability surface the dispatcher
// delegates to, and the registry that orders the candidates.
//
// Operators, CSO roaming providers, EMP roaming providers and direct
// e-mobility providers all implement the same flat interface; there is no
// shared implementation, only a shared contract.
package collaborator

import (
	"context"

	"github.com/evroam/roaminghub/core/model"
	"github.com/evroam/roaminghub/core/result"
)

// Role classifies a collaborator.
type Role int

const (
	RoleOperator Role = iota
	RoleCSORoaming
	RoleEMPRoaming
	RoleProvider
)

// String returns a human-readable representation of the role.
func (r Role) String() string {
	switch r {
	case RoleOperator:
		return "operator"
	case RoleCSORoaming:
		return "cso_roaming_provider"
	case RoleEMPRoaming:
		return "emp_roaming_provider"
	case RoleProvider:
		return "provider"
	default:
		return "unknown"
	}
}

// ReserveOutcome carries the reservation minted by the collaborator, if any.
type ReserveOutcome struct {
	result.Result
	Reservation *model.ChargingReservation
}

// RemoteStartOutcome carries the session id minted by the collaborator, if it
// chose its own.
type RemoteStartOutcome struct {
	result.Result
	SessionID string
}

// RemoteStopOutcome carries the charge detail record produced by the stop, if
// the collaborator settles eagerly.
type RemoteStopOutcome struct {
	result.Result
	CDR *model.ChargeDetailRecord
}

// AuthorizeOutcome carries the authorization decision. SessionID is set when
// the collaborator minted a session id of its own; ProviderID names the
// e-mobility provider that holds the customer, when known.
type AuthorizeOutcome struct {
	result.Result
	SessionID  string
	ProviderID string
}

// Collaborator is the capability surface consumed by the dispatcher. Every
// method takes a context carrying the caller's deadline and cancellation
// signal; returned errors are caught at the dispatcher boundary and converted
// into Error outcomes, never propagated.
type Collaborator interface {
	ID() string
	Role() Role

	Reserve(ctx context.Context, req model.ReserveRequest) (ReserveOutcome, error)
	CancelReservation(ctx context.Context, req model.CancelReservationRequest) (result.Result, error)
	RemoteStart(ctx context.Context, req model.RemoteStartRequest) (RemoteStartOutcome, error)
	RemoteStop(ctx context.Context, req model.RemoteStopRequest) (RemoteStopOutcome, error)
	AuthorizeStart(ctx context.Context, req model.AuthorizeStartRequest) (AuthorizeOutcome, error)
	AuthorizeStop(ctx context.Context, req model.AuthorizeStopRequest) (AuthorizeOutcome, error)
	// SendChargeDetailRecords delivers a settlement batch and returns one
	// result per record, keyed by session id.
	SendChargeDetailRecords(ctx context.Context, cdrs []model.ChargeDetailRecord) (map[string]result.Result, error)
}
