package model

import "time"

// ReserveRequest asks for a capacity slot at a location.
type ReserveRequest struct {
	Location            Location
	Level               ReservationLevel
	StartTime           time.Time
	Duration            time.Duration
	ReservationID       string
	LinkedReservationID string
	ProviderID          string
	Identification      Identification
	ProductID           string
}

// CancelReservationRequest releases a held slot.
type CancelReservationRequest struct {
	ReservationID string
	Reason        CancelReservationReason
}

// RemoteStartRequest starts a charging session on behalf of a driver.
type RemoteStartRequest struct {
	Location       Location
	ProductID      string
	ReservationID  string
	SessionID      string
	ProviderID     string
	Identification Identification
	// EMPRoamingProviderID names the EMP roaming provider that relayed the
	// request, if the request did not originate locally.
	EMPRoamingProviderID string
}

// RemoteStopRequest ends a running charging session.
type RemoteStopRequest struct {
	SessionID string
	// KeepReservation asks the collaborator to keep the linked reservation
	// alive after the stop instead of releasing it.
	KeepReservation bool
	ProviderID      string
	Identification  Identification
}

// AuthorizeStartRequest asks whether the presented credential may start a
// session at the given location.
type AuthorizeStartRequest struct {
	Location       Location
	Identification Identification
	SessionID      string
	ProviderID     string
	ProductID      string
}

// AuthorizeStopRequest asks whether the presented credential may stop the
// given session.
type AuthorizeStopRequest struct {
	Location       Location
	Identification Identification
	SessionID      string
	ProviderID     string
}
