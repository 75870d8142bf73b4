// Package simulator provides an in-memory collaborator for demos and manual
// testing. It accepts every request after an optional artificial delay.
package simulator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evroam/roaminghub/core/collaborator"
	"github.com/evroam/roaminghub/core/model"
	"github.com/evroam/roaminghub/core/result"
)

// Collaborator is a canned implementation of collaborator.Collaborator. The
// zero Kind (Error) fields fall back to positive outcomes, so an empty
// Collaborator behaves as an always-succeeding backend.
type Collaborator struct {
	CollabID   string
	CollabRole collaborator.Role
	// Delay is applied before every reply.
	Delay time.Duration
	// AuthKind overrides the authorization outcome when non-zero.
	AuthKind result.Kind

	mu       sync.Mutex
	sessions map[string]time.Time
}

// New returns a simulator collaborator with the given identity.
func New(id string, role collaborator.Role) *Collaborator {
	return &Collaborator{CollabID: id, CollabRole: role, sessions: make(map[string]time.Time)}
}

func (c *Collaborator) ID() string              { return c.CollabID }
func (c *Collaborator) Role() collaborator.Role { return c.CollabRole }

func (c *Collaborator) wait(ctx context.Context) error {
	if c.Delay <= 0 {
		return nil
	}
	select {
	case <-time.After(c.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Collaborator) Reserve(ctx context.Context, req model.ReserveRequest) (collaborator.ReserveOutcome, error) {
	if err := c.wait(ctx); err != nil {
		return collaborator.ReserveOutcome{}, err
	}
	id := req.ReservationID
	if id == "" {
		id = uuid.NewString()
	}
	res := model.ChargingReservation{
		ID:             id,
		Location:       req.Location,
		Level:          req.Level,
		ProviderID:     req.ProviderID,
		Identification: req.Identification,
		CreatedAt:      time.Now(),
		StartTime:      req.StartTime,
		Duration:       req.Duration,
		State:          model.ReservationActive,
	}
	return collaborator.ReserveOutcome{
		Result:      result.Success(c.CollabID, c.Delay),
		Reservation: &res,
	}, nil
}

func (c *Collaborator) CancelReservation(ctx context.Context, req model.CancelReservationRequest) (result.Result, error) {
	if err := c.wait(ctx); err != nil {
		return result.Result{}, err
	}
	return result.Success(c.CollabID, c.Delay), nil
}

func (c *Collaborator) RemoteStart(ctx context.Context, req model.RemoteStartRequest) (collaborator.RemoteStartOutcome, error) {
	if err := c.wait(ctx); err != nil {
		return collaborator.RemoteStartOutcome{}, err
	}
	id := req.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	c.mu.Lock()
	c.sessions[id] = time.Now()
	c.mu.Unlock()
	return collaborator.RemoteStartOutcome{
		Result:    result.Success(c.CollabID, c.Delay),
		SessionID: id,
	}, nil
}

func (c *Collaborator) RemoteStop(ctx context.Context, req model.RemoteStopRequest) (collaborator.RemoteStopOutcome, error) {
	if err := c.wait(ctx); err != nil {
		return collaborator.RemoteStopOutcome{}, err
	}
	c.mu.Lock()
	started, known := c.sessions[req.SessionID]
	delete(c.sessions, req.SessionID)
	c.mu.Unlock()
	if !known {
		return collaborator.RemoteStopOutcome{
			Result: result.InvalidSessionID("session unknown here"),
		}, nil
	}
	cdr := model.ChargeDetailRecord{
		SessionID: req.SessionID,
		StartedAt: started,
		StoppedAt: time.Now(),
		EnergyKWh: time.Since(started).Hours() * 11, // pretend 11 kW steady draw
	}
	return collaborator.RemoteStopOutcome{
		Result: result.Success(c.CollabID, c.Delay),
		CDR:    &cdr,
	}, nil
}

func (c *Collaborator) authorize(ctx context.Context) (collaborator.AuthorizeOutcome, error) {
	if err := c.wait(ctx); err != nil {
		return collaborator.AuthorizeOutcome{}, err
	}
	kind := c.AuthKind
	if kind == result.KindError {
		kind = result.KindAuthorized
	}
	switch kind {
	case result.KindAuthorized:
		return collaborator.AuthorizeOutcome{
			Result:     result.Authorized(c.CollabID, c.Delay),
			SessionID:  uuid.NewString(),
			ProviderID: c.CollabID,
		}, nil
	case result.KindBlocked:
		return collaborator.AuthorizeOutcome{Result: result.Blocked(c.CollabID, c.Delay)}, nil
	default:
		return collaborator.AuthorizeOutcome{Result: result.NotAuthorized("token unknown", c.Delay)}, nil
	}
}

func (c *Collaborator) AuthorizeStart(ctx context.Context, req model.AuthorizeStartRequest) (collaborator.AuthorizeOutcome, error) {
	return c.authorize(ctx)
}

func (c *Collaborator) AuthorizeStop(ctx context.Context, req model.AuthorizeStopRequest) (collaborator.AuthorizeOutcome, error) {
	return c.authorize(ctx)
}

func (c *Collaborator) SendChargeDetailRecords(ctx context.Context, cdrs []model.ChargeDetailRecord) (map[string]result.Result, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	out := make(map[string]result.Result, len(cdrs))
	for _, cdr := range cdrs {
		out[cdr.SessionID] = result.Success(c.CollabID, c.Delay)
	}
	return out, nil
}
