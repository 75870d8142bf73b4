package dispatch

import (
	"context"
	"time"

	"github.com/evroam/roaminghub/core/collaborator"
	"github.com/evroam/roaminghub/core/events"
	"github.com/evroam/roaminghub/core/model"
	"github.com/evroam/roaminghub/core/result"

	"github.com/google/uuid"
)

// authCandidates returns the collaborators consulted for an authorization
// decision: the operator owning the location (if resolvable), EMP roaming
// providers in priority order, and every directly-registered provider.
func (d *Dispatcher) authCandidates(loc model.Location) []collaborator.Collaborator {
	var out []collaborator.Collaborator
	seen := make(map[string]bool)
	if op, ok := d.registry.ResolveLocalOperator(loc.Refs()...); ok {
		out = append(out, op)
		seen[op.ID()] = true
	}
	for _, p := range d.registry.RoamingProviders(collaborator.RoleEMPRoaming) {
		if !seen[p.ID()] {
			out = append(out, p)
			seen[p.ID()] = true
		}
	}
	for _, p := range d.registry.DirectProviders() {
		if !seen[p.ID()] {
			out = append(out, p)
			seen[p.ID()] = true
		}
	}
	return out
}

// race fans the call out to all candidates concurrently and returns the first
// outcome whose kind is Authorized or Blocked. Remaining calls are abandoned
// via context cancellation. When nothing qualifies before the timeout, a
// NotAuthorized outcome is synthesized.
func (d *Dispatcher) race(ctx context.Context, op string, candidates []collaborator.Collaborator, call func(context.Context, collaborator.Collaborator) (collaborator.AuthorizeOutcome, error)) collaborator.AuthorizeOutcome {
	started := time.Now()
	if len(candidates) == 0 {
		return collaborator.AuthorizeOutcome{Result: result.NotAuthorized("no authorization-capable collaborator registered", time.Since(started))}
	}
	raceCtx, cancel := context.WithTimeout(ctx, d.cfg.AuthTimeout())
	defer cancel()

	outcomes := make(chan collaborator.AuthorizeOutcome, len(candidates))
	for _, c := range candidates {
		go func(c collaborator.Collaborator) {
			t0 := time.Now()
			out, err := call(raceCtx, c)
			elapsed := time.Since(t0)
			if err != nil {
				out = collaborator.AuthorizeOutcome{Result: result.Error(err.Error(), c.ID(), elapsed)}
			}
			if out.Collaborator == "" {
				out.Collaborator = c.ID()
			}
			if out.Runtime == 0 {
				out.Runtime = elapsed
			}
			d.recordDelegation(op, c.ID(), out.Kind, 0, elapsed)
			outcomes <- out
		}(c)
	}

	pending := len(candidates)
	for pending > 0 {
		select {
		case out := <-outcomes:
			pending--
			if out.Kind == result.KindAuthorized || out.Kind == result.KindBlocked {
				return out
			}
		case <-raceCtx.Done():
			return collaborator.AuthorizeOutcome{Result: result.NotAuthorized("no authorization decision before timeout", time.Since(started))}
		}
	}
	return collaborator.AuthorizeOutcome{Result: result.NotAuthorized("no collaborator authorized the request", time.Since(started))}
}

// AuthorizeStart decides whether the presented credential may start a session.
// Any single affirmative collaborator response is authoritative, so all
// candidates are raced concurrently instead of probed in order. On an
// authorized outcome a session is materialized in the authorized state.
func (d *Dispatcher) AuthorizeStart(ctx context.Context, req model.AuthorizeStartRequest) result.Result {
	const op = "AuthorizeStart"
	started := time.Now()
	if res, ok := d.outOfService(op); !ok {
		return d.finish(op, res, started, 0)
	}
	if req.Identification.IsZero() {
		return d.finish(op, result.NotAuthorized("no identification presented", 0), started, 0)
	}

	out := d.race(ctx, op, d.authCandidates(req.Location), func(ctx context.Context, c collaborator.Collaborator) (collaborator.AuthorizeOutcome, error) {
		return c.AuthorizeStart(ctx, req)
	})
	if out.Kind == result.KindAuthorized {
		d.materializeAuthorizedSession(ctx, req, out)
	}
	d.publish(events.AuthorizationEvent{
		SessionID:    req.SessionID,
		Collaborator: out.Collaborator,
		Outcome:      out.Kind,
		Latency:      out.Runtime,
	})
	return d.finish(op, out.Result, started, 0)
}

// materializeAuthorizedSession creates the session for an authorized start,
// minting an id when neither the caller nor the collaborator supplied one.
func (d *Dispatcher) materializeAuthorizedSession(ctx context.Context, req model.AuthorizeStartRequest, out collaborator.AuthorizeOutcome) {
	id := req.SessionID
	if id == "" {
		id = out.SessionID
	}
	if id == "" {
		id = uuid.NewString()
	}
	providerID := out.ProviderID
	if providerID == "" {
		providerID = req.ProviderID
	}
	err := d.sessions.MutateStart(ctx, id, func(s *model.ChargingSession) {
		s.Location = req.Location
		s.StartIdentification = req.Identification
		s.StartProviderID = providerID
		s.ProductID = req.ProductID
		if s.AuthorizedAt.IsZero() {
			s.AuthorizedAt = time.Now()
			s.State = model.SessionAuthorized
		}
		if c, ok := d.registry.Lookup(out.Collaborator); ok && c.Role() == collaborator.RoleOperator {
			s.StartedByOperatorID = c.ID()
		} else if out.Collaborator != "" {
			s.StartedByRoamingProviderID = out.Collaborator
		}
	})
	if err != nil {
		d.logger.Errorf("authorized session %s not persisted: %v", id, err)
		return
	}
	d.logger.Infof("session %s authorized by %s", id, out.Collaborator)
}

// AuthorizeStop decides whether the presented credential may stop the given
// session. The provider recorded on the session's start side is asked first;
// only an inconclusive answer falls through to the full race.
func (d *Dispatcher) AuthorizeStop(ctx context.Context, req model.AuthorizeStopRequest) result.Result {
	const op = "AuthorizeStop"
	started := time.Now()
	if res, ok := d.outOfService(op); !ok {
		return d.finish(op, res, started, 0)
	}

	if s, err := d.sessions.Get(ctx, req.SessionID); err == nil && s.StartProviderID != "" {
		if c, ok := d.registry.Lookup(s.StartProviderID); ok {
			t0 := time.Now()
			out, cerr := c.AuthorizeStop(ctx, req)
			elapsed := time.Since(t0)
			if cerr == nil && (out.Kind == result.KindAuthorized || out.Kind == result.KindBlocked) {
				if out.Collaborator == "" {
					out.Collaborator = c.ID()
				}
				d.recordDelegation(op, c.ID(), out.Kind, 1, elapsed)
				return d.finish(op, out.Result, started, 1)
			}
			if cerr != nil {
				d.logger.Warnf("start-side provider %s inconclusive for stop of %s: %v", c.ID(), req.SessionID, cerr)
			}
			d.recordDelegation(op, c.ID(), out.Kind, 1, elapsed)
		}
	}

	out := d.race(ctx, op, d.authCandidates(req.Location), func(ctx context.Context, c collaborator.Collaborator) (collaborator.AuthorizeOutcome, error) {
		return c.AuthorizeStop(ctx, req)
	})
	d.publish(events.AuthorizationEvent{
		SessionID:    req.SessionID,
		Collaborator: out.Collaborator,
		Outcome:      out.Kind,
		Latency:      out.Runtime,
	})
	return d.finish(op, out.Result, started, 0)
}
