package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/evroam/roaminghub/core/collaborator"
	"github.com/evroam/roaminghub/core/events"
	"github.com/evroam/roaminghub/core/model"
	"github.com/evroam/roaminghub/core/result"
	"github.com/evroam/roaminghub/core/session"

	"github.com/google/uuid"
)

// RemoteStart starts a charging session at the requested location. Routing is
// local-operator-first with priority-ordered CSO roaming fallback; the first
// collaborator not answering UnknownLocation settles the request. On a
// positive outcome the session is created exactly once and stamped with the
// collaborator that started it.
func (d *Dispatcher) RemoteStart(ctx context.Context, req model.RemoteStartRequest) result.Result {
	const op = "RemoteStart"
	started := time.Now()
	if req.Location.IsZero() {
		return d.finish(op, result.UnknownLocation("no location reference given"), started, 0)
	}
	if req.SessionID != "" {
		if exists, err := d.sessions.Exists(ctx, req.SessionID); err != nil {
			return d.finish(op, result.Error(err.Error(), "", 0), started, 0)
		} else if exists {
			return d.finish(op, result.InvalidSessionID("session "+req.SessionID+" already exists"), started, 0)
		}
	}
	if res, ok := d.outOfService(op); !ok {
		return d.finish(op, res, started, 0)
	}

	depth := 0
	if local, ok := d.registry.ResolveLocalOperator(req.Location.Refs()...); ok {
		depth++
		out := d.delegateStart(ctx, op, local, req, depth)
		if out.Kind != result.KindUnknownLocation {
			return d.finish(op, d.recordStart(ctx, req, out, local), started, depth)
		}
	}
	for _, p := range d.registry.RoamingProviders(collaborator.RoleCSORoaming) {
		select {
		case <-ctx.Done():
			return d.finish(op, result.Error(ctx.Err().Error(), "", 0), started, depth)
		default:
		}
		depth++
		out := d.delegateStart(ctx, op, p, req, depth)
		if out.Kind == result.KindUnknownLocation {
			continue
		}
		return d.finish(op, d.recordStart(ctx, req, out, p), started, depth)
	}
	return d.finish(op, result.UnknownLocation("no collaborator recognized the location"), started, depth)
}

func (d *Dispatcher) delegateStart(ctx context.Context, op string, c collaborator.Collaborator, req model.RemoteStartRequest, depth int) collaborator.RemoteStartOutcome {
	t0 := time.Now()
	out, err := c.RemoteStart(ctx, req)
	elapsed := time.Since(t0)
	if err != nil {
		out = collaborator.RemoteStartOutcome{Result: result.Error(err.Error(), c.ID(), elapsed)}
	}
	if out.Collaborator == "" {
		out.Collaborator = c.ID()
	}
	if out.Runtime == 0 {
		out.Runtime = elapsed
	}
	d.recordDelegation(op, c.ID(), out.Kind, depth, elapsed)
	return out
}

// recordStart materializes the session for a positive start outcome. Sessions
// are created exactly once: losing a creation race downgrades the outcome to
// InvalidSessionId even though a collaborator accepted the start.
func (d *Dispatcher) recordStart(ctx context.Context, req model.RemoteStartRequest, out collaborator.RemoteStartOutcome, c collaborator.Collaborator) result.Result {
	if out.Kind != result.KindSuccess && out.Kind != result.KindAsyncOperation && out.Kind != result.KindEnqueued {
		return out.Result
	}
	id := req.SessionID
	if id == "" {
		id = out.SessionID
	}
	if id == "" {
		id = uuid.NewString()
	}
	s := model.ChargingSession{
		ID:                     id,
		Location:               req.Location,
		StartIdentification:    req.Identification,
		StartProviderID:        req.ProviderID,
		RelayedByEMPProviderID: req.EMPRoamingProviderID,
		ReservationID:          req.ReservationID,
		ProductID:              req.ProductID,
		State:                  model.SessionStarted,
		StartedAt:              time.Now(),
	}
	if c.Role() == collaborator.RoleOperator {
		s.StartedByOperatorID = c.ID()
	} else {
		s.StartedByRoamingProviderID = c.ID()
	}
	if err := d.sessions.Create(ctx, &s); err != nil {
		if errors.Is(err, session.ErrExists) {
			return result.InvalidSessionID("session " + id + " already exists")
		}
		return result.Error(err.Error(), c.ID(), out.Runtime)
	}
	d.publish(events.SessionStartedEvent{
		SessionID:    id,
		Location:     req.Location,
		Collaborator: c.ID(),
		Outcome:      out.Kind,
		Time:         time.Now(),
	})
	d.logger.Infof("session %s started via %s (%s)", id, c.ID(), out.Kind)
	return out.Result
}

// RemoteStop ends a charging session. The collaborator recorded as having
// started the session is preferred; when it is unavailable or the session is
// unknown, every operator and then every CSO roaming provider is probed in
// order until one recognizes the session id.
func (d *Dispatcher) RemoteStop(ctx context.Context, req model.RemoteStopRequest) result.Result {
	const op = "RemoteStop"
	started := time.Now()
	if res, ok := d.outOfService(op); !ok {
		return d.finish(op, res, started, 0)
	}
	if req.SessionID == "" {
		return d.finish(op, result.InvalidSessionID("no session id given"), started, 0)
	}

	stored, err := d.sessions.Get(ctx, req.SessionID)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return d.finish(op, result.Error(err.Error(), "", 0), started, 0)
	}
	if stored != nil && stored.Stopped() {
		return d.finish(op, result.AlreadyStopped(req.SessionID), started, 0)
	}

	tried := make(map[string]bool)
	var candidates []collaborator.Collaborator
	if stored != nil {
		if c, ok := d.registry.Lookup(stored.StartAffinity()); ok {
			candidates = append(candidates, c)
		}
	}
	candidates = append(candidates, d.registry.Operators()...)
	candidates = append(candidates, d.registry.RoamingProviders(collaborator.RoleCSORoaming)...)

	depth := 0
	final := result.InvalidSessionID("no collaborator recognized session " + req.SessionID)
	var cdr *model.ChargeDetailRecord
	for _, c := range candidates {
		if tried[c.ID()] {
			continue
		}
		tried[c.ID()] = true
		select {
		case <-ctx.Done():
			return d.finish(op, result.Error(ctx.Err().Error(), "", 0), started, depth)
		default:
		}
		depth++
		t0 := time.Now()
		out, err := c.RemoteStop(ctx, req)
		elapsed := time.Since(t0)
		if err != nil {
			out = collaborator.RemoteStopOutcome{Result: result.Error(err.Error(), c.ID(), elapsed)}
		}
		if out.Collaborator == "" {
			out.Collaborator = c.ID()
		}
		d.recordDelegation(op, c.ID(), out.Kind, depth, elapsed)
		if out.Kind == result.KindInvalidSessionID {
			continue
		}
		final = out.Result
		cdr = out.CDR
		break
	}

	d.recordStop(ctx, req, final)
	if cdr != nil {
		d.logger.Debugf("stop of %s carried a CDR, forwarding to settlement", req.SessionID)
		d.SendChargeDetailRecords(ctx, []model.ChargeDetailRecord{*cdr})
	}
	return d.finish(op, final, started, depth)
}

// recordStop stores the stop outcome against the session regardless of which
// branch produced it. The stop timestamp is only set for positive outcomes so
// that failed stops stay retryable.
func (d *Dispatcher) recordStop(ctx context.Context, req model.RemoteStopRequest, res result.Result) {
	if exists, err := d.sessions.Exists(ctx, req.SessionID); err == nil && !exists && !res.Kind.IsPositive() {
		// Nothing to record against: the session was never known here and no
		// collaborator stopped anything.
		return
	}
	stopper, ok := d.registry.Lookup(res.Collaborator)
	err := d.sessions.MutateStart(ctx, req.SessionID, func(s *model.ChargingSession) {
		s.StopIdentification = req.Identification
		if req.ProviderID != "" {
			s.StopProviderID = req.ProviderID
		}
		if ok {
			if stopper.Role() == collaborator.RoleOperator {
				s.StoppedByOperatorID = stopper.ID()
				s.StoppedByRoamingProviderID = ""
			} else {
				s.StoppedByRoamingProviderID = stopper.ID()
				s.StoppedByOperatorID = ""
			}
		}
		if res.Kind.IsPositive() && s.StoppedAt.IsZero() {
			s.StoppedAt = time.Now()
			s.State = model.SessionStopped
		}
	})
	if err != nil {
		d.logger.Errorf("stop outcome for %s not recorded: %v", req.SessionID, err)
		return
	}
	d.publish(events.SessionStoppedEvent{
		SessionID:    req.SessionID,
		Collaborator: res.Collaborator,
		Outcome:      res.Kind,
		Time:         time.Now(),
	})
}
