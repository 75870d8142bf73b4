package dispatch

import (
	"context"
	"time"

	"github.com/evroam/roaminghub/core/collaborator"
	"github.com/evroam/roaminghub/core/events"
	"github.com/evroam/roaminghub/core/model"
	"github.com/evroam/roaminghub/core/result"
)

// Reserve holds a capacity slot at the requested location. The operator
// owning the location is consulted first; when it is unknown or disowns the
// location, CSO roaming providers are tried in ascending priority order until
// one recognizes it.
func (d *Dispatcher) Reserve(ctx context.Context, req model.ReserveRequest) result.Result {
	const op = "Reserve"
	started := time.Now()
	if res, ok := d.outOfService(op); !ok {
		return d.finish(op, res, started, 0)
	}
	if req.Location.IsZero() {
		return d.finish(op, result.UnknownLocation("no location reference given"), started, 0)
	}
	if max := d.cfg.MaxReservationDuration(); req.Duration > max {
		d.logger.Warnf("reservation duration %s clamped to %s", req.Duration, max)
		req.Duration = max
	}

	depth := 0
	if local, ok := d.registry.ResolveLocalOperator(req.Location.Refs()...); ok {
		depth++
		out := d.delegateReserve(ctx, op, local, req, depth)
		if out.Kind != result.KindUnknownLocation {
			if out.Kind.IsPositive() {
				d.persistReservation(ctx, req, out, local.ID(), "")
			}
			return d.finish(op, out.Result, started, depth)
		}
	}

	for _, p := range d.registry.RoamingProviders(collaborator.RoleCSORoaming) {
		select {
		case <-ctx.Done():
			return d.finish(op, result.Error(ctx.Err().Error(), "", 0), started, depth)
		default:
		}
		depth++
		out := d.delegateReserve(ctx, op, p, req, depth)
		if out.Kind == result.KindUnknownLocation {
			continue
		}
		if out.Kind.IsPositive() {
			d.persistReservation(ctx, req, out, "", p.ID())
		}
		return d.finish(op, out.Result, started, depth)
	}
	return d.finish(op, result.UnknownOperator("no charging station operator recognized the location"), started, depth)
}

func (d *Dispatcher) delegateReserve(ctx context.Context, op string, c collaborator.Collaborator, req model.ReserveRequest, depth int) collaborator.ReserveOutcome {
	t0 := time.Now()
	out, err := c.Reserve(ctx, req)
	elapsed := time.Since(t0)
	if err != nil {
		out = collaborator.ReserveOutcome{Result: result.Error(err.Error(), c.ID(), elapsed)}
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

// persistReservation stores the reservation tagged with the collaborator that
// granted it. Operator and roaming provider tags are mutually exclusive.
func (d *Dispatcher) persistReservation(ctx context.Context, req model.ReserveRequest, out collaborator.ReserveOutcome, operatorID, roamingID string) {
	res := out.Reservation
	if res == nil {
		res = &model.ChargingReservation{
			ID:                  req.ReservationID,
			LinkedReservationID: req.LinkedReservationID,
			Level:               req.Level,
			Location:            req.Location,
			ProviderID:          req.ProviderID,
			Identification:      req.Identification,
			ProductID:           req.ProductID,
			StartTime:           req.StartTime,
			Duration:            req.Duration,
		}
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now()
	}
	if res.Duration > d.cfg.MaxReservationDuration() {
		res.Duration = d.cfg.MaxReservationDuration()
	}
	res.OperatorID, res.RoamingProviderID = operatorID, roamingID
	res.State = model.ReservationCreated
	if err := d.reservations.Upsert(ctx, res); err != nil {
		d.logger.Errorf("reservation %s not persisted: %v", res.ID, err)
		return
	}
	d.publish(events.ReservationEvent{
		ReservationID: res.ID,
		State:         res.State,
		Collaborator:  res.Affinity(),
		Time:          time.Now(),
	})
}

// CancelReservation releases a held slot. The collaborator that created the
// reservation is preferred; remaining roaming providers are probed in
// priority order until one gives a conclusive answer.
func (d *Dispatcher) CancelReservation(ctx context.Context, req model.CancelReservationRequest) result.Result {
	const op = "CancelReservation"
	started := time.Now()
	if res, ok := d.outOfService(op); !ok {
		return d.finish(op, res, started, 0)
	}

	stored, err := d.reservations.GetLatest(ctx, req.ReservationID)
	if err != nil {
		// Unknown to the store: short-circuit without contacting anyone.
		return d.finish(op, result.UnknownReservationID(req.ReservationID), started, 0)
	}

	tried := make(map[string]bool)
	var candidates []collaborator.Collaborator
	if stored.OperatorID != "" {
		if c, ok := d.registry.Lookup(stored.OperatorID); ok {
			candidates = append(candidates, c)
		}
	}
	if stored.RoamingProviderID != "" {
		if c, ok := d.registry.Lookup(stored.RoamingProviderID); ok {
			candidates = append(candidates, c)
		}
	}
	candidates = append(candidates, d.registry.RoamingProviders(collaborator.RoleCSORoaming)...)

	depth := 0
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
		res, err := c.CancelReservation(ctx, req)
		elapsed := time.Since(t0)
		if err != nil {
			res = result.Error(err.Error(), c.ID(), elapsed)
		}
		if res.Collaborator == "" {
			res.Collaborator = c.ID()
		}
		d.recordDelegation(op, c.ID(), res.Kind, depth, elapsed)
		if res.Kind == result.KindUnknownLocation || res.Kind == result.KindUnknownReservationID {
			continue
		}
		if res.Kind.IsPositive() {
			d.markCanceled(ctx, stored, req.Reason)
		}
		return d.finish(op, res, started, depth)
	}
	return d.finish(op, result.UnknownReservationID(req.ReservationID), started, depth)
}

func (d *Dispatcher) markCanceled(ctx context.Context, r *model.ChargingReservation, reason model.CancelReservationReason) {
	canceled := *r
	canceled.State = model.ReservationCanceled
	canceled.CancelReason = reason
	if err := d.reservations.Upsert(ctx, &canceled); err != nil {
		d.logger.Errorf("reservation %s cancel not persisted: %v", r.ID, err)
		return
	}
	d.publish(events.ReservationEvent{
		ReservationID: r.ID,
		State:         model.ReservationCanceled,
		Collaborator:  r.Affinity(),
		Reason:        reason,
		Time:          time.Now(),
	})
}
