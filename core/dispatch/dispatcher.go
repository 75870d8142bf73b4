// Package dispatch implements the roaming hub core: the routing of
// reservation, start, stop and authorization requests across a federation of
// collaborators, the session affinity that keeps a charge's stop and
// settlement on the collaborator that started it, and the settlement cascade
// for charge detail records without explicit routing.
package dispatch

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/evroam/roaminghub/core/collaborator"
	"github.com/evroam/roaminghub/core/logger"
	"github.com/evroam/roaminghub/core/metrics"
	"github.com/evroam/roaminghub/core/reservation"
	"github.com/evroam/roaminghub/core/result"
	"github.com/evroam/roaminghub/core/session"
	"github.com/evroam/roaminghub/internal/eventbus"
)

// Dispatcher routes requests to collaborators. It is reentrant and holds no
// long-lived locks; per-session exclusivity is the session store's job and
// registry ordering is the registry's.
type Dispatcher struct {
	registry     *collaborator.Registry
	sessions     session.Store
	reservations reservation.Store
	logger       logger.Logger
	metrics      metrics.Sink
	bus          eventbus.EventBus
	ledger       SettlementLedger
	filter       CDRFilter
	cfg          Config
	disabled     atomic.Bool
}

// NewDispatcher creates a new Dispatcher. The registry and both stores are
// mandatory; sink and bus may be nil.
func NewDispatcher(reg *collaborator.Registry, sessions session.Store, reservations reservation.Store, cfg Config, sink metrics.Sink, bus eventbus.EventBus, log logger.Logger) (*Dispatcher, error) {
	if reg == nil || sessions == nil || reservations == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewDispatcher")
	}
	cfg.SetDefaults()
	if log == nil {
		log = nopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	d := &Dispatcher{
		registry:     reg,
		sessions:     sessions,
		reservations: reservations,
		logger:       log,
		metrics:      sink,
		bus:          bus,
		ledger:       NopLedger{},
		cfg:          cfg,
	}
	d.disabled.Store(cfg.Disabled)
	return d, nil
}

// SetLedger configures the settlement ledger written after CDR delivery.
func (d *Dispatcher) SetLedger(l SettlementLedger) {
	if l == nil {
		l = NopLedger{}
	}
	d.ledger = l
}

// SetCDRFilter configures the veto hook applied before CDR resolution.
func (d *Dispatcher) SetCDRFilter(f CDRFilter) { d.filter = f }

// SetOperational flips the administrative kill-switch. When not operational,
// operations short-circuit to OutOfService without contacting collaborators.
func (d *Dispatcher) SetOperational(up bool) { d.disabled.Store(!up) }

// Operational reports the administrative state.
func (d *Dispatcher) Operational() bool { return !d.disabled.Load() }

// outOfService returns the kill-switch outcome, or ok=true when operational.
func (d *Dispatcher) outOfService(op string) (result.Result, bool) {
	if !d.disabled.Load() {
		return result.Result{}, true
	}
	d.logger.Warnf("%s rejected: dispatcher out of service", op)
	return result.OutOfService("dispatcher administratively out of service"), false
}

// finish records the aggregate outcome of one operation in the metric
// collectors and the configured sink.
func (d *Dispatcher) finish(op string, res result.Result, started time.Time, depth int) result.Result {
	if res.Runtime == 0 {
		res.Runtime = time.Since(started)
	}
	operationsTotal.WithLabelValues(op, res.Kind.String()).Inc()
	if depth > 0 {
		fallbackDepth.WithLabelValues(op).Observe(float64(depth))
	}
	if err := d.metrics.RecordOperation([]metrics.OperationRecord{{
		Operation:    op,
		Kind:         res.Kind,
		Collaborator: res.Collaborator,
		Runtime:      res.Runtime,
		Time:         time.Now(),
	}}); err != nil {
		d.logger.Errorf("metrics error: %v", err)
	}
	return res
}

// recordDelegation feeds per-delegated-call observability.
func (d *Dispatcher) recordDelegation(op, collab string, kind result.Kind, depth int, latency time.Duration) {
	delegationLatency.WithLabelValues(op).Observe(latency.Seconds())
	if rec, ok := d.metrics.(metrics.DelegationRecorder); ok {
		if err := rec.RecordDelegation([]metrics.DelegationRecord{{
			Operation:     op,
			Collaborator:  collab,
			Kind:          kind,
			FallbackDepth: depth,
			Latency:       latency,
			Time:          time.Now(),
		}}); err != nil {
			d.logger.Errorf("delegation metrics error: %v", err)
		}
	}
}

// publish puts an event on the bus if one is configured.
func (d *Dispatcher) publish(e eventbus.Event) {
	if d.bus != nil {
		d.bus.Publish(e)
	}
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
