package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/evroam/roaminghub/core/collaborator"
	"github.com/evroam/roaminghub/core/metrics"
	"github.com/evroam/roaminghub/core/model"
	"github.com/evroam/roaminghub/core/reservation"
	"github.com/evroam/roaminghub/core/result"
	"github.com/evroam/roaminghub/core/session"
)

// recordingSink captures sink traffic for metric assertions.
type recordingSink struct {
	mu          sync.Mutex
	operations  []metrics.OperationRecord
	delegations []metrics.DelegationRecord
}

func (s *recordingSink) RecordOperation(recs []metrics.OperationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operations = append(s.operations, recs...)
	return nil
}

func (s *recordingSink) RecordDelegation(recs []metrics.DelegationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delegations = append(s.delegations, recs...)
	return nil
}

func (s *recordingSink) delegationFor(collab string) (metrics.DelegationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.delegations {
		if r.Collaborator == collab {
			return r, true
		}
	}
	return metrics.DelegationRecord{}, false
}

// fake is a scriptable collaborator. Unset hooks answer Success; err wins over
// everything. Calls are recorded in order for routing assertions.
type fake struct {
	id    string
	role  collaborator.Role
	delay time.Duration
	err   error

	reserveFn   func(model.ReserveRequest) collaborator.ReserveOutcome
	cancelFn    func(model.CancelReservationRequest) result.Result
	startFn     func(model.RemoteStartRequest) collaborator.RemoteStartOutcome
	stopFn      func(model.RemoteStopRequest) collaborator.RemoteStopOutcome
	authStartFn func(model.AuthorizeStartRequest) collaborator.AuthorizeOutcome
	authStopFn  func(model.AuthorizeStopRequest) collaborator.AuthorizeOutcome
	cdrFn       func([]model.ChargeDetailRecord) (map[string]result.Result, error)

	mu    sync.Mutex
	calls []string
}

func (f *fake) ID() string                { return f.id }
func (f *fake) Role() collaborator.Role   { return f.role }
func (f *fake) record(op string)          { f.mu.Lock(); f.calls = append(f.calls, op); f.mu.Unlock() }
func (f *fake) callCount(op string) (n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return
}

func (f *fake) wait(ctx context.Context) error {
	if f.delay <= 0 {
		return nil
	}
	select {
	case <-time.After(f.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fake) Reserve(ctx context.Context, req model.ReserveRequest) (collaborator.ReserveOutcome, error) {
	f.record("Reserve")
	if err := f.wait(ctx); err != nil {
		return collaborator.ReserveOutcome{}, err
	}
	if f.err != nil {
		return collaborator.ReserveOutcome{}, f.err
	}
	if f.reserveFn != nil {
		return f.reserveFn(req), nil
	}
	return collaborator.ReserveOutcome{Result: result.Success(f.id, 0)}, nil
}

func (f *fake) CancelReservation(ctx context.Context, req model.CancelReservationRequest) (result.Result, error) {
	f.record("CancelReservation")
	if err := f.wait(ctx); err != nil {
		return result.Result{}, err
	}
	if f.err != nil {
		return result.Result{}, f.err
	}
	if f.cancelFn != nil {
		return f.cancelFn(req), nil
	}
	return result.Success(f.id, 0), nil
}

func (f *fake) RemoteStart(ctx context.Context, req model.RemoteStartRequest) (collaborator.RemoteStartOutcome, error) {
	f.record("RemoteStart")
	if err := f.wait(ctx); err != nil {
		return collaborator.RemoteStartOutcome{}, err
	}
	if f.err != nil {
		return collaborator.RemoteStartOutcome{}, f.err
	}
	if f.startFn != nil {
		return f.startFn(req), nil
	}
	return collaborator.RemoteStartOutcome{Result: result.Success(f.id, 0), SessionID: req.SessionID}, nil
}

func (f *fake) RemoteStop(ctx context.Context, req model.RemoteStopRequest) (collaborator.RemoteStopOutcome, error) {
	f.record("RemoteStop")
	if err := f.wait(ctx); err != nil {
		return collaborator.RemoteStopOutcome{}, err
	}
	if f.err != nil {
		return collaborator.RemoteStopOutcome{}, f.err
	}
	if f.stopFn != nil {
		return f.stopFn(req), nil
	}
	return collaborator.RemoteStopOutcome{Result: result.Success(f.id, 0)}, nil
}

func (f *fake) AuthorizeStart(ctx context.Context, req model.AuthorizeStartRequest) (collaborator.AuthorizeOutcome, error) {
	f.record("AuthorizeStart")
	if err := f.wait(ctx); err != nil {
		return collaborator.AuthorizeOutcome{}, err
	}
	if f.err != nil {
		return collaborator.AuthorizeOutcome{}, f.err
	}
	if f.authStartFn != nil {
		return f.authStartFn(req), nil
	}
	return collaborator.AuthorizeOutcome{Result: result.Authorized(f.id, 0)}, nil
}

func (f *fake) AuthorizeStop(ctx context.Context, req model.AuthorizeStopRequest) (collaborator.AuthorizeOutcome, error) {
	f.record("AuthorizeStop")
	if err := f.wait(ctx); err != nil {
		return collaborator.AuthorizeOutcome{}, err
	}
	if f.err != nil {
		return collaborator.AuthorizeOutcome{}, f.err
	}
	if f.authStopFn != nil {
		return f.authStopFn(req), nil
	}
	return collaborator.AuthorizeOutcome{Result: result.Authorized(f.id, 0)}, nil
}

func (f *fake) SendChargeDetailRecords(ctx context.Context, cdrs []model.ChargeDetailRecord) (map[string]result.Result, error) {
	f.record("SendChargeDetailRecords")
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.cdrFn != nil {
		return f.cdrFn(cdrs)
	}
	out := make(map[string]result.Result, len(cdrs))
	for _, cdr := range cdrs {
		out[cdr.SessionID] = result.Success(f.id, 0)
	}
	return out, nil
}

// unknownLocation scripts every location-bound op to disown the location.
func unknownLocation(f *fake) *fake {
	f.reserveFn = func(model.ReserveRequest) collaborator.ReserveOutcome {
		return collaborator.ReserveOutcome{Result: result.UnknownLocation("not mine")}
	}
	f.startFn = func(model.RemoteStartRequest) collaborator.RemoteStartOutcome {
		return collaborator.RemoteStartOutcome{Result: result.UnknownLocation("not mine")}
	}
	return f
}

type fixture struct {
	dispatcher   *Dispatcher
	registry     *collaborator.Registry
	sessions     session.Store
	reservations reservation.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := collaborator.NewRegistry(0)
	sessions := session.NewMemoryStore()
	reservations := reservation.NewMemoryStore()
	d, err := NewDispatcher(reg, sessions, reservations, Config{}, nil, nil, nil)
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	return &fixture{dispatcher: d, registry: reg, sessions: sessions, reservations: reservations}
}

func testLocation() model.Location {
	return model.Location{OperatorID: "op-1", PoolID: "pool-1", StationID: "st-1", EVSEID: "evse-1"}
}
