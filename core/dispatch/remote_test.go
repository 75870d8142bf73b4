package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/evroam/roaminghub/core/collaborator"
	"github.com/evroam/roaminghub/core/model"
	"github.com/evroam/roaminghub/core/result"
)

func TestRemoteStartPrefersLocalOperator(t *testing.T) {
	f := newFixture(t)
	op := &fake{id: "op-1", role: collaborator.RoleOperator}
	cso := &fake{id: "cso-1", role: collaborator.RoleCSORoaming}
	_ = f.registry.RegisterOperator(op, testLocation().Refs()...)
	_ = f.registry.RegisterRoamingProvider(cso, 10)

	res := f.dispatcher.RemoteStart(context.Background(), model.RemoteStartRequest{
		Location:  testLocation(),
		SessionID: "s-1",
	})
	if res.Kind != result.KindSuccess {
		t.Fatalf("kind = %s", res.Kind)
	}
	if res.Collaborator != "op-1" {
		t.Errorf("collaborator = %s, want local operator", res.Collaborator)
	}
	if cso.callCount("RemoteStart") != 0 {
		t.Error("roaming fallback consulted even though the operator answered")
	}
}

func TestRemoteStartFallsBackInPriorityOrder(t *testing.T) {
	f := newFixture(t)
	first := unknownLocation(&fake{id: "cso-10", role: collaborator.RoleCSORoaming})
	second := unknownLocation(&fake{id: "cso-20", role: collaborator.RoleCSORoaming})
	third := &fake{id: "cso-30", role: collaborator.RoleCSORoaming}
	fourth := &fake{id: "cso-40", role: collaborator.RoleCSORoaming}
	_ = f.registry.RegisterRoamingProvider(second, 20)
	_ = f.registry.RegisterRoamingProvider(fourth, 40)
	_ = f.registry.RegisterRoamingProvider(first, 10)
	_ = f.registry.RegisterRoamingProvider(third, 30)

	res := f.dispatcher.RemoteStart(context.Background(), model.RemoteStartRequest{
		Location:  testLocation(),
		SessionID: "s-1",
	})
	if res.Kind != result.KindSuccess || res.Collaborator != "cso-30" {
		t.Fatalf("got %s via %s, want Success via cso-30", res.Kind, res.Collaborator)
	}
	// First recognizing provider settles the request; later ones stay untouched.
	if fourth.callCount("RemoteStart") != 0 {
		t.Error("cso-40 consulted after cso-30 settled the request")
	}
	if first.callCount("RemoteStart") != 1 || second.callCount("RemoteStart") != 1 {
		t.Error("lower-priority providers must be consulted first")
	}
}

func TestRemoteStartUnknownLocationEverywhere(t *testing.T) {
	f := newFixture(t)
	_ = f.registry.RegisterRoamingProvider(unknownLocation(&fake{id: "cso-1", role: collaborator.RoleCSORoaming}), 1)

	res := f.dispatcher.RemoteStart(context.Background(), model.RemoteStartRequest{Location: testLocation()})
	if res.Kind != result.KindUnknownLocation {
		t.Fatalf("kind = %s, want UnknownLocation", res.Kind)
	}
}

func TestRemoteStartRejectsEmptyLocation(t *testing.T) {
	f := newFixture(t)
	res := f.dispatcher.RemoteStart(context.Background(), model.RemoteStartRequest{})
	if res.Kind != result.KindUnknownLocation {
		t.Fatalf("kind = %s, want UnknownLocation", res.Kind)
	}
}

func TestRemoteStartDuplicateSessionID(t *testing.T) {
	f := newFixture(t)
	op := &fake{id: "op-1", role: collaborator.RoleOperator}
	_ = f.registry.RegisterOperator(op, testLocation().Refs()...)

	req := model.RemoteStartRequest{Location: testLocation(), SessionID: "dup"}
	if res := f.dispatcher.RemoteStart(context.Background(), req); res.Kind != result.KindSuccess {
		t.Fatalf("first start: %s", res.Kind)
	}
	res := f.dispatcher.RemoteStart(context.Background(), req)
	if res.Kind != result.KindInvalidSessionID {
		t.Fatalf("second start: %s, want InvalidSessionId", res.Kind)
	}
	if op.callCount("RemoteStart") != 1 {
		t.Error("duplicate start must not reach the operator")
	}
}

func TestConcurrentRemoteStartCreatesOneSession(t *testing.T) {
	f := newFixture(t)
	op := &fake{id: "op-1", role: collaborator.RoleOperator, delay: 5 * time.Millisecond}
	_ = f.registry.RegisterOperator(op, testLocation().Refs()...)

	const n = 16
	var wg sync.WaitGroup
	kinds := make(chan result.Kind, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := f.dispatcher.RemoteStart(context.Background(), model.RemoteStartRequest{
				Location:  testLocation(),
				SessionID: "contested",
			})
			kinds <- res.Kind
		}()
	}
	wg.Wait()
	close(kinds)

	succeeded := 0
	for k := range kinds {
		switch k {
		case result.KindSuccess:
			succeeded++
		case result.KindInvalidSessionID:
		default:
			t.Errorf("unexpected kind %s", k)
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d starts succeeded, want exactly 1", succeeded)
	}
	sessions, _ := f.sessions.List(context.Background())
	if len(sessions) != 1 {
		t.Fatalf("%d sessions stored, want 1", len(sessions))
	}
}

func TestRemoteStartStampsAffinity(t *testing.T) {
	f := newFixture(t)
	cso := &fake{id: "cso-1", role: collaborator.RoleCSORoaming}
	_ = f.registry.RegisterRoamingProvider(cso, 1)

	res := f.dispatcher.RemoteStart(context.Background(), model.RemoteStartRequest{
		Location:             testLocation(),
		SessionID:            "s-1",
		ProviderID:           "prov-1",
		EMPRoamingProviderID: "emp-relay",
	})
	if res.Kind != result.KindSuccess {
		t.Fatalf("kind = %s", res.Kind)
	}
	s, err := f.sessions.Get(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("session not stored: %v", err)
	}
	if s.StartedByRoamingProviderID != "cso-1" || s.StartedByOperatorID != "" {
		t.Errorf("affinity fields: %+v", s)
	}
	if s.RelayedByEMPProviderID != "emp-relay" {
		t.Errorf("relay not recorded: %q", s.RelayedByEMPProviderID)
	}
	if s.StartProviderID != "prov-1" {
		t.Errorf("start provider = %q", s.StartProviderID)
	}
	if s.State != model.SessionStarted {
		t.Errorf("state = %s", s.State)
	}
}

func TestRemoteStopRoutesToStartAffinityFirst(t *testing.T) {
	f := newFixture(t)
	starter := &fake{id: "op-1", role: collaborator.RoleOperator}
	other := &fake{id: "op-0", role: collaborator.RoleOperator}
	_ = f.registry.RegisterOperator(other)
	_ = f.registry.RegisterOperator(starter, testLocation().Refs()...)

	if res := f.dispatcher.RemoteStart(context.Background(), model.RemoteStartRequest{
		Location:  testLocation(),
		SessionID: "s-1",
	}); res.Kind != result.KindSuccess {
		t.Fatalf("start: %s", res.Kind)
	}

	res := f.dispatcher.RemoteStop(context.Background(), model.RemoteStopRequest{SessionID: "s-1"})
	if res.Kind != result.KindSuccess || res.Collaborator != "op-1" {
		t.Fatalf("got %s via %s, want Success via the starter", res.Kind, res.Collaborator)
	}
	// op-0 sorts before op-1 but affinity must win.
	if other.callCount("RemoteStop") != 0 {
		t.Error("non-affine operator consulted before the starter")
	}

	s, _ := f.sessions.Get(context.Background(), "s-1")
	if !s.Stopped() || s.State != model.SessionStopped {
		t.Errorf("session not marked stopped: %+v", s)
	}
	if s.StoppedByOperatorID != "op-1" {
		t.Errorf("stop affinity = %q", s.StoppedByOperatorID)
	}
}

func TestRemoteStopAlreadyStoppedShortCircuits(t *testing.T) {
	f := newFixture(t)
	op := &fake{id: "op-1", role: collaborator.RoleOperator}
	_ = f.registry.RegisterOperator(op, testLocation().Refs()...)

	_ = f.dispatcher.RemoteStart(context.Background(), model.RemoteStartRequest{Location: testLocation(), SessionID: "s-1"})
	if res := f.dispatcher.RemoteStop(context.Background(), model.RemoteStopRequest{SessionID: "s-1"}); res.Kind != result.KindSuccess {
		t.Fatalf("first stop: %s", res.Kind)
	}
	stops := op.callCount("RemoteStop")

	res := f.dispatcher.RemoteStop(context.Background(), model.RemoteStopRequest{SessionID: "s-1"})
	if res.Kind != result.KindAlreadyStopped {
		t.Fatalf("second stop: %s, want AlreadyStopped", res.Kind)
	}
	if op.callCount("RemoteStop") != stops {
		t.Error("already-stopped session must not be delegated again")
	}
}

func TestRemoteStopProbesWhenSessionUnknown(t *testing.T) {
	f := newFixture(t)
	ignorant := &fake{id: "op-a", role: collaborator.RoleOperator,
		stopFn: func(model.RemoteStopRequest) collaborator.RemoteStopOutcome {
			return collaborator.RemoteStopOutcome{Result: result.InvalidSessionID("never heard of it")}
		},
	}
	knower := &fake{id: "op-b", role: collaborator.RoleOperator}
	_ = f.registry.RegisterOperator(ignorant)
	_ = f.registry.RegisterOperator(knower)

	res := f.dispatcher.RemoteStop(context.Background(), model.RemoteStopRequest{SessionID: "foreign"})
	if res.Kind != result.KindSuccess || res.Collaborator != "op-b" {
		t.Fatalf("got %s via %s, want Success via op-b", res.Kind, res.Collaborator)
	}
}

func TestRemoteStopNobodyKnowsTheSession(t *testing.T) {
	f := newFixture(t)
	op := &fake{id: "op-1", role: collaborator.RoleOperator,
		stopFn: func(model.RemoteStopRequest) collaborator.RemoteStopOutcome {
			return collaborator.RemoteStopOutcome{Result: result.InvalidSessionID("nope")}
		},
	}
	_ = f.registry.RegisterOperator(op)

	res := f.dispatcher.RemoteStop(context.Background(), model.RemoteStopRequest{SessionID: "ghost"})
	if res.Kind != result.KindInvalidSessionID {
		t.Fatalf("kind = %s", res.Kind)
	}
	// A failed stop of an unknown session must not materialize a record.
	if exists, _ := f.sessions.Exists(context.Background(), "ghost"); exists {
		t.Error("ghost session materialized by a failed stop")
	}
}

func TestRemoteStopForwardsEagerCDRToSettlement(t *testing.T) {
	f := newFixture(t)
	op := &fake{id: "op-1", role: collaborator.RoleOperator}
	op.stopFn = func(req model.RemoteStopRequest) collaborator.RemoteStopOutcome {
		return collaborator.RemoteStopOutcome{
			Result: result.Success("op-1", 0),
			CDR: &model.ChargeDetailRecord{
				SessionID:            req.SessionID,
				EMPRoamingProviderID: "emp-1",
				EnergyKWh:            7.5,
			},
		}
	}
	emp := &fake{id: "emp-1", role: collaborator.RoleEMPRoaming}
	_ = f.registry.RegisterOperator(op, testLocation().Refs()...)
	_ = f.registry.RegisterRoamingProvider(emp, 1)

	_ = f.dispatcher.RemoteStart(context.Background(), model.RemoteStartRequest{Location: testLocation(), SessionID: "s-1"})
	res := f.dispatcher.RemoteStop(context.Background(), model.RemoteStopRequest{SessionID: "s-1"})
	if res.Kind != result.KindSuccess {
		t.Fatalf("stop: %s", res.Kind)
	}
	if emp.callCount("SendChargeDetailRecords") != 1 {
		t.Fatal("eager CDR not forwarded to its settlement target")
	}
	s, _ := f.sessions.Get(context.Background(), "s-1")
	if s.CDR == nil || s.CDR.EnergyKWh != 7.5 {
		t.Errorf("CDR not attached: %+v", s.CDR)
	}
}

func TestKillSwitchShortCircuitsOperations(t *testing.T) {
	f := newFixture(t)
	op := &fake{id: "op-1", role: collaborator.RoleOperator}
	_ = f.registry.RegisterOperator(op, testLocation().Refs()...)

	f.dispatcher.SetOperational(false)
	if f.dispatcher.Operational() {
		t.Fatal("dispatcher still operational")
	}

	start := f.dispatcher.RemoteStart(context.Background(), model.RemoteStartRequest{Location: testLocation()})
	stop := f.dispatcher.RemoteStop(context.Background(), model.RemoteStopRequest{SessionID: "s-1"})
	if start.Kind != result.KindOutOfService || stop.Kind != result.KindOutOfService {
		t.Fatalf("start=%s stop=%s, want OutOfService", start.Kind, stop.Kind)
	}
	if len(op.calls) != 0 {
		t.Error("collaborator contacted while out of service")
	}

	f.dispatcher.SetOperational(true)
	if res := f.dispatcher.RemoteStart(context.Background(), model.RemoteStartRequest{Location: testLocation(), SessionID: "s-2"}); res.Kind != result.KindSuccess {
		t.Fatalf("after re-enable: %s", res.Kind)
	}
}

func TestDelegationErrorBecomesErrorOutcome(t *testing.T) {
	f := newFixture(t)
	op := &fake{id: "op-1", role: collaborator.RoleOperator, err: context.DeadlineExceeded}
	_ = f.registry.RegisterOperator(op, testLocation().Refs()...)

	res := f.dispatcher.RemoteStart(context.Background(), model.RemoteStartRequest{Location: testLocation()})
	if res.Kind != result.KindError {
		t.Fatalf("kind = %s, want Error", res.Kind)
	}
	if res.Collaborator != "op-1" || res.Description == "" {
		t.Errorf("error outcome must name the collaborator and message: %+v", res)
	}
}

func TestNewDispatcherRejectsNilStores(t *testing.T) {
	reg := collaborator.NewRegistry(0)
	if _, err := NewDispatcher(nil, nil, nil, Config{}, nil, nil, nil); err == nil {
		t.Error("nil registry accepted")
	}
	if _, err := NewDispatcher(reg, nil, nil, Config{}, nil, nil, nil); err == nil {
		t.Error("nil session store accepted")
	}
}
