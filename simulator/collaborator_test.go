package simulator

import (
	"context"
	"testing"

	"github.com/evroam/roaminghub/core/collaborator"
	"github.com/evroam/roaminghub/core/model"
	"github.com/evroam/roaminghub/core/result"
)

func TestStartStopRoundTrip(t *testing.T) {
	c := New("sim-1", collaborator.RoleOperator)
	ctx := context.Background()

	start, err := c.RemoteStart(ctx, model.RemoteStartRequest{SessionID: "s-1"})
	if err != nil || start.Kind != result.KindSuccess {
		t.Fatalf("start: %v %s", err, start.Kind)
	}
	if start.SessionID != "s-1" {
		t.Errorf("session id = %s", start.SessionID)
	}

	stop, err := c.RemoteStop(ctx, model.RemoteStopRequest{SessionID: "s-1"})
	if err != nil || stop.Kind != result.KindSuccess {
		t.Fatalf("stop: %v %s", err, stop.Kind)
	}
	if stop.CDR == nil || stop.CDR.SessionID != "s-1" {
		t.Errorf("stop must carry a record: %+v", stop.CDR)
	}

	again, _ := c.RemoteStop(ctx, model.RemoteStopRequest{SessionID: "s-1"})
	if again.Kind != result.KindInvalidSessionID {
		t.Errorf("second stop: %s", again.Kind)
	}
}

func TestAuthKindOverride(t *testing.T) {
	c := New("sim-1", collaborator.RoleProvider)
	ctx := context.Background()

	out, _ := c.AuthorizeStart(ctx, model.AuthorizeStartRequest{})
	if out.Kind != result.KindAuthorized {
		t.Fatalf("default auth: %s", out.Kind)
	}

	c.AuthKind = result.KindBlocked
	out, _ = c.AuthorizeStart(ctx, model.AuthorizeStartRequest{})
	if out.Kind != result.KindBlocked {
		t.Fatalf("blocked override: %s", out.Kind)
	}
}

func TestCDRBatchAnswersEveryRecord(t *testing.T) {
	c := New("sim-1", collaborator.RoleEMPRoaming)
	out, err := c.SendChargeDetailRecords(context.Background(), []model.ChargeDetailRecord{
		{SessionID: "a"}, {SessionID: "b"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("results = %+v", out)
	}
}
