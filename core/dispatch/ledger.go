package dispatch

import (
	"context"

	"github.com/evroam/roaminghub/core/model"
)

// SettlementLedger persists charge detail records after they were delivered
// to their settlement target. The postgres implementation lives under
// infra/store/postgres.
type SettlementLedger interface {
	RecordSettled(ctx context.Context, cdr model.ChargeDetailRecord, target string) error
}

// NopLedger discards settlement records.
type NopLedger struct{}

func (NopLedger) RecordSettled(context.Context, model.ChargeDetailRecord, string) error {
	return nil
}
