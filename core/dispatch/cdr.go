package dispatch

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/evroam/roaminghub/core/collaborator"
	"github.com/evroam/roaminghub/core/events"
	"github.com/evroam/roaminghub/core/metrics"
	"github.com/evroam/roaminghub/core/model"
	"github.com/evroam/roaminghub/core/result"
	"github.com/evroam/roaminghub/core/session"
)

// CDRFilter may veto individual charge detail records before resolution.
// Vetoed records are reported as Filtered and excluded from settlement.
type CDRFilter interface {
	Veto(cdr model.ChargeDetailRecord) []string
}

// CDRFilterFunc adapts a function to the CDRFilter interface.
type CDRFilterFunc func(model.ChargeDetailRecord) []string

func (f CDRFilterFunc) Veto(cdr model.ChargeDetailRecord) []string { return f(cdr) }

// CDRSettlement pairs one input record with its settlement outcome.
type CDRSettlement struct {
	SessionID string        `json:"session_id"`
	Outcome   result.Result `json:"outcome"`
}

// CDRSettlements holds the per-record outcomes of a settlement batch, in
// input order. A batch of N records always yields exactly N entries, even
// when the batch carries several records for the same session.
type CDRSettlements []CDRSettlement

// For returns the outcome of the first record in the batch carrying the
// given session id.
func (s CDRSettlements) For(sessionID string) (result.Result, bool) {
	for _, e := range s {
		if e.SessionID == sessionID {
			return e.Outcome, true
		}
	}
	return result.Result{}, false
}

// SendChargeDetailRecords resolves the settlement target of every record and
// delivers the records grouped per target in one batched call each. The
// returned list carries exactly one outcome per input record, in input order;
// records that received no answer are reconciled to an explicit Error. Only
// the first record per session id is settled: later records for the same
// session in one batch are rejected as duplicates.
func (d *Dispatcher) SendChargeDetailRecords(ctx context.Context, cdrs []model.ChargeDetailRecord) CDRSettlements {
	const op = "SendChargeDetailRecords"
	started := time.Now()
	outcomes := make([]result.Result, len(cdrs))
	settled := make([]bool, len(cdrs))

	if res, ok := d.outOfService(op); !ok {
		for i := range cdrs {
			outcomes[i], settled[i] = res, true
		}
		d.finish(op, res, started, 0)
		return settlements(cdrs, outcomes)
	}

	groups := make(map[string][]int)
	targets := make(map[string]collaborator.Collaborator)
	firstFor := make(map[string]int, len(cdrs))
	filtered := 0

	for i, cdr := range cdrs {
		if d.filter != nil {
			if reasons := d.filter.Veto(cdr); len(reasons) > 0 {
				outcomes[i], settled[i] = result.Filtered(strings.Join(reasons, "; ")), true
				filtered++
				continue
			}
		}
		// The first record for a session wins; later records in the same
		// batch conflict and must never be masked by the winner's outcome.
		if _, dup := firstFor[cdr.SessionID]; dup {
			outcomes[i], settled[i] = result.Error("duplicate record for session "+cdr.SessionID+" in batch", "", 0), true
			continue
		}
		firstFor[cdr.SessionID] = i
		target, res, ok := d.resolveCDR(ctx, cdr)
		if !ok {
			outcomes[i], settled[i] = res, true
			continue
		}
		groups[target.ID()] = append(groups[target.ID()], i)
		targets[target.ID()] = target
	}

	resolved := 0
	for _, indices := range groups {
		resolved += len(indices)
	}

	targetIDs := make([]string, 0, len(groups))
	for id := range groups {
		targetIDs = append(targetIDs, id)
	}
	sort.Strings(targetIDs)
	for _, id := range targetIDs {
		d.deliverBatch(ctx, targets[id], cdrs, groups[id], outcomes, settled)
	}

	// Reconciliation: every input record must have exactly one outcome.
	unresolved := 0
	for i, cdr := range cdrs {
		if !settled[i] {
			outcomes[i] = result.Error("no result received for session "+cdr.SessionID, "", 0)
		}
		if outcomes[i].Kind == result.KindUnknownSessionID {
			unresolved++
		}
	}
	for _, res := range outcomes {
		cdrRecordsTotal.WithLabelValues(res.Kind.String()).Inc()
	}

	if rec, ok := d.metrics.(metrics.SettlementRecorder); ok {
		if err := rec.RecordSettlement(metrics.SettlementRecord{
			BatchSize:  len(cdrs),
			Resolved:   resolved,
			Filtered:   filtered,
			Unresolved: unresolved,
			Time:       time.Now(),
		}); err != nil {
			d.logger.Errorf("settlement metrics error: %v", err)
		}
	}

	d.finish(op, result.Flatten(outcomes), started, len(groups))
	return settlements(cdrs, outcomes)
}

func settlements(cdrs []model.ChargeDetailRecord, outcomes []result.Result) CDRSettlements {
	out := make(CDRSettlements, len(cdrs))
	for i, cdr := range cdrs {
		out[i] = CDRSettlement{SessionID: cdr.SessionID, Outcome: outcomes[i]}
	}
	return out
}

// resolveCDR applies the resolution cascade to one record: explicit target,
// session affinity, credential probing. ok=false means the record is done
// (its result is final) and must not be grouped for delivery.
func (d *Dispatcher) resolveCDR(ctx context.Context, cdr model.ChargeDetailRecord) (collaborator.Collaborator, result.Result, bool) {
	// Tier 1: the record already names its settlement target.
	if cdr.EMPRoamingProviderID != "" {
		target, ok := d.registry.Lookup(cdr.EMPRoamingProviderID)
		if !ok {
			return nil, result.Error("settlement target "+cdr.EMPRoamingProviderID+" not registered", "", 0), false
		}
		if res, ok := d.attach(ctx, cdr); !ok {
			return nil, res, false
		}
		return target, result.Result{}, true
	}

	// Tier 2: the session remembers the EMP roaming provider that relayed
	// its start.
	if s, err := d.sessions.Get(ctx, cdr.SessionID); err == nil && s.RelayedByEMPProviderID != "" {
		if target, ok := d.registry.Lookup(s.RelayedByEMPProviderID); ok {
			return target, result.Result{}, true
		}
	}

	// Tier 3: probe direct providers with each credential variant, start
	// side before stop side.
	providers := d.registry.DirectProviders()
	for _, ident := range []model.Identification{cdr.StartIdentification, cdr.StopIdentification} {
		for _, variant := range ident.Variants() {
			for _, p := range providers {
				out, err := p.AuthorizeStart(ctx, model.AuthorizeStartRequest{
					Location:       cdr.Location,
					Identification: ident.Only(variant),
					SessionID:      cdr.SessionID,
				})
				if err != nil {
					d.logger.Debugf("cdr probe %s at %s: %v", variant, p.ID(), err)
					continue
				}
				if out.Kind == result.KindAuthorized || out.Kind == result.KindBlocked {
					return p, result.Result{}, true
				}
			}
		}
	}

	return nil, result.UnknownSessionID(cdr.SessionID), false
}

// deliverBatch sends one resolved group to its collaborator and merges the
// per-record answers into the outcome slots named by indices. An absent
// response counts as an error for every record in the batch.
func (d *Dispatcher) deliverBatch(ctx context.Context, target collaborator.Collaborator, cdrs []model.ChargeDetailRecord, indices []int, outcomes []result.Result, settled []bool) {
	batch := make([]model.ChargeDetailRecord, 0, len(indices))
	for _, i := range indices {
		batch = append(batch, cdrs[i])
	}
	t0 := time.Now()
	perRecord, err := target.SendChargeDetailRecords(ctx, batch)
	elapsed := time.Since(t0)
	if err != nil || perRecord == nil {
		desc := "no response from settlement target"
		if err != nil {
			desc = err.Error()
		}
		d.recordDelegation("SendChargeDetailRecords", target.ID(), result.KindError, 1, elapsed)
		for _, i := range indices {
			outcomes[i], settled[i] = result.Error(desc, target.ID(), elapsed), true
		}
		return
	}
	answered := make([]result.Result, 0, len(indices))
	for _, i := range indices {
		cdr := cdrs[i]
		res, ok := perRecord[cdr.SessionID]
		if !ok {
			// Left unsettled on purpose: reconciliation reports it.
			continue
		}
		answered = append(answered, res)
		if res.Collaborator == "" {
			res.Collaborator = target.ID()
		}
		if res.Kind.IsPositive() {
			// Records with an explicit target were already attached during
			// resolution.
			if cdr.EMPRoamingProviderID == "" {
				if conflict, ok := d.attach(ctx, cdr); !ok {
					outcomes[i], settled[i] = conflict, true
					continue
				}
			}
			if lerr := d.ledger.RecordSettled(ctx, cdr, target.ID()); lerr != nil {
				d.logger.Errorf("settlement ledger error for %s: %v", cdr.SessionID, lerr)
			}
			d.publish(events.CDRSettledEvent{
				SessionID:    cdr.SessionID,
				Collaborator: target.ID(),
				Outcome:      res.Kind,
				Time:         time.Now(),
			})
		}
		outcomes[i], settled[i] = res, true
	}
	d.recordDelegation("SendChargeDetailRecords", target.ID(), result.Flatten(answered).Kind, 1, elapsed)
}

// attach binds the record to its session. The first successful attach is
// authoritative; a duplicate is rejected with a conflict outcome. A session
// unknown to the store is not an error: the record may settle a session this
// hub never saw start.
func (d *Dispatcher) attach(ctx context.Context, cdr model.ChargeDetailRecord) (result.Result, bool) {
	attached, err := d.sessions.AttachCDR(ctx, cdr.SessionID, cdr)
	if errors.Is(err, session.ErrNotFound) {
		return result.Result{}, true
	}
	if err != nil {
		return result.Error(err.Error(), "", 0), false
	}
	if !attached {
		return result.Error("cdr already attached to session "+cdr.SessionID, "", 0), false
	}
	return result.Result{}, true
}
