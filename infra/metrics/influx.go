package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/evroam/roaminghub/core/metrics"
	"github.com/evroam/roaminghub/infra/logger"
)

// InfluxSink writes dispatcher outcomes to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg coremetrics.Config) *InfluxSink {
	base := strings.TrimSuffix(cfg.InfluxURL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.InfluxToken,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordOperation writes the aggregate outcomes as line protocol points.
func (s *InfluxSink) RecordOperation(recs []coremetrics.OperationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, r := range recs {
		p := write.NewPointWithMeasurement("roaming_operation").
			AddTag("operation", r.Operation).
			AddTag("kind", r.Kind.String()).
			AddTag("collaborator", r.Collaborator).
			AddField("runtime_ms", float64(r.Runtime)/float64(time.Millisecond)).
			SetTime(r.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordDelegation writes one point per delegated collaborator call.
func (s *InfluxSink) RecordDelegation(recs []coremetrics.DelegationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, r := range recs {
		p := write.NewPointWithMeasurement("roaming_delegation").
			AddTag("operation", r.Operation).
			AddTag("collaborator", r.Collaborator).
			AddTag("kind", r.Kind.String()).
			AddField("fallback_depth", r.FallbackDepth).
			AddField("latency_ms", float64(r.Latency)/float64(time.Millisecond)).
			SetTime(r.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordSettlement writes one point per reconciled CDR batch.
func (s *InfluxSink) RecordSettlement(rec coremetrics.SettlementRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("roaming_settlement").
		AddField("batch_size", rec.BatchSize).
		AddField("resolved", rec.Resolved).
		AddField("filtered", rec.Filtered).
		AddField("unresolved", rec.Unresolved).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
