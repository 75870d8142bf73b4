// Package app wires configuration into a running roaming hub service.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/evroam/roaminghub/api"
	"github.com/evroam/roaminghub/config"
	"github.com/evroam/roaminghub/core/collaborator"
	"github.com/evroam/roaminghub/core/dispatch"
	coremetrics "github.com/evroam/roaminghub/core/metrics"
	"github.com/evroam/roaminghub/core/reservation"
	"github.com/evroam/roaminghub/core/session"
	"github.com/evroam/roaminghub/infra/logger"
	"github.com/evroam/roaminghub/infra/metrics"
	"github.com/evroam/roaminghub/infra/mqtt"
	mongostore "github.com/evroam/roaminghub/infra/store/mongo"
	pgstore "github.com/evroam/roaminghub/infra/store/postgres"
	redisstore "github.com/evroam/roaminghub/infra/store/redis"
	"github.com/evroam/roaminghub/internal/eventbus"
)

// Service orchestrates the dispatcher, stores, API and notifier.
type Service struct {
	Dispatcher *dispatch.Dispatcher
	Registry   *collaborator.Registry

	bus      *eventbus.Bus
	notifier *mqtt.Notifier
	apiSrv   *api.Server
	apiAddr  string
	apiOn    bool
	promOn   bool
	promPort string
	log      logger.Logger
	closers  []func() error
}

// New creates a Service from the configuration. Collaborators are not part of
// the configuration; the embedding program registers them on Registry before
// Run.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	svc := &Service{log: logg}

	sessions, reservations, err := svc.buildStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	latency := metrics.NewLatencyTracker(0)
	sinks = append(sinks, latency)
	var sink coremetrics.Sink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else {
		sink = metrics.NewMultiSink(sinks...)
	}

	bus := eventbus.New()
	registry := collaborator.NewRegistry(time.Duration(cfg.Dispatch.LockTimeoutSeconds) * time.Second)
	dispatcher, err := dispatch.NewDispatcher(registry, sessions, reservations, cfg.Dispatch, sink, bus, logg)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: %w", err)
	}

	if cfg.Stores.LedgerBackend == "postgres" {
		ledger, err := pgstore.NewLedger(ctx, cfg.Stores.Postgres)
		if err != nil {
			return nil, fmt.Errorf("settlement ledger: %w", err)
		}
		dispatcher.SetLedger(ledger)
		svc.closers = append(svc.closers, func() error { ledger.Close(); return nil })
	}

	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewPahoPublisher(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.notifier = mqtt.NewNotifier(pub, cfg.MQTT.TopicPrefix, logger.New("notifier"))
		svc.closers = append(svc.closers, func() error { pub.Close(); return nil })
	}

	svc.Dispatcher = dispatcher
	svc.Registry = registry
	svc.bus = bus
	svc.promOn = cfg.Metrics.PrometheusEnabled
	svc.promPort = cfg.Metrics.PrometheusPort
	svc.apiOn = cfg.API.Enabled
	svc.apiAddr = cfg.API.Addr
	svc.apiSrv = &api.Server{
		Dispatcher:   dispatcher,
		Registry:     registry,
		Sessions:     sessions,
		Reservations: reservations,
		Latency:      latency,
		Log:          logger.New("api"),
	}
	return svc, nil
}

func (s *Service) buildStores(ctx context.Context, cfg *config.Config) (session.Store, reservation.Store, error) {
	var sessions session.Store
	switch cfg.Stores.SessionBackend {
	case "redis":
		store, err := redisstore.NewSessionStore(ctx, cfg.Stores.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("session store: %w", err)
		}
		s.closers = append(s.closers, store.Close)
		sessions = store
	default:
		sessions = session.NewMemoryStore()
	}

	var reservations reservation.Store
	switch cfg.Stores.ReservationBackend {
	case "mongo":
		store, err := mongostore.NewReservationStore(ctx, cfg.Stores.Mongo)
		if err != nil {
			return nil, nil, fmt.Errorf("reservation store: %w", err)
		}
		s.closers = append(s.closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return store.Close(ctx)
		})
		reservations = store
	default:
		reservations = reservation.NewMemoryStore()
	}
	return sessions, reservations, nil
}

// Run starts the API, Prometheus endpoint and notifier, then blocks until the
// context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if s.notifier != nil {
		go s.notifier.Run(ctx, s.bus)
	}
	if s.promOn {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.apiOn {
		go func() {
			if err := s.apiSrv.Run(ctx, s.apiAddr); err != nil {
				s.log.Errorf("api server: %v", err)
			}
		}()
	}
	s.log.Infof("roaming hub up (api=%t prom=%t notifier=%t)", s.apiOn, s.promOn, s.notifier != nil)
	<-ctx.Done()
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
