package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evroam/roaminghub/infra/logger"
)

const scrapeShutdownGrace = 5 * time.Second

// StartPromServer exposes the hub's collectors on /metrics at the given
// address until the context is canceled. A dedicated mux keeps the scrape
// endpoint off the admin API router.
func StartPromServer(ctx context.Context, addr string) error {
	log := logger.New("prom-endpoint")
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), scrapeShutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("scrape endpoint shutdown: %v", err)
		}
	}()
	log.Infof("serving /metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
