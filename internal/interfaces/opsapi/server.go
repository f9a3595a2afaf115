package opsapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/riskibarqy/pickup-matchmaking/internal/observability"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/logging"
)

type RouterConfig struct {
	OpsToken     string
	PprofEnabled bool
}

func NewRouter(handler *Handler, logger *logging.Logger, cfg RouterConfig) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handler.Healthz)
	mux.HandleFunc("GET /v1/venues/{community}/{channel}/roster", handler.GetVenueRoster)
	mux.HandleFunc("GET /v1/challenges", handler.ListChallenges)
	mux.Handle("PUT /v1/teams/{id}", RequireOpsToken(cfg.OpsToken, http.HandlerFunc(handler.UpsertTeam)))
	if cfg.PprofEnabled {
		observability.RegisterPprof(mux)
	}

	return RequestTracing(RequestLogging(logger, recoverPanic(logger, mux)))
}

// Serve runs srv until ctx ends, then drains in-flight requests.
func Serve(ctx context.Context, srv *http.Server, logger *logging.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("ops http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
