// Package observability starts and stops the API's tracing and profiling
// sidecars.
package observability

import (
	"context"
	"net/http"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/patient-onboarding/internal/config"
	"github.com/riskibarqy/patient-onboarding/internal/platform/logging"
)

const pprofShutdownTimeout = 5 * time.Second

// Runtime holds whatever Start turned on.
type Runtime struct {
	logger       *logging.Logger
	stopTracing  func(context.Context) error
	stopProfiler func() error
	pprof        *http.Server
}

// Start enables tracing, continuous profiling and the pprof listener per cfg.
// When one of them fails the ones already running are stopped again.
func Start(cfg config.Config, logger *logging.Logger) (*Runtime, error) {
	if logger == nil {
		logger = logging.Default()
	}
	rt := &Runtime{
		logger:       logger,
		stopTracing:  func(context.Context) error { return nil },
		stopProfiler: func() error { return nil },
	}

	stopTracing, err := initTracing(cfg, logger)
	if err != nil {
		return nil, crerr.Wrap(err, "init uptrace")
	}
	rt.stopTracing = stopTracing

	stopProfiler, err := initProfiler(cfg, logger)
	if err != nil {
		_ = rt.Shutdown(context.Background())
		return nil, crerr.Wrap(err, "init pyroscope")
	}
	rt.stopProfiler = stopProfiler

	rt.pprof = startPprof(cfg, logger)
	return rt, nil
}

// Shutdown stops everything in reverse start order and reports every failure.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var errs error
	if r.pprof != nil {
		pprofCtx, cancel := context.WithTimeout(ctx, pprofShutdownTimeout)
		if err := r.pprof.Shutdown(pprofCtx); err != nil {
			errs = crerr.CombineErrors(errs, crerr.Wrap(err, "stop pprof"))
		} else {
			r.logger.Info("pprof server stopped")
		}
		cancel()
		r.pprof = nil
	}
	if err := r.stopProfiler(); err != nil {
		errs = crerr.CombineErrors(errs, crerr.Wrap(err, "stop pyroscope"))
	}
	if err := r.stopTracing(ctx); err != nil {
		errs = crerr.CombineErrors(errs, crerr.Wrap(err, "shutdown uptrace"))
	}
	return errs
}
