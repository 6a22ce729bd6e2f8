package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crimson-sun/commentguard/internal/config"
	"github.com/crimson-sun/commentguard/internal/engine"
	"github.com/crimson-sun/commentguard/internal/engine/compactor"
	"github.com/crimson-sun/commentguard/internal/metrics"
	"github.com/crimson-sun/commentguard/internal/output"
	"github.com/crimson-sun/commentguard/internal/output/async"
	"github.com/crimson-sun/commentguard/internal/output/file"
	"github.com/crimson-sun/commentguard/internal/output/multi"
	"github.com/crimson-sun/commentguard/internal/output/stdout"
	"github.com/crimson-sun/commentguard/internal/output/webhook"
)

const shutdownTimeout = 5 * time.Second

// app holds the state shared by every subcommand for one invocation.
type app struct {
	cfg      config.Config
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	server   *http.Server
}

// start prepares metrics and, when configured, the /metrics listener.
func (a *app) start(ctx context.Context, cfg config.Config) error {
	a.cfg = cfg
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	if cfg.Metrics.Addr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", cfg.Metrics.Addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
	a.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
	slog.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}

func (a *app) stop() error {
	if a.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.server.Shutdown(ctx)
}

func (a *app) newEngine() (*engine.Engine, error) {
	return engine.New(a.cfg, engine.WithMetrics(a.metrics))
}

func (a *app) verbosity() compactor.Verbosity {
	v, err := compactor.ParseVerbosity(a.cfg.Output.Verbosity)
	if err != nil {
		// Validate already rejected unknown values.
		return compactor.Standard
	}
	return v
}

// newOutput builds the comment output: NDJSON on w when w is non-nil, plus
// the configured file and webhook destinations.
func (a *app) newOutput(w io.Writer) (output.Output, error) {
	var outs []output.Output
	if w != nil {
		outs = append(outs, stdout.NewWriter(w, a.verbosity(), a.cfg.Output.Pretty))
	}

	if a.cfg.Output.File != "" {
		f, err := file.New(a.cfg.Output.File, a.verbosity())
		if err != nil {
			return nil, err
		}
		outs = append(outs, f)
	}

	if a.cfg.Output.WebhookURL != "" {
		onErr := func(err error) { slog.Warn("webhook delivery failed", "error", err) }
		var hook output.Output = webhook.New(a.cfg.Output.WebhookURL,
			webhook.WithVerbosity(a.verbosity()),
			webhook.WithOnError(onErr),
		)
		if !a.cfg.Output.WebhookAll {
			hook = multi.FlaggedOnly(hook)
		}
		outs = append(outs, async.New(hook, async.WithDropOnFull(), async.WithOnError(onErr)))
	}

	if len(outs) == 1 {
		return outs[0], nil
	}
	return multi.New(outs...), nil
}
