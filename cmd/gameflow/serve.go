package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aretw0/gameflow/internal/cli"
	gfhttp "github.com/aretw0/gameflow/pkg/adapters/http"
	"github.com/aretw0/gameflow/pkg/compiler"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/observability"
	"github.com/aretw0/gameflow/pkg/session"
)

// shutdownTimeout bounds how long in-flight requests get to finish.
const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve [graph]",
	Short: "Serve flow instances over HTTP",
	Long: `Compiles the graph and exposes its instances through a JSON API with
server-sent state diffs, Prometheus metrics and optional OpenTelemetry traces.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := cli.GraphPath(args, appConfig)
		if err != nil {
			return err
		}
		addr := appConfig.HTTP.Addr
		if v, _ := cmd.Flags().GetString("addr"); v != "" {
			addr = v
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		var hooks []domain.LifecycleHooks
		reg := prometheus.NewRegistry()
		if appConfig.HTTP.Metrics {
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics, err := observability.NewMetrics(reg)
			if err != nil {
				return err
			}
			hooks = append(hooks, metrics.Hooks())
		}
		if appConfig.HTTP.Tracing {
			tracer, shutdown, err := cli.SetupTracing(ctx, appConfig.HTTP, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Warn("tracer shutdown failed", "error", err)
				}
			}()
			hooks = append(hooks, observability.TracingHooks(tracer))
		}

		engine, err := cli.LoadEngine(ctx, path, appConfig, logger, hooks...)
		if err != nil {
			return err
		}
		live := cli.NewLiveEngine(engine, logger)
		if appConfig.Engine.LiveCompile {
			if err := live.Follow(ctx); err != nil {
				return err
			}
		}

		backend, err := cli.OpenStore(ctx, appConfig.Store, logger)
		if err != nil {
			return err
		}
		defer backend.Close()

		streams := gfhttp.NewStreamManager(logger)
		sessionOpts := []session.Option{
			session.WithLogger(logger),
			session.WithCommitHook(streams.CommitHook),
		}
		if backend.Locker != nil {
			sessionOpts = append(sessionOpts, session.WithLocker(backend.Locker))
		}
		sessions := session.NewManager(live, backend.Store, sessionOpts...)

		serverOpts := []gfhttp.Option{
			gfhttp.WithLogger(logger),
			gfhttp.WithFlowSource(func() *compiler.Flow { return live.Current().Flow() }),
		}
		if appConfig.HTTP.Metrics {
			serverOpts = append(serverOpts, gfhttp.WithMetrics(reg))
		}
		handler := gfhttp.NewServer(sessions, streams, serverOpts...).Handler()
		if appConfig.HTTP.Tracing {
			handler = otelhttp.NewHandler(handler, "gameflow")
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting gameflow server", "addr", addr, "graph", path, "store", appConfig.Store.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case <-ctx.Done():
			logger.Info("start shutdown", "signal", ctx.Signal())
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
				if err := srv.Close(); err != nil {
					logger.Error("error killing server", "error", err)
				}
			}
			logger.Info("gameflow server stopped gracefully")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (overrides http.addr)")
}
