package cli

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nlbdev/MathCAT"
	httpAdapter "github.com/nlbdev/MathCAT/internal/adapters/http"
	mcpAdapter "github.com/nlbdev/MathCAT/internal/adapters/mcp"
	"github.com/nlbdev/MathCAT/internal/metrics"
)

// ShutdownTimeout bounds the drain of in-flight requests.
const ShutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Cache   CacheOptions
	Addr    string
	Metrics bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP rendering server",
		Long: `Start a JSON API for speech and braille rendering.

Every request renders in its own session, so requests never share
preferences or expressions. Rendered output can be cached in SQLite
(--cache) or Redis (--redis). Prometheus metrics are served on /metrics.

Examples:
  mathcat serve --addr :8080
  mathcat serve --addr :8080 --redis localhost:6379
  mathcat serve --rules-dir ./rules --cache renders.db`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.logger(cmd)
			repo, err := loadRepository(opts.RootOptions, logger)
			if err != nil {
				return err
			}
			cache, closeCache, err := opts.Cache.open()
			if err != nil {
				return WrapExitError(ExitCommandError, "open cache", err)
			}
			defer closeCache()

			sessionOpts := []mathcat.Option{mathcat.WithCache(cache)}
			handlerOpts := []httpAdapter.Option{httpAdapter.WithLogger(logger)}
			if opts.Metrics {
				m := metrics.New()
				sessionOpts = append(sessionOpts, mathcat.WithMetrics(m))
				handlerOpts = append(handlerOpts, httpAdapter.WithMetricsHandler(m.Handler()))
			}
			handlerOpts = append(handlerOpts, httpAdapter.WithSessionOptions(sessionOpts...))

			srv := &http.Server{
				Addr:              opts.Addr,
				Handler:           httpAdapter.NewHandler(repo, handlerOpts...),
				ReadHeaderTimeout: 10 * time.Second,
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serveHTTP(ctx, srv, nil, logger)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", true, "serve Prometheus metrics on /metrics")
	opts.Cache.register(cmd)

	return cmd
}

// serveHTTP runs srv until ctx is done, then shuts it down gracefully.
// A nil listener listens on srv.Addr.
func serveHTTP(ctx context.Context, srv *http.Server, ln net.Listener, logger *slog.Logger) error {
	serverErrors := make(chan error, 1)
	go func() {
		var err error
		if ln != nil {
			logger.Info("starting server", "addr", ln.Addr().String())
			err = srv.Serve(ln)
		} else {
			logger.Info("starting server", "addr", srv.Addr)
			err = srv.ListenAndServe()
		}
		serverErrors <- err
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "timeout", ShutdownTimeout, "err", err)
			return srv.Close()
		}
		logger.Info("server stopped")
		return nil
	}
}

// NewMCPCommand creates the mcp command.
func NewMCPCommand(rootOpts *RootOptions) *cobra.Command {
	cache := &CacheOptions{}
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve rendering tools over MCP (stdio)",
		Long: `Start a Model Context Protocol server on stdin/stdout.

Tools: speak_mathml, braille_mathml and list_languages. Logs go to
stderr; stdout carries only protocol messages.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := rootOpts.logger(cmd)
			repo, err := loadRepository(rootOpts, logger)
			if err != nil {
				return err
			}
			c, closeCache, err := cache.open()
			if err != nil {
				return WrapExitError(ExitCommandError, "open cache", err)
			}
			defer closeCache()

			srv := mcpAdapter.NewServer(repo,
				mcpAdapter.WithLogger(logger),
				mcpAdapter.WithSessionOptions(mathcat.WithCache(c)),
			)
			logger.Info("starting MCP server", "transport", "stdio")
			return srv.ServeStdio()
		},
	}
	cache.register(cmd)
	return cmd
}
