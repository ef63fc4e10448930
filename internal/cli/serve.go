package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aretw0/augeas"
	httpAdapter "github.com/aretw0/augeas/pkg/adapters/http"
	"github.com/aretw0/augeas/pkg/adapters/mcp"
	"github.com/aretw0/augeas/pkg/adapters/redis"
	"github.com/aretw0/augeas/pkg/observability"
	"github.com/aretw0/augeas/pkg/session"
)

// SessionName is the name the servers register their session under.
const SessionName = "default"

// ServeOptions configures Serve and ServeMCP.
type ServeOptions struct {
	Session Options
	Addr    string
	// RedisURL enables the distributed lock, for several servers sharing
	// one root.
	RedisURL string
	Validate bool
	// Transport is "stdio" or "sse" for ServeMCP.
	Transport string
	BaseURL   string
}

// newManager opens the session and wraps it in a Manager.
func newManager(ctx context.Context, o ServeOptions, logger *slog.Logger, hooks augeas.Hooks) (*session.Manager, error) {
	opts := []session.Option{session.WithLogger(logger)}
	if o.RedisURL != "" {
		locker, err := redis.NewFromURL(o.RedisURL)
		if err != nil {
			return nil, err
		}
		opts = append(opts, session.WithLocker(locker))
	}
	m := session.NewManager(opts...)

	s, err := o.Session.Open(logger, hooks)
	if err != nil {
		return nil, err
	}
	if err := m.Adopt(ctx, SessionName, s); err != nil {
		_ = s.Close()
		return nil, err
	}
	return m, nil
}

// Serve runs the HTTP API until ctx is done.
func Serve(ctx context.Context, o ServeOptions, logger *slog.Logger, banner io.Writer) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	m, err := newManager(ctx, o, logger, observability.Chain(metrics.Hooks(), observability.LogHooks(logger)))
	if err != nil {
		return err
	}
	defer func() {
		if err := m.CloseAll(context.Background()); err != nil {
			logger.Warn("Failed to close sessions", "err", err)
		}
	}()

	handlerOpts := []httpAdapter.Option{httpAdapter.WithLogger(logger), httpAdapter.WithMetrics(reg)}
	if o.Validate {
		handlerOpts = append(handlerOpts, httpAdapter.WithRequestValidation())
	}
	handler, err := httpAdapter.NewHandler(m, SessionName, handlerOpts...)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              o.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		fmt.Fprintf(banner, "Serving augeas tree on %s\n", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete: %w", err)
		}
		logger.Info("Server stopped gracefully")
		return nil
	}
}

// ServeMCP runs the MCP server on stdio or SSE until ctx is done.
func ServeMCP(ctx context.Context, o ServeOptions, logger *slog.Logger) error {
	m, err := newManager(ctx, o, logger, observability.LogHooks(logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := m.CloseAll(context.Background()); err != nil {
			logger.Warn("Failed to close sessions", "err", err)
		}
	}()

	srv := mcp.NewServer(m, SessionName, mcp.WithLogger(logger))
	switch o.Transport {
	case "", "stdio":
		return srv.ServeStdio()
	case "sse":
		baseURL := o.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost" + o.Addr
		}
		return srv.ServeSSE(ctx, o.Addr, baseURL)
	default:
		return Usage(fmt.Errorf("unknown transport %q, want stdio or sse", o.Transport))
	}
}
