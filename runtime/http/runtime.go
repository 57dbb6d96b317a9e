// Copyright (c) 2026 Centarr Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/centarr/centarr/health"
	"github.com/centarr/centarr/httpvalidate"
	"github.com/centarr/centarr/noop"
	"github.com/centarr/centarr/slogfield"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

type runtimeOptions struct {
	port              uint
	mux               *http.ServeMux
	logHandler        slog.Handler
	readiness         *health.Readiness
	liveness          *health.Liveness
	readHeaderTimeout time.Duration
	idleTimeout       time.Duration
	shutdownGrace     time.Duration
}

// RuntimeOption configures the Runtime.
type RuntimeOption func(*runtimeOptions)

// ListenOnPort will configure the HTTP server to listen on the given port.
//
// Default port is 3000.
func ListenOnPort(port uint) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.port = port
	}
}

// LogHandler configures the slog.Handler used by the Runtime.
func LogHandler(h slog.Handler) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.logHandler = h
	}
}

// Handle registers a http.Handler for the given path pattern.
func Handle(pattern string, h http.Handler) RuntimeOption {
	return func(ro *runtimeOptions) {
		registerEndpoint(ro.mux, pattern, h)
	}
}

// HandleFunc registers a http.HandlerFunc for the given path pattern.
func HandleFunc(pattern string, f func(http.ResponseWriter, *http.Request)) RuntimeOption {
	return func(ro *runtimeOptions) {
		registerEndpoint(ro.mux, pattern, http.HandlerFunc(f))
	}
}

// Readiness configures the readiness probe backing /health/readiness.
func Readiness(r *health.Readiness) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.readiness = r
	}
}

// Liveness configures the liveness probe backing /health/liveness.
func Liveness(l *health.Liveness) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.liveness = l
	}
}

// ReadHeaderTimeout sets the maximum duration for reading request headers.
//
// Default is 2 seconds.
func ReadHeaderTimeout(d time.Duration) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.readHeaderTimeout = d
	}
}

// IdleTimeout sets the maximum duration to wait for the next request
// when keep-alives are enabled.
//
// Default is 120 seconds.
func IdleTimeout(d time.Duration) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.idleTimeout = d
	}
}

// ShutdownGrace bounds how long in-flight requests are allowed to
// complete once a shutdown has begun. Connections still open after
// the grace period are forcefully closed.
//
// A zero grace period waits indefinitely.
func ShutdownGrace(d time.Duration) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.shutdownGrace = d
	}
}

// Runtime owns the listening socket and the server lifecycle. It accepts
// inbound connections, dispatches each to its own handler goroutine and
// shuts down cleanly when signalled.
type Runtime struct {
	port   uint
	listen func(string, string) (net.Listener, error)

	log *slog.Logger

	h http.Handler

	readHeaderTimeout time.Duration
	idleTimeout       time.Duration
	shutdownGrace     time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}

	started   *health.Started
	liveness  *health.Liveness
	readiness *health.Readiness
}

// NewRuntime configures a Runtime. The health probe endpoints,
// /health/startup, /health/liveness and /health/readiness, are
// always registered.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	ros := &runtimeOptions{
		port:              3000,
		mux:               http.NewServeMux(),
		logHandler:        noop.LogHandler{},
		readiness:         &health.Readiness{},
		liveness:          &health.Liveness{},
		readHeaderTimeout: 2 * time.Second,
		idleTimeout:       120 * time.Second,
	}
	for _, opt := range opts {
		opt(ros)
	}

	rt := &Runtime{
		port:              ros.port,
		listen:            net.Listen,
		log:               slog.New(ros.logHandler),
		h:                 ros.mux,
		readHeaderTimeout: ros.readHeaderTimeout,
		idleTimeout:       ros.idleTimeout,
		shutdownGrace:     ros.shutdownGrace,
		stopCh:            make(chan struct{}),
		started:           &health.Started{},
		liveness:          ros.liveness,
		readiness:         ros.readiness,
	}

	registerEndpoint(
		ros.mux,
		"/health/startup",
		httpvalidate.Request(
			health.NewHandler(rt.started),
			httpvalidate.ForMethods(http.MethodGet),
		),
	)
	registerEndpoint(
		ros.mux,
		"/health/liveness",
		httpvalidate.Request(
			health.NewHandler(rt.liveness),
			httpvalidate.ForMethods(http.MethodGet),
		),
	)
	registerEndpoint(
		ros.mux,
		"/health/readiness",
		httpvalidate.Request(
			health.NewHandler(rt.readiness),
			httpvalidate.ForMethods(http.MethodGet),
		),
	)

	return rt
}

// BindError occurs when the listening socket fails to bind, e.g. the
// port is already in use or the process lacks permission to bind it.
// Bind failures are fatal at startup.
type BindError struct {
	Port  uint
	Cause error
}

// Error implements the error interface.
func (e BindError) Error() string {
	return fmt.Sprintf("failed to bind port %d: %s", e.Port, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e BindError) Unwrap() error {
	return e.Cause
}

// Run binds the listener and serves until the given context is cancelled
// or [Runtime.Shutdown] is called. Each accepted connection is handled on
// its own goroutine so a stalled connection can not block acceptance of
// new connections. Per connection failures are logged and isolated to
// that connection.
//
// Run returns nil after a clean shutdown.
func (rt *Runtime) Run(ctx context.Context) error {
	ls, err := rt.listen("tcp", fmt.Sprintf(":%d", rt.port))
	if err != nil {
		rt.log.Error("failed to listen for connections", slogfield.Error(err))
		return BindError{Port: rt.port, Cause: err}
	}

	s := &http.Server{
		Handler: otelhttp.NewHandler(
			rt.h,
			"server",
			otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents),
		),
		ReadHeaderTimeout: rt.readHeaderTimeout,
		IdleTimeout:       rt.idleTimeout,
		ErrorLog:          slog.NewLogLogger(rt.log.Handler(), slog.LevelError),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-rt.stopCh:
		}

		rt.readiness.NotReady()
		rt.log.Info("shutting down service")
		defer rt.log.Info("shut down service")

		sctx := context.Background()
		if rt.shutdownGrace > 0 {
			var cancel context.CancelFunc
			sctx, cancel = context.WithTimeout(sctx, rt.shutdownGrace)
			defer cancel()
		}

		err := s.Shutdown(sctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			rt.log.Warn("grace period expired, forcing connections closed")
			return s.Close()
		}
		return err
	})
	g.Go(func() error {
		rt.started.Started()
		rt.liveness.Alive()
		rt.readiness.Ready()
		rt.log.Info("started service", slogfield.Uint("port", rt.port))
		return s.Serve(ls)
	})

	err = g.Wait()
	if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	rt.log.Error("service encountered unexpected error", slogfield.Error(err))
	return err
}

// Shutdown signals the Runtime to stop accepting new connections and
// begin draining in-flight requests. It is safe to call multiple times
// and from any goroutine. Calling it twice has no additional effect.
func (rt *Runtime) Shutdown() {
	rt.stopOnce.Do(func() {
		close(rt.stopCh)
	})
}

func registerEndpoint(mux *http.ServeMux, path string, h http.Handler) {
	mux.Handle(
		path,
		otelhttp.WithRouteTag(path, h),
	)
}
