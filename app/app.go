// Copyright (c) 2026 Centarr Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app assembles the centarr service from its parts: config,
// logging, tracing, the Sonarr client, the gateway and the HTTP runtime.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/centarr/centarr"
	"github.com/centarr/centarr/gateway"
	"github.com/centarr/centarr/httpvalidate"
	"github.com/centarr/centarr/lifecycle"
	"github.com/centarr/centarr/otelconfig"
	"github.com/centarr/centarr/otelslog"
	httpruntime "github.com/centarr/centarr/runtime/http"
	"github.com/centarr/centarr/sonarr"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// HTTPConfig configures the HTTP runtime.
type HTTPConfig struct {
	Port              uint          `config:"port"`
	ReadHeaderTimeout time.Duration `config:"readHeaderTimeout"`
	IdleTimeout       time.Duration `config:"idleTimeout"`
	ShutdownGrace     time.Duration `config:"shutdownGrace"`
}

// RetryConfig configures request retries towards Sonarr.
type RetryConfig struct {
	MaxAttempts int           `config:"maxAttempts"`
	MinWait     time.Duration `config:"minWait"`
	MaxWait     time.Duration `config:"maxWait"`
}

// CircuitConfig configures the circuit breaker guarding Sonarr.
type CircuitConfig struct {
	TripCount uint32        `config:"tripCount"`
	Timeout   time.Duration `config:"timeout"`
}

// SonarrConfig configures the Sonarr client.
type SonarrConfig struct {
	URL            string        `config:"url"`
	APIKey         string        `config:"apiKey"`
	DiskPathPrefix string        `config:"diskPathPrefix"`
	Timeout        time.Duration `config:"timeout"`
	Retry          RetryConfig   `config:"retry"`
	Circuit        CircuitConfig `config:"circuit"`
}

// StaticConfig configures static asset serving.
type StaticConfig struct {
	Root string `config:"root"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level slog.Level `config:"level"`
}

// OTLPConfig configures span export to an OTLP collector.
type OTLPConfig struct {
	Target string `config:"target"`
}

// OTelConfig configures OpenTelemetry. Exporter selects where spans
// go: "local" writes them to stdout, "otlp" exports them to the
// configured collector. Anything else leaves tracing disabled.
type OTelConfig struct {
	ServiceName string     `config:"serviceName"`
	Exporter    string     `config:"exporter"`
	OTLP        OTLPConfig `config:"otlp"`
}

// Config is the complete centarr service configuration.
type Config struct {
	HTTP    HTTPConfig    `config:"http"`
	Sonarr  SonarrConfig  `config:"sonarr"`
	Static  StaticConfig  `config:"static"`
	Logging LoggingConfig `config:"logging"`
	OTel    OTelConfig    `config:"otel"`
}

// Builder returns the [centarr.AppBuilder] which constructs the
// complete centarr service from a [Config].
func Builder() centarr.AppBuilderFunc[Config] {
	return func(ctx context.Context, cfg Config) (centarr.App, error) {
		logHandler := otelslog.NewHandler(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.Logging.Level,
		}))

		zlog, err := zap.NewProduction()
		if err != nil {
			return nil, err
		}

		err = initTracing(ctx, cfg.OTel, zlog)
		if err != nil {
			return nil, err
		}

		client := newSonarrClient(cfg.Sonarr, zlog)

		gw := gateway.New(
			client,
			gateway.LogHandler(logHandler),
			gateway.DiskPathPrefix(cfg.Sonarr.DiskPathPrefix),
			gateway.StaticDir(cfg.Static.Root),
		)

		ropts := []httpruntime.RuntimeOption{
			httpruntime.LogHandler(logHandler),
			httpruntime.Handle("/shows", forGet(gw.ListShows)),
			httpruntime.Handle("/shows/{showID}", forGet(gw.GetShow)),
			httpruntime.Handle("/shows/{showID}/episodes/{episodeID}", forGet(gw.GetEpisode)),
			httpruntime.Handle("/shows/{showID}/episodes/{episodeID}/watch", forGet(gw.WatchEpisode)),
			httpruntime.Handle("/", gw.Static()),
		}
		if cfg.HTTP.Port > 0 {
			ropts = append(ropts, httpruntime.ListenOnPort(cfg.HTTP.Port))
		}
		if cfg.HTTP.ReadHeaderTimeout > 0 {
			ropts = append(ropts, httpruntime.ReadHeaderTimeout(cfg.HTTP.ReadHeaderTimeout))
		}
		if cfg.HTTP.IdleTimeout > 0 {
			ropts = append(ropts, httpruntime.IdleTimeout(cfg.HTTP.IdleTimeout))
		}
		if cfg.HTTP.ShutdownGrace > 0 {
			ropts = append(ropts, httpruntime.ShutdownGrace(cfg.HTTP.ShutdownGrace))
		}

		var app centarr.App = httpruntime.NewRuntime(ropts...)
		app = centarr.Recover(app)
		app = centarr.WithSignalNotifications(app, os.Interrupt, syscall.SIGTERM)
		return app, nil
	}
}

func newSonarrClient(cfg SonarrConfig, zlog *zap.Logger) *sonarr.Client {
	retryOpts := []sonarr.RetryOption{
		sonarr.RetryAttemptLogger(zlog),
	}
	if cfg.Retry.MaxAttempts > 0 {
		retryOpts = append(retryOpts, sonarr.MaxAttempts(cfg.Retry.MaxAttempts))
	}
	if cfg.Retry.MinWait > 0 {
		retryOpts = append(retryOpts, sonarr.MinWaitDuration(cfg.Retry.MinWait))
	}
	if cfg.Retry.MaxWait > 0 {
		retryOpts = append(retryOpts, sonarr.MaxWaitDuration(cfg.Retry.MaxWait))
	}

	circuitOpts := []sonarr.CircuitOption{
		sonarr.CircuitName("sonarr"),
		sonarr.CircuitLogger(zlog),
	}
	if cfg.Circuit.TripCount > 0 {
		circuitOpts = append(circuitOpts, sonarr.CircuitTripCount(cfg.Circuit.TripCount))
	}
	if cfg.Circuit.Timeout > 0 {
		circuitOpts = append(circuitOpts, sonarr.CircuitTimeout(cfg.Circuit.Timeout))
	}

	httpClient := sonarr.NewHTTPClient(
		sonarr.Timeout(cfg.Timeout),
		sonarr.RetryRequests(retryOpts...),
		sonarr.Transport(sonarr.RoundTripperWith(
			otelhttp.NewTransport(http.DefaultTransport),
			sonarr.CircuitBreaker(circuitOpts...),
		)),
	)

	return sonarr.NewClient(cfg.URL, cfg.APIKey, sonarr.HTTPClient(httpClient))
}

type traceProviderShutdown interface {
	Shutdown(context.Context) error
}

func initTracing(ctx context.Context, cfg OTelConfig, zlog *zap.Logger) error {
	var initializer otelconfig.Initializer = otelconfig.Noop
	switch strings.ToLower(cfg.Exporter) {
	case "local":
		initializer = otelconfig.Local(
			otelconfig.ServiceName(cfg.ServiceName),
		)
	case "otlp":
		initializer = otelconfig.OTLP(
			otelconfig.ServiceName(cfg.ServiceName),
			otelconfig.OTLPTarget(cfg.OTLP.Target),
		)
	}

	tp, err := initializer.Init()
	if err != nil {
		return err
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	lc, ok := lifecycle.FromContext(ctx)
	if !ok {
		return nil
	}
	lc.OnPostRun(lifecycle.HookFunc(func(ctx context.Context) error {
		// Stdout sync failures are expected on some platforms.
		defer zlog.Sync()

		s, ok := tp.(traceProviderShutdown)
		if !ok {
			return nil
		}
		return s.Shutdown(ctx)
	}))
	return nil
}

func forGet(f http.HandlerFunc) http.Handler {
	return httpvalidate.Request(
		f,
		httpvalidate.ForMethods(http.MethodGet),
	)
}
