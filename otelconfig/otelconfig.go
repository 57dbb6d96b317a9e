// Copyright (c) 2026 Centarr Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otelconfig provides helpers for initializing a trace.TracerProvider.
package otelconfig

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Common holds config values shared by all Initializers.
type Common struct {
	ServiceName string `config:"serviceName"`
}

// CommonOption is implemented by options applicable to every Initializer.
type CommonOption interface {
	LocalOption
	OTLPOption
}

type commonOptionFunc func(*Common)

func (f commonOptionFunc) ApplyOTLP(cfg *OTLPConfig) {
	f(&cfg.Common)
}

func (f commonOptionFunc) ApplyLocal(cfg *LocalConfig) {
	f(&cfg.Common)
}

// ServiceName sets the service.name resource attribute.
func ServiceName(name string) CommonOption {
	return commonOptionFunc(func(c *Common) {
		c.ServiceName = name
	})
}

// Initializer initializes a trace.TracerProvider.
type Initializer interface {
	Init() (trace.TracerProvider, error)
}

// Noop is an Initializer which leaves the globally registered TracerProvider untouched.
var Noop = noopConfiger{}

type noopConfiger struct{}

func (noopConfiger) Init() (trace.TracerProvider, error) {
	return otel.GetTracerProvider(), nil
}

// LocalConfig configures a TracerProvider which writes spans to a local io.Writer.
type LocalConfig struct {
	Common

	Out io.Writer
}

// LocalOption
type LocalOption interface {
	ApplyLocal(*LocalConfig)
}

// Local returns an Initializer for exporting spans to stdout.
func Local(opts ...LocalOption) Initializer {
	cfg := LocalConfig{
		Out: os.Stdout,
	}
	for _, opt := range opts {
		opt.ApplyLocal(&cfg)
	}
	return cfg
}

// Init implements the Initializer interface.
func (cfg LocalConfig) Init() (trace.TracerProvider, error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(cfg.Out),
	)
	if err != nil {
		return nil, err
	}

	res, err := newResource(cfg.Common)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return tp, nil
}

func newResource(cfg Common) (*resource.Resource, error) {
	return resource.New(
		context.Background(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
}
