// Copyright (c) 2026 Centarr Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otelconfig

import (
	"context"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// OTLPConfig configures a TracerProvider which exports spans to an OTLP collector.
type OTLPConfig struct {
	Common

	// gRPC target string which is passed to grpc.NewClient.
	Target string `config:"target"`
}

// OTLPOption
type OTLPOption interface {
	ApplyOTLP(*OTLPConfig)
}

type otlpOptionFunc func(*OTLPConfig)

func (f otlpOptionFunc) ApplyOTLP(cfg *OTLPConfig) {
	f(cfg)
}

// OTLPTarget sets the gRPC target of the OTLP collector.
func OTLPTarget(target string) OTLPOption {
	return otlpOptionFunc(func(cfg *OTLPConfig) {
		cfg.Target = target
	})
}

// OTLP returns an Initializer for exporting spans to an OTLP collector over gRPC.
func OTLP(opts ...OTLPOption) Initializer {
	c := OTLPConfig{}
	for _, opt := range opts {
		opt.ApplyOTLP(&c)
	}
	return c
}

// Init implements the Initializer interface.
func (cfg OTLPConfig) Init() (trace.TracerProvider, error) {
	res, err := newResource(cfg.Common)
	if err != nil {
		return nil, err
	}

	// Note the use of insecure transport here. TLS is recommended in production.
	conn, err := grpc.NewClient(
		cfg.Target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(context.Background(), otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp),
	)
	return tp, nil
}
