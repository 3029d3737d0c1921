/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "agentcore/runtime"

// Tracer returns the package-level OTel tracer used by every span
// helper below.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// InitTraceProvider wires an OTLP gRPC exporter into the global OTel
// trace provider. An empty endpoint disables tracing (a no-op
// shutdown is returned). The returned function must be called on
// process shutdown.
func InitTraceProvider(ctx context.Context, endpoint, serviceVersion string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(defaultSettings.ServiceName),
			semconv.ServiceVersionKey.String(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// StartCmdSpan opens the parent span for one command-pipeline turn:
// agent.cmd.<signal type>.
func StartCmdSpan(ctx context.Context, instance, class, sigType string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "agent.cmd."+sigType,
		trace.WithAttributes(
			attribute.String("agentcore.instance", instance),
			attribute.String("agentcore.class", class),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartSignalSpan opens a span for one signal dequeued and dispatched
// by an Agent Server: agent_server.signal.<type>.
func StartSignalSpan(ctx context.Context, instance, sigType, correlationID string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "agent_server.signal."+sigType,
		trace.WithAttributes(
			attribute.String("agentcore.instance", instance),
			attribute.String("agentcore.correlation_id", correlationID),
		),
	)
}

// StartDirectiveSpan opens a span for interpreting one directive:
// agent_server.directive.<kind>.
func StartDirectiveSpan(ctx context.Context, instance, kind string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "agent_server.directive."+kind,
		trace.WithAttributes(
			attribute.String("agentcore.instance", instance),
		),
	)
}

// RecordQueueOverflow annotates the current span (if any) with a queue
// overflow event: agent_server.queue.overflow.
func RecordQueueOverflow(ctx context.Context, instance string, queueSize, capacity int) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent("agent_server.queue.overflow", trace.WithAttributes(
		attribute.String("agentcore.instance", instance),
		attribute.Int("agentcore.queue_size", queueSize),
		attribute.Int("agentcore.queue_capacity", capacity),
	))
}
