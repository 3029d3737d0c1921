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
	"sync/atomic"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanFunc is the unit of work a span wraps. It must call the finisher
// WithSpan hands it exactly once.
type SpanFunc func(ctx context.Context, finish func(err error)) error

// WithSpan opens a span named name, invokes fn with a finisher
// closure, and enforces that fn calls the finisher exactly once. The
// enforcement mechanism is a guard counter rather than trusting fn:
// calling the finisher zero or more than once is a tracer contract
// violation, handled per settings.FailureMode — FailureModeStrict
// returns an agenterr KindTracerContract error, FailureModeWarn logs
// via log and lets the span close anyway.
func WithSpan(ctx context.Context, log logr.Logger, settings Settings, spanName string, fn SpanFunc) error {
	ctx, span := Tracer().Start(ctx, spanName)
	var calls int32

	finish := func(err error) {
		if atomic.AddInt32(&calls, 1) != 1 {
			return // contract already violated; see check below
		}
		finishSpan(span, err)
	}

	err := fn(ctx, finish)

	n := atomic.LoadInt32(&calls)
	if n == 1 {
		return err
	}

	violation := contractViolation(spanName, n)
	if n == 0 {
		finishSpan(span, violation)
	}
	// n > 1: the first finish call already ended the span; it is not
	// ended again.

	switch settings.FailureMode {
	case FailureModeStrict:
		if err != nil {
			return err
		}
		return violation
	default:
		log.Info("tracer contract violation", "span", spanName, "finish_calls", n)
		return err
	}
}

func contractViolation(spanName string, calls int32) error {
	return tracerContractErr(spanName, calls)
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
