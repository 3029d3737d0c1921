/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package server

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/marcus-qen/agentcore/internal/agenterr"
)

// Dispatcher delivers an Emit directive's signal to a named external
// sink. internal/directive.Host.Dispatch forwards to whichever
// Dispatcher is registered under the directive's Sink name.
type Dispatcher interface {
	Dispatch(ctx context.Context, sigType string, data map[string]any) error
}

// LoggerDispatcher is the "log" sink: it writes the signal as a
// structured log line and never fails, matching the teacher's
// events.Bus.Publish's "log and continue" posture for side-channel
// observability writes.
type LoggerDispatcher struct {
	Log logr.Logger
}

func (d LoggerDispatcher) Dispatch(ctx context.Context, sigType string, data map[string]any) error {
	d.Log.Info("signal emitted", "signal_type", sigType, "data", data)
	return nil
}

// WebhookDispatcher is the "webhook" sink contract; concrete transport
// (HTTP client, retries, signing) is supplied by the caller via Send.
type WebhookDispatcher struct {
	Send func(ctx context.Context, sigType string, data map[string]any) error
}

func (d WebhookDispatcher) Dispatch(ctx context.Context, sigType string, data map[string]any) error {
	if d.Send == nil {
		return agenterr.New(agenterr.KindConfig, "webhook dispatcher has no Send configured")
	}
	return d.Send(ctx, sigType, data)
}

// PubSubDispatcher is the "pubsub" sink contract; Publish is supplied
// by the caller (a broker client, an in-memory fan-out, ...).
type PubSubDispatcher struct {
	Publish func(ctx context.Context, sigType string, data map[string]any) error
}

func (d PubSubDispatcher) Dispatch(ctx context.Context, sigType string, data map[string]any) error {
	if d.Publish == nil {
		return agenterr.New(agenterr.KindConfig, "pubsub dispatcher has no Publish configured")
	}
	return d.Publish(ctx, sigType, data)
}

// registry maps a sink name to the Dispatcher that serves it.
type registry map[string]Dispatcher

func (r registry) dispatch(ctx context.Context, sink, sigType string, data map[string]any) error {
	d, ok := r[sink]
	if !ok {
		return agenterr.Newf(agenterr.KindConfig, "no dispatcher registered for sink %q", sink)
	}
	return d.Dispatch(ctx, sigType, data)
}
