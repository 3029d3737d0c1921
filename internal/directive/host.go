/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package directive

import (
	"context"
	"time"
)

// Child is the handle an interpreter Host keeps for a spawned
// goroutine or agent instance, closeable on StopChild/shutdown.
type Child interface {
	Stop(reason string)
}

// Host is implemented by internal/server so that this leaf package
// never imports the server package: the interpreter only knows it can
// ask a Host to carry out an effect, not how the host is built. This
// mirrors the teacher's scheduler depending on a narrow RunTracker
// contract rather than the concrete tracker type.
type Host interface {
	// Dispatch sends data as a signal of type sigType to the named
	// sink (e.g. "log", "webhook", "pubsub").
	Dispatch(ctx context.Context, sink, sigType string, data map[string]any) error

	// SpawnChild starts a bare supervised goroutine under childID.
	SpawnChild(childID string, entry func(stop <-chan struct{})) error

	// SpawnAgent starts a new agent instance of class under
	// instanceID with the given initial state.
	SpawnAgent(instanceID, class string, initState map[string]any) error

	// StopChild stops a previously spawned child or agent instance.
	// Stopping an id that is not running is a no-op.
	StopChild(childID, reason string)

	// Schedule arranges delivery of a signal after delay, or on
	// cronExpr if delay is zero and cronExpr is non-empty.
	Schedule(jobID string, delay time.Duration, cronExpr, sigType string, data map[string]any) error

	// Enqueue re-queues a signal for this same agent's next turn.
	Enqueue(sigType string, data map[string]any, delay time.Duration)

	// RequestStop begins orderly shutdown of the owning agent server.
	RequestStop(reason string)

	// Pause suspends the owning agent server, returning a structured
	// error if the server's current lifecycle state cannot move to
	// paused.
	Pause(reason string) error

	// RecordError surfaces a turn-level failure for observability.
	RecordError(kind, message string, meta map[string]any)
}
