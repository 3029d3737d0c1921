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

	"github.com/marcus-qen/agentcore/internal/agenterr"
	"github.com/marcus-qen/agentcore/internal/signal"
	"github.com/marcus-qen/agentcore/internal/telemetry"
)

// Handle is the only thing callers outside this package ever hold —
// never the Server itself, which stays owned by its goroutine. Every
// method here only ever touches the intake channel; no Handle method
// reads or writes agent state directly.
type Handle struct {
	instanceID string
	class      string
	intake     chan envelope
}

// InstanceID returns the id this handle addresses.
func (h Handle) InstanceID() string { return h.instanceID }

// Class returns the agent class this handle addresses.
func (h Handle) Class() string { return h.class }

// Cast enqueues sig for asynchronous processing and returns
// immediately. If the server's queue is at capacity, Cast returns a
// KindQueue error and the signal is dropped — it never blocks the
// caller waiting for room.
func (h Handle) Cast(sig signal.Signal) error {
	env := envelope{kind: envSignal, sig: sig}
	select {
	case h.intake <- env:
		return nil
	default:
		return agenterr.Newf(agenterr.KindQueue, "queue full for instance %q", h.instanceID)
	}
}

// Call enqueues sig and blocks until it has been fully processed (or
// ctx is cancelled), returning the resulting state snapshot.
func (h Handle) Call(ctx context.Context, sig signal.Signal) (Snapshot, error) {
	env := envelope{kind: envSignal, sig: sig, reply: make(chan reply, 1)}
	select {
	case h.intake <- env:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	default:
		return Snapshot{}, agenterr.Newf(agenterr.KindQueue, "queue full for instance %q", h.instanceID)
	}

	select {
	case r := <-env.reply:
		return r.snapshot, r.err
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// State returns the current state snapshot without enqueuing a signal.
func (h Handle) State(ctx context.Context) (Snapshot, error) {
	env := envelope{kind: envQuery, reply: make(chan reply, 1)}
	select {
	case h.intake <- env:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case r := <-env.reply:
		return r.snapshot, r.err
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Attach registers one more interested party, preventing the idle
// timer from firing until a matching Detach brings the count back to
// zero. Per the binding "Source behavior" answer to spec.md §9's Open
// Question, the idle timer only (re)starts once the attachment count
// reaches zero — attach/detach churn above zero never resets it.
func (h Handle) Attach() {
	h.intake <- envelope{kind: envAttach}
}

// Detach removes one attachment.
func (h Handle) Detach() {
	h.intake <- envelope{kind: envDetach}
}

// SetDebug changes the debug verbosity for this instance.
func (h Handle) SetDebug(level telemetry.Level) {
	h.intake <- envelope{kind: envSetDebug, debugLevel: level}
}

// RecentEvents returns the contents of the debug ring buffer.
func (h Handle) RecentEvents(ctx context.Context) ([]DebugEvent, error) {
	env := envelope{kind: envRecentEvents, reply: make(chan reply, 1)}
	select {
	case h.intake <- env:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-env.reply:
		return r.events, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop requests orderly shutdown.
func (h Handle) Stop() {
	h.intake <- envelope{kind: envStop}
}

// Resume requests that a paused server return to processing its queue.
// Resuming a server that is not paused is a no-op.
func (h Handle) Resume() {
	h.intake <- envelope{kind: envResume}
}

// Cancel discards any dirty in-progress turn state and pending work
// accumulated while paused, resetting the agent value's dirty/result
// tracking (state and actions are left intact) before returning the
// server to idle.
func (h Handle) Cancel() {
	h.intake <- envelope{kind: envCancel}
}
