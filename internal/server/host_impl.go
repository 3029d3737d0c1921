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
	"time"

	"github.com/marcus-qen/agentcore/internal/agenterr"
	"github.com/marcus-qen/agentcore/internal/signal"
)

// Server implements directive.Host: every effect a turn's directives
// demand is carried out here, on the owner goroutine, never from any
// other caller. Apply is always invoked from processSignal, so none of
// these methods need their own synchronization.

// Dispatch forwards to whichever Dispatcher is registered under sink.
func (s *Server) Dispatch(ctx context.Context, sink, sigType string, data map[string]any) error {
	return s.disp.dispatch(ctx, sink, sigType, data)
}

// SpawnChild starts entry in its own goroutine, tracked under childID
// so a later StopChild(childID, ...) or server shutdown can stop it.
func (s *Server) SpawnChild(childID string, entry func(stop <-chan struct{})) error {
	if _, exists := s.children[childID]; exists {
		return agenterr.Newf(agenterr.KindConfig, "child %q already running", childID)
	}
	c := newGoroutineChild()
	s.children[childID] = c
	go entry(c.stop)
	return nil
}

// SpawnAgent delegates to the injected SpawnAgentFunc, which is owned
// by internal/instance. A nil func means this server was built without
// instance-manager wiring (e.g. a standalone test) — spawning is then
// a configuration error, not a silent no-op.
func (s *Server) SpawnAgent(instanceID, class string, initState map[string]any) error {
	if s.spawnAgentFn == nil {
		return agenterr.New(agenterr.KindConfig, "no SpawnAgentFunc configured for this server")
	}
	return s.spawnAgentFn(instanceID, class, initState)
}

// StopChild stops a bare goroutine child tracked by SpawnChild, or
// falls through to the injected StopAgentFunc so the same directive
// can also target a full agent instance. Stopping an unknown id in
// either case is a no-op, per the Host contract.
func (s *Server) StopChild(childID, reason string) {
	if c, ok := s.children[childID]; ok {
		c.Stop(reason)
		delete(s.children, childID)
		return
	}
	if s.stopAgentFn != nil {
		s.stopAgentFn(childID, reason)
	}
}

// Schedule arranges a one-shot delayed delivery (delay > 0) or a
// recurring cron delivery (cronExpr non-empty) of a signal back onto
// this server's own intake, keyed by jobID so a later Schedule call
// with the same jobID replaces the earlier one.
func (s *Server) Schedule(jobID string, delay time.Duration, cronExpr, sigType string, data map[string]any) error {
	s.cancelSchedule(jobID)

	sig := signal.New(sigType, data)
	h := Handle{instanceID: s.instanceID, class: s.class, intake: s.intake}

	if cronExpr != "" {
		id, err := s.cronRunner.AddFunc(cronExpr, func() {
			_ = h.Cast(signal.New(sigType, data))
		})
		if err != nil {
			return agenterr.Newf(agenterr.KindConfig, "invalid cron expression %q: %v", cronExpr, err)
		}
		s.cronJobs[jobID] = id
		return nil
	}

	if delay <= 0 {
		return agenterr.New(agenterr.KindConfig, "Schedule requires a positive delay or a cron expression")
	}
	s.delayTimers[jobID] = time.AfterFunc(delay, func() {
		_ = h.Cast(sig)
	})
	return nil
}

func (s *Server) cancelSchedule(jobID string) {
	if id, ok := s.cronJobs[jobID]; ok {
		s.cronRunner.Remove(id)
		delete(s.cronJobs, jobID)
	}
	if t, ok := s.delayTimers[jobID]; ok {
		t.Stop()
		delete(s.delayTimers, jobID)
	}
}

// Enqueue re-posts a signal onto this same server's intake, optionally
// after delay. A zero delay posts immediately; a full queue drops the
// re-post rather than blocking the owner goroutine that called us.
func (s *Server) Enqueue(sigType string, data map[string]any, delay time.Duration) {
	h := Handle{instanceID: s.instanceID, class: s.class, intake: s.intake}
	sig := signal.New(sigType, data)
	if delay <= 0 {
		_ = h.Cast(sig)
		return
	}
	time.AfterFunc(delay, func() {
		_ = h.Cast(sig)
	})
}

// RequestStop asks the owner loop to begin shutdown on its next
// select iteration.
func (s *Server) RequestStop(reason string) {
	select {
	case s.stopRequested <- reason:
	default:
	}
}

// Pause moves the server into the paused lifecycle state. Signals that
// arrive while paused are buffered rather than processed until a
// Resume. Pausing from a state the transition table forbids (e.g.
// while already stopping) returns a structured error instead of
// silently doing nothing.
func (s *Server) Pause(reason string) error {
	if err := s.transition(StatusPaused); err != nil {
		return err
	}
	s.recordEvent("paused", "", "", reason)
	return nil
}

// RecordError appends a debug event and logs the failure; it never
// returns an error because recording a failure must not itself be
// able to fail a turn.
func (s *Server) RecordError(kind, message string, meta map[string]any) {
	s.recordEvent("directive_error", "", "", kind+": "+message)
	s.log.Info("directive error", "kind", kind, "message", message, "meta", meta)
}
