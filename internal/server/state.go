/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package server implements the Agent Server: a single goroutine that
// owns an agent.Value exclusively, pulling signals off a bounded queue
// one at a time, running them through internal/pipeline, and handing
// the resulting directives to internal/directive.Apply. Grounded on
// the teacher's internal/scheduler/scheduler.go Start(ctx) select loop
// (ticker + channel-driven triggers, generalized here to queue-pull +
// cast/call intake) and internal/approval/approval.go's bounded-wait
// pattern (generalized from CRD polling into a channel-based reply
// future).
package server

import (
	"time"

	"github.com/marcus-qen/agentcore/internal/agenterr"
)

// Status is the Agent Server's lifecycle state.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusIdle         Status = "idle"
	StatusPlanning     Status = "planning"
	StatusRunning      Status = "running"
	StatusPaused       Status = "paused"
	StatusStopping     Status = "stopping"
	StatusStopped      Status = "stopped"
)

// validTransitions is the lifecycle transition table: initializing only
// ever moves forward into idle; idle begins a turn by planning it;
// planning either runs the planned instructions or, finding nothing
// runnable, falls back to idle; running returns to idle at turn end or
// moves to paused on a Pause directive; paused resumes back to running
// or idle, or accepts a stop like any other state. Every state before
// stopping can move to stopping, and stopping only ever finishes at
// stopped.
var validTransitions = map[Status]map[Status]bool{
	StatusInitializing: {StatusIdle: true, StatusStopping: true},
	StatusIdle:          {StatusPlanning: true, StatusStopping: true},
	StatusPlanning:      {StatusRunning: true, StatusIdle: true, StatusStopping: true},
	StatusRunning:       {StatusIdle: true, StatusPaused: true, StatusStopping: true},
	StatusPaused:        {StatusRunning: true, StatusIdle: true, StatusStopping: true},
	StatusStopping:      {StatusStopped: true},
	StatusStopped:       {},
}

// transition moves s to to, failing with a structured error if the
// move is not listed in validTransitions. A state transitioning to
// itself is always a no-op success, never checked against the table.
func (s *Server) transition(to Status) error {
	from := s.status
	if from == to {
		return nil
	}
	if !validTransitions[from][to] {
		err := agenterr.Newf(agenterr.KindExecution, "invalid lifecycle transition %q -> %q", from, to).
			WithMeta("from", string(from)).
			WithMeta("to", string(to))
		s.recordEvent("invalid_transition", "", "", err.Error())
		return err
	}
	s.status = to
	s.recordEvent("transition", "", "", string(from)+" -> "+string(to))
	return nil
}

// DebugEvent is one entry in the server's bounded debug ring buffer,
// surfaced via Handle.RecentEvents for operators/tests to inspect
// recent activity without wiring a full telemetry sink.
type DebugEvent struct {
	At            time.Time
	Kind          string
	SignalType    string
	CorrelationID string
	Detail        string
}

// Snapshot is the read-only view of a server's current state exposed
// through Handle.State — never the live internal map, always a copy.
type Snapshot struct {
	InstanceID  string
	Class       string
	Status      Status
	QueueSize   int
	AttachCount int
	State       map[string]any
}
