/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package directive defines the effect descriptions a command pipeline
// turn produces and the interpreter that applies them against a running
// Agent Server. Directives are data, not behavior: an Action never
// touches a child goroutine or a timer directly, it only describes
// what should happen, and the interpreter in this package is the only
// code allowed to carry that description out.
package directive

import "time"

// Op names a state-modification operation.
type Op string

const (
	OpSet    Op = "set"
	OpMerge  Op = "merge"
	OpDelete Op = "delete"
)

// Directive is the sealed union of effect descriptions a turn can
// produce. The unexported directiveTag method keeps the set closed to
// this package, matching the teacher's pattern of constraining Decision
// kinds to a fixed enum rather than letting callers invent new tiers.
type Directive interface {
	DirectiveKind() string
	directiveTag()
}

// Emit publishes a derived signal to a named dispatch sink (logger,
// webhook, pubsub, ...). It is grounded on the teacher's events.Bus
// publish/consume shape, generalized from a severity-filtered event
// bus to an arbitrary named sink.
type Emit struct {
	SignalType string
	Data       map[string]any
	Sink       string
}

func (Emit) DirectiveKind() string { return "emit" }
func (Emit) directiveTag()         {}

// Spawn starts a bare child goroutine under the server's supervision,
// identified by ChildID, running Entry. Entry receives a stop channel
// it must select on to honor graceful shutdown.
type Spawn struct {
	ChildID string
	Entry   func(stop <-chan struct{})
}

func (Spawn) DirectiveKind() string { return "spawn" }
func (Spawn) directiveTag()         {}

// SpawnAgent starts a new Agent Server instance of Class with InitState,
// registered under InstanceID in the owning Instance Manager. Carried
// as plain data (not an agent.Value) so this leaf package never needs
// to import internal/agent or internal/instance.
type SpawnAgent struct {
	InstanceID string
	Class      string
	InitState  map[string]any
}

func (SpawnAgent) DirectiveKind() string { return "spawn_agent" }
func (SpawnAgent) directiveTag()         {}

// StopChild stops a previously spawned child or child agent by id. A
// StopChild for an id that is not currently running is a no-op — the
// binding answer to spec.md §9's Open Question on this point.
type StopChild struct {
	ChildID string
	Reason  string
}

func (StopChild) DirectiveKind() string { return "stop_child" }
func (StopChild) directiveTag()         {}

// Schedule arranges for a signal to be delivered to this agent after
// Delay, or on the recurring cadence described by CronExpr (mutually
// exclusive with Delay). Grounded on the teacher's scheduler.go ticker
// loop, generalized from "due run" evaluation to an arbitrary deferred
// signal.
type Schedule struct {
	JobID      string
	Delay      time.Duration
	CronExpr   string
	SignalType string
	Data       map[string]any
}

func (Schedule) DirectiveKind() string { return "schedule" }
func (Schedule) directiveTag()         {}

// Stop requests orderly shutdown of the agent itself after the current
// turn completes.
type Stop struct {
	Reason string
}

func (Stop) DirectiveKind() string { return "stop" }
func (Stop) directiveTag()         {}

// Pause suspends the agent server in the paused lifecycle state: queued
// signals keep arriving but are held back rather than processed until a
// matching Resume. Reason is recorded on the transition's debug event.
type Pause struct {
	Reason string
}

func (Pause) DirectiveKind() string { return "pause" }
func (Pause) directiveTag()         {}

// Enqueue re-queues a signal for processing by this same agent on a
// future turn. Per spec.md §9's binding "Source behavior" answer,
// Enqueue never runs inline: it is only honored by the server-level
// Apply after the current Cmd call returns, landing on the *next* turn,
// never the current one.
type Enqueue struct {
	SignalType string
	Data       map[string]any
	Delay      time.Duration
}

func (Enqueue) DirectiveKind() string { return "enqueue" }
func (Enqueue) directiveTag()         {}

// StateModification describes a pure change to the agent's state map.
// Unlike every other directive, this one is also interpreted by the
// pure command pipeline itself (see FoldState) so that state changes
// are visible to later instructions within the same turn, not only
// after the interpreter runs.
type StateModification struct {
	Op    Op
	Path  []string
	Value any
}

func (StateModification) DirectiveKind() string { return "state_modification" }
func (StateModification) directiveTag()          {}

// ErrorDirective records a turn-level failure for observability without
// itself stopping the agent; pair with Stop if the failure should also
// halt the server.
type ErrorDirective struct {
	Kind    string
	Message string
	Meta    map[string]any
}

func (ErrorDirective) DirectiveKind() string { return "error" }
func (ErrorDirective) directiveTag()          {}
