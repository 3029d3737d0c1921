/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package pipeline implements the Command Pipeline: the pure
// set -> plan -> run transform that turns an incoming set of
// instructions into a new agent state plus a list of directives for
// the interpreter to carry out. It is grounded on the teacher's
// runner.Runner conversation loop (dequeue -> invoke -> accumulate ->
// feed back), generalized from LLM tool-use turns to arbitrary
// registered Actions.
package pipeline

import (
	"context"

	"github.com/marcus-qen/agentcore/internal/agent"
)

// Hooks lets callers observe (or veto) each step of a turn without
// forking the pipeline itself — the same instrumentation seam the
// teacher's runner exposes around each tool call.
type Hooks interface {
	BeforeSet(ctx context.Context, instance string, attrs map[string]any)
	AfterSet(ctx context.Context, instance string, v agent.Value, err error)
	BeforePlan(ctx context.Context, instance string, instructions []agent.Instruction)
	AfterPlan(ctx context.Context, instance string, planned []agent.Instruction, err error)
	BeforeInstruction(ctx context.Context, instance string, ins agent.Instruction)
	AfterInstruction(ctx context.Context, instance string, ins agent.Instruction, res agent.ActionResult)

	// OnError is invoked once a turn has failed for reason, with v as
	// the agent value at the point of failure. Returning recovered
	// true converts the turn's outcome to success, using the returned
	// Value as the turn's final result; returning false lets the
	// original error propagate to Cmd's caller unchanged.
	OnError(ctx context.Context, instance string, v agent.Value, reason error) (recovered agent.Value, ok bool)
}

// DefaultHooks is a Hooks implementation whose methods all no-op; embed
// it to implement only the callbacks a caller cares about.
type DefaultHooks struct{}

func (DefaultHooks) BeforeSet(context.Context, string, map[string]any)              {}
func (DefaultHooks) AfterSet(context.Context, string, agent.Value, error)            {}
func (DefaultHooks) BeforePlan(context.Context, string, []agent.Instruction)         {}
func (DefaultHooks) AfterPlan(context.Context, string, []agent.Instruction, error)   {}
func (DefaultHooks) BeforeInstruction(context.Context, string, agent.Instruction)    {}
func (DefaultHooks) AfterInstruction(context.Context, string, agent.Instruction, agent.ActionResult) {}
func (DefaultHooks) OnError(_ context.Context, _ string, v agent.Value, _ error) (agent.Value, bool) {
	return v, false
}
