/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/marcus-qen/agentcore/internal/agent"
	"github.com/marcus-qen/agentcore/internal/directive"
)

func counterSchema() agent.Schema {
	return agent.Schema{
		"count": {Type: agent.FieldInt, Default: 0},
	}
}

type incrementAction struct{}

func (incrementAction) Name() string           { return "increment" }
func (incrementAction) ParamSchema() agent.Schema { return nil }
func (incrementAction) Run(ctx context.Context, params map[string]any, rc agent.RunContext) agent.ActionResult {
	count, _ := rc.State["count"].(int)
	return agent.ActionResult{
		Directives: []agent.Directive{
			directive.StateModification{Op: directive.OpSet, Path: []string{"count"}, Value: count + 1},
			directive.Emit{SignalType: "counter.incremented", Sink: "log", Data: map[string]any{"count": count + 1}},
		},
	}
}

type failingAction struct{}

func (failingAction) Name() string              { return "explode" }
func (failingAction) ParamSchema() agent.Schema { return nil }
func (failingAction) Run(ctx context.Context, params map[string]any, rc agent.RunContext) agent.ActionResult {
	return agent.ActionResult{Error: errors.New("boom")}
}

type recoverAction struct{}

func (recoverAction) Name() string              { return "recover" }
func (recoverAction) ParamSchema() agent.Schema { return nil }
func (recoverAction) Run(ctx context.Context, params map[string]any, rc agent.RunContext) agent.ActionResult {
	return agent.ActionResult{
		Directives: []agent.Directive{
			directive.StateModification{Op: directive.OpSet, Path: []string{"recovered"}, Value: true},
		},
	}
}

func newCounterValue(t *testing.T) agent.Value {
	t.Helper()
	v, err := agent.New("counter", counterSchema(), nil, agent.StrictModeWarn)
	if err != nil {
		t.Fatalf("unexpected error constructing value: %v", err)
	}
	return v.RegisterAction(incrementAction{}).RegisterAction(failingAction{}).RegisterAction(recoverAction{})
}

// TestCmd_RunsInstructionAndFoldsState covers the S1-style scenario:
// a single instruction producing both a state change and an emitted
// signal, with the state change visible in the returned Value.
func TestCmd_RunsInstructionAndFoldsState(t *testing.T) {
	v := newCounterValue(t)

	result, ds, err := Cmd(context.Background(), v, []agent.Instruction{{Action: "increment"}}, nil, Options{InstanceID: "i1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := result.Get("count"); got != 1 {
		t.Errorf("count = %v, want 1", got)
	}
	var sawEmit bool
	for _, d := range ds {
		if _, ok := d.(directive.Emit); ok {
			sawEmit = true
		}
	}
	if !sawEmit {
		t.Errorf("expected an Emit directive in %+v", ds)
	}
}

// TestCmd_LaterInstructionSeesEarlierFoldedState covers running two
// instructions in one turn and confirming the second observes the
// first's state change through RunContext.State.
func TestCmd_LaterInstructionSeesEarlierFoldedState(t *testing.T) {
	v := newCounterValue(t)
	instructions := []agent.Instruction{{Action: "increment"}, {Action: "increment"}}

	result, _, err := Cmd(context.Background(), v, instructions, nil, Options{InstanceID: "i1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := result.Get("count"); got != 2 {
		t.Errorf("count = %v, want 2 after two increments in one turn", got)
	}
}

// TestCmd_OnErrorRecovers covers OnError recovery: an instruction
// that fails but names an OnError recovery action runs that action
// instead of aborting the turn.
func TestCmd_OnErrorRecovers(t *testing.T) {
	v := newCounterValue(t)
	instructions := []agent.Instruction{{Action: "explode", OnError: "recover"}}

	result, _, err := Cmd(context.Background(), v, instructions, nil, Options{InstanceID: "i1"})
	if err != nil {
		t.Fatalf("expected recovery to suppress the error, got: %v", err)
	}
	if got, _ := result.Get("recovered"); got != true {
		t.Errorf("expected recovered=true, got %v", got)
	}
}

// TestCmd_NoOnErrorAbortsTurn confirms a failing instruction with no
// OnError aborts the remaining instructions and surfaces the error.
func TestCmd_NoOnErrorAbortsTurn(t *testing.T) {
	v := newCounterValue(t)
	instructions := []agent.Instruction{{Action: "explode"}, {Action: "increment"}}

	result, _, err := Cmd(context.Background(), v, instructions, nil, Options{InstanceID: "i1"})
	if err == nil {
		t.Fatal("expected error from unrecovered failing instruction")
	}
	if got, _ := result.Get("count"); got != 0 {
		t.Errorf("expected second instruction never to run, count = %v", got)
	}
}

func TestCmd_RejectsUnknownActionAtPlanTime(t *testing.T) {
	v := newCounterValue(t)
	_, _, err := Cmd(context.Background(), v, []agent.Instruction{{Action: "does-not-exist"}}, nil, Options{InstanceID: "i1"})
	if err == nil {
		t.Fatal("expected plan-time error for unknown action")
	}
}

func TestCmd_SetPhaseAppliesAttrsBeforePlanning(t *testing.T) {
	v := newCounterValue(t)
	result, _, err := Cmd(context.Background(), v, nil, map[string]any{"count": 5}, Options{InstanceID: "i1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := result.Get("count"); got != 5 {
		t.Errorf("count = %v, want 5 from set phase", got)
	}
}
