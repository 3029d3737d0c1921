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

	"github.com/marcus-qen/agentcore/internal/agent"
)

// Runner executes one planned instruction against a Value and returns
// the action's result. It is the seam the teacher's runner.Runner
// occupies for an LLM tool-use turn, generalized here to "invoke one
// registered Action" — a simpleRunner is the direct analogue of the
// teacher's one-tool-call-at-a-time dispatch, with no conversational
// state of its own.
type Runner interface {
	Run(ctx context.Context, v agent.Value, ins agent.Instruction, rc agent.RunContext) agent.ActionResult
}

// simpleRunner looks the instruction's action up in v's catalog and
// invokes it directly.
type simpleRunner struct{}

// NewRunner returns the default Runner: direct invocation of the
// action registered under ins.Action.
func NewRunner() Runner {
	return simpleRunner{}
}

func (simpleRunner) Run(ctx context.Context, v agent.Value, ins agent.Instruction, rc agent.RunContext) agent.ActionResult {
	action, ok := v.Action(ins.Action)
	if !ok {
		return agent.ActionResult{Error: unknownActionErr(ins.Action)}
	}
	return action.Run(ctx, ins.Params, rc)
}
