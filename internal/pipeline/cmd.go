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
	"fmt"

	"github.com/marcus-qen/agentcore/internal/agent"
	"github.com/marcus-qen/agentcore/internal/agenterr"
	"github.com/marcus-qen/agentcore/internal/directive"
)

// Options configures one Cmd call.
type Options struct {
	InstanceID    string
	SignalType    string
	CorrelationID string
	Runner        Runner
	Hooks         Hooks
}

// Cmd is the pure set -> plan -> run transform: it applies attrs as a
// state patch ("set"), validates the instruction list against v's
// action catalog ("plan"), then runs each instruction in order
// ("run"), folding any StateModification directives an instruction
// produced before the next instruction starts so later instructions in
// the same turn see earlier ones' state changes. It returns the
// resulting Value and the full ordered directive list for the caller
// to hand to directive.Apply — Cmd never applies non-state directives
// itself.
//
// If an instruction's Action returns a non-nil ActionResult.Error and
// the instruction names an OnError action, that recovery action runs
// in its place (with the error message in its params under "cause",
// and the same RunContext the failed instruction saw); if OnError
// is empty, the error aborts the remaining instructions in this turn
// and is returned to the caller alongside whatever state and
// directives were produced so far.
func Cmd(ctx context.Context, v agent.Value, instructions []agent.Instruction, attrs map[string]any, opts Options) (agent.Value, []directive.Directive, error) {
	hooks := opts.Hooks
	if hooks == nil {
		hooks = DefaultHooks{}
	}
	runner := opts.Runner
	if runner == nil {
		runner = NewRunner()
	}

	// turnErr wraps every failure point below so the turn-level on_error
	// hook gets one consistent recovery seam: if the hook recovers, the
	// turn returns success with its recovered Value; otherwise the
	// original wrapped error propagates to the caller unchanged.
	turnErr := func(v agent.Value, ds []directive.Directive, err error) (agent.Value, []directive.Directive, error) {
		if recovered, ok := hooks.OnError(ctx, opts.InstanceID, v, err); ok {
			return recovered.CompleteRun(nil), ds, nil
		}
		return v, ds, err
	}

	hooks.BeforeSet(ctx, opts.InstanceID, attrs)
	next := v
	var err error
	if len(attrs) > 0 {
		next, err = v.Merge(attrs)
	}
	hooks.AfterSet(ctx, opts.InstanceID, next, err)
	if err != nil {
		return turnErr(v, nil, agenterr.Wrap(err, agenterr.KindValidation, "set phase failed"))
	}

	hooks.BeforePlan(ctx, opts.InstanceID, instructions)
	planned, err := next.Plan(instructions)
	hooks.AfterPlan(ctx, opts.InstanceID, planned, err)
	if err != nil {
		return turnErr(next, nil, agenterr.Wrap(err, agenterr.KindValidation, "plan phase failed"))
	}
	next = next.MarkPending(planned)

	var allDirectives []directive.Directive
	state := next.State()
	var lastResult any

	for _, ins := range planned {
		hooks.BeforeInstruction(ctx, opts.InstanceID, ins)
		rc := agent.RunContext{
			InstanceID:    opts.InstanceID,
			State:         state,
			SignalType:    opts.SignalType,
			CorrelationID: opts.CorrelationID,
		}
		res := runner.Run(ctx, next, ins, rc)
		hooks.AfterInstruction(ctx, opts.InstanceID, ins, res)

		if res.Error != nil && ins.OnError != "" {
			recovery := agent.Instruction{Action: ins.OnError, Params: map[string]any{"cause": res.Error.Error()}}
			if _, ok := next.Action(recovery.Action); ok {
				res = runner.Run(ctx, next, recovery, rc)
			}
		}

		ds, convErr := asDirectives(res.Directives)
		if convErr != nil {
			return turnErr(next, allDirectives, convErr)
		}

		folded, newlyFolded, foldErr := directive.FoldState(state, ds)
		if foldErr != nil {
			return turnErr(next, allDirectives, agenterr.Wrap(foldErr, agenterr.KindDirective, "folding instruction state failed"))
		}
		state = folded
		for _, sm := range newlyFolded {
			allDirectives = append(allDirectives, sm)
		}
		for _, d := range ds {
			if _, isState := d.(directive.StateModification); !isState {
				allDirectives = append(allDirectives, d)
			}
		}

		merged, mergeErr := next.Merge(state)
		if mergeErr != nil {
			return turnErr(next, allDirectives, agenterr.Wrap(mergeErr, agenterr.KindValidation, "re-validating folded state failed"))
		}
		next = merged
		state = next.State()
		lastResult = res

		if res.Error != nil {
			return turnErr(next, allDirectives, agenterr.Wrap(res.Error, agenterr.KindExecution, fmt.Sprintf("instruction %q failed", ins.Action)))
		}
	}

	next = next.CompleteRun(lastResult)
	return next, allDirectives, nil
}

func asDirectives(ds []agent.Directive) ([]directive.Directive, error) {
	out := make([]directive.Directive, 0, len(ds))
	for _, d := range ds {
		cd, ok := d.(directive.Directive)
		if !ok {
			return nil, agenterr.Newf(agenterr.KindDirective, "directive of kind %q is not a recognized directive type", d.DirectiveKind())
		}
		out = append(out, cd)
	}
	return out, nil
}

func unknownActionErr(name string) error {
	return agenterr.Newf(agenterr.KindValidation, "unknown action %q", name)
}
