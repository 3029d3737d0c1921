/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package agent

import "context"

// RunContext carries per-turn context an Action needs but that is not
// part of its declared params: the agent's own id, its current state
// snapshot (read-only), and the signal that triggered this turn.
type RunContext struct {
	InstanceID   string
	State        map[string]any
	SignalType   string
	CorrelationID string
}

// ActionResult is what an Action.Run produces. Directives is the list
// of effect descriptions the pipeline will hand to the interpreter;
// Error, if set, short-circuits the remaining instructions in the
// current turn (see Instruction.OnError).
type ActionResult struct {
	Directives []Directive
	Error      error
}

// Directive is the narrow view of internal/directive.Directive that
// this package needs: just enough to let an Action emit effects
// without internal/agent importing internal/directive (which would
// create Agent Value -> Directive Interpreter -> Agent Value cycle,
// since directives describe spawning further agent instances).
// internal/pipeline adapts these into concrete directive.Directive
// values before handing them to the interpreter.
type Directive interface {
	DirectiveKind() string
}

// Action is a single named, schema-validated operation an Agent Value
// exposes. Implementations should be stateless; any state an action
// needs to read or write travels through RunContext.State and the
// returned ActionResult's StateModification directives.
type Action interface {
	Name() string
	ParamSchema() Schema
	Run(ctx context.Context, params map[string]any, rc RunContext) ActionResult
}

// Instruction is one step of a turn: invoke a named action with
// params, optionally bound to an OnError recovery action.
type Instruction struct {
	Action  string
	Params  map[string]any
	OnError string
}
