/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package agent

import (
	"github.com/marcus-qen/agentcore/internal/agenterr"
)

// Value is the immutable Agent Value: a schema-bound state bag plus a
// catalog of registered actions. Every method returns a new Value;
// none mutate the receiver. The zero Value is not usable — build one
// with New.
type Value struct {
	class   string
	schema  Schema
	strict  StrictMode
	state   map[string]any
	actions map[string]Action

	dirty               bool
	result              any
	pendingInstructions []Instruction
}

// New creates a Value for the given agent class, with the supplied
// schema and initial state. Defaults declared in the schema are
// materialized for any field the initial state omits.
func New(class string, schema Schema, initial map[string]any, strict StrictMode) (Value, error) {
	state := make(map[string]any, len(schema)+len(initial))
	for name, spec := range schema {
		if spec.Default != nil {
			state[name] = spec.Default
		}
	}
	for k, v := range initial {
		state[k] = v
	}

	v := Value{
		class:   class,
		schema:  schema,
		strict:  strict,
		state:   state,
		actions: make(map[string]Action),
	}
	if res := validateState(schema, state, strict); !res.Valid {
		return Value{}, agenterr.New(agenterr.KindValidation, "initial state failed schema validation").
			WithDetails(res.Errors[0]).
			WithMeta("errors", res.Errors).
			WithMeta("warnings", res.Warnings)
	}
	return v, nil
}

// Class returns the agent class name this value was constructed for.
func (v Value) Class() string { return v.class }

// State returns a copy of the current state map; nested maps are
// copied too, slices are shared. Callers must not mutate nested slices
// in place; use Set to produce updates.
func (v Value) State() map[string]any {
	return cloneMap(v.state)
}

// Get returns the value at key and whether it is present.
func (v Value) Get(key string) (any, bool) {
	val, ok := v.state[key]
	return val, ok
}

// Set returns a new Value with key set to val, re-validated against
// the schema. The receiver is unchanged.
func (v Value) Set(key string, val any) (Value, error) {
	return v.Merge(map[string]any{key: val})
}

// Merge returns a new Value with patch deep-merged over the current
// state, re-validated against the schema.
func (v Value) Merge(patch map[string]any) (Value, error) {
	next := deepMerge(v.state, patch)
	if res := validateState(v.schema, next, v.strict); !res.Valid {
		return v, agenterr.New(agenterr.KindValidation, "state update failed schema validation").
			WithDetails(res.Errors[0]).
			WithMeta("errors", res.Errors).
			WithMeta("warnings", res.Warnings)
	}
	nv := v
	nv.state = next
	nv.dirty = true
	return nv, nil
}

// Dirty reports whether state has changed since the last CompleteRun
// or Reset (or since construction, if neither has been called).
func (v Value) Dirty() bool { return v.dirty }

// Result returns the outcome recorded by the most recently completed
// run (see CompleteRun), or nil if none has completed yet.
func (v Value) Result() any { return v.result }

// PendingInstructions returns the instructions queued by the turn
// currently (or most recently) in flight, set by MarkPending and
// cleared by CompleteRun or Reset.
func (v Value) PendingInstructions() []Instruction {
	return append([]Instruction{}, v.pendingInstructions...)
}

// MarkPending returns a new Value recording instructions as the
// pending instruction queue for the turn about to run.
func (v Value) MarkPending(instructions []Instruction) Value {
	nv := v
	nv.pendingInstructions = append([]Instruction{}, instructions...)
	return nv
}

// CompleteRun returns a new Value with result recorded, the pending
// instruction queue cleared, and dirty cleared — the state reached
// once a turn has run every instruction with no unrecovered error.
func (v Value) CompleteRun(result any) Value {
	nv := v
	nv.result = result
	nv.pendingInstructions = nil
	nv.dirty = false
	return nv
}

// Validate re-runs schema validation over the current state without
// changing it, returning the full accumulated result.
func (v Value) Validate() *ValidationResult {
	return validateState(v.schema, v.state, v.strict)
}

// RegisterAction returns a new Value with action added to (or
// replacing) the action catalog under action.Name().
func (v Value) RegisterAction(action Action) Value {
	nv := v
	nv.actions = make(map[string]Action, len(v.actions)+1)
	for k, a := range v.actions {
		nv.actions[k] = a
	}
	nv.actions[action.Name()] = action
	return nv
}

// DeregisterAction returns a new Value with name removed from the
// action catalog. Removing an unregistered name is a no-op.
func (v Value) DeregisterAction(name string) Value {
	nv := v
	nv.actions = make(map[string]Action, len(v.actions))
	for k, a := range v.actions {
		if k != name {
			nv.actions[k] = a
		}
	}
	return nv
}

// Action looks up a registered action by name.
func (v Value) Action(name string) (Action, bool) {
	a, ok := v.actions[name]
	return a, ok
}

// Plan resolves a list of instruction names/action references into
// Instructions the pipeline can run, validating that each named action
// exists in the catalog. This is the "plan" half of the pipeline's
// set -> plan -> run contract: Plan never executes an action, only
// checks that the turn is runnable.
func (v Value) Plan(instructions []Instruction) ([]Instruction, error) {
	for _, ins := range instructions {
		if _, ok := v.actions[ins.Action]; !ok {
			return nil, agenterr.Newf(agenterr.KindValidation, "unknown action %q", ins.Action).
				WithMeta("action", ins.Action)
		}
	}
	return instructions, nil
}

// Reset clears dirty, result, and any pending instruction queue,
// leaving state and the registered action catalog untouched.
func (v Value) Reset() Value {
	nv := v
	nv.dirty = false
	nv.result = nil
	nv.pendingInstructions = nil
	return nv
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}

// deepMerge overlays patch onto base, recursing into nested maps on
// both sides and replacing (never merging) any other value kind,
// including slices. Neither input is mutated.
func deepMerge(base, patch map[string]any) map[string]any {
	out := cloneMap(base)
	for k, v := range patch {
		if patchMap, ok := v.(map[string]any); ok {
			if baseMap, ok := out[k].(map[string]any); ok {
				out[k] = deepMerge(baseMap, patchMap)
				continue
			}
			out[k] = cloneMap(patchMap)
			continue
		}
		out[k] = v
	}
	return out
}
