/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package directive

import "github.com/marcus-qen/agentcore/internal/agenterr"

// FoldState is the pure half of directive application: it folds only
// the StateModification directives in ds over state, in order,
// returning the resulting state plus the full set of StateModification
// directives actually applied — including synthesized "path ensurance"
// directives for any intermediate map the Path required but state
// did not yet have. internal/pipeline calls this after every
// instruction so later instructions in the same turn observe earlier
// ones' state changes; Apply, called from internal/server, re-applies the same
// directives afterward, which is safe because folding a
// StateModification is idempotent.
//
// Non-StateModification directives in ds are ignored; callers
// typically pass the full directive list from a turn and rely on this
// function to filter.
func FoldState(state map[string]any, ds []Directive) (map[string]any, []StateModification, error) {
	cur := cloneState(state)
	var applied []StateModification

	for _, d := range ds {
		sm, ok := d.(StateModification)
		if !ok {
			continue
		}
		ensured, err := ensurePath(cur, sm.Path)
		if err != nil {
			return state, applied, err
		}
		applied = append(applied, ensured...)

		if err := applyOne(cur, sm); err != nil {
			return state, applied, err
		}
		applied = append(applied, sm)
	}

	return cur, applied, nil
}

// ensurePath walks all but the last segment of path, creating an empty
// map at any segment that is absent, and returns one synthesized
// StateModification per segment it had to materialize (in root-to-leaf
// order) so the interpreter layer can log/emit them for observability.
func ensurePath(state map[string]any, path []string) ([]StateModification, error) {
	if len(path) <= 1 {
		return nil, nil
	}
	var synthesized []StateModification
	cur := state
	for i := 0; i < len(path)-1; i++ {
		seg := path[i]
		next, present := cur[seg]
		if !present {
			m := make(map[string]any)
			cur[seg] = m
			synthesized = append(synthesized, StateModification{
				Op:    OpSet,
				Path:  append([]string{}, path[:i+1]...),
				Value: m,
			})
			cur = m
			continue
		}
		nested, ok := next.(map[string]any)
		if !ok {
			return synthesized, agenterr.Newf(agenterr.KindDirective,
				"state path %v: segment %q is not a map", path, seg)
		}
		cur = nested
	}
	return synthesized, nil
}

func applyOne(state map[string]any, sm StateModification) error {
	if len(sm.Path) == 0 {
		return agenterr.New(agenterr.KindDirective, "state_modification: empty path")
	}
	parent := state
	for _, seg := range sm.Path[:len(sm.Path)-1] {
		next, ok := parent[seg].(map[string]any)
		if !ok {
			return agenterr.Newf(agenterr.KindDirective, "state path %v: segment %q is not a map", sm.Path, seg)
		}
		parent = next
	}
	leaf := sm.Path[len(sm.Path)-1]

	switch sm.Op {
	case OpSet:
		parent[leaf] = sm.Value
	case OpMerge:
		existing, _ := parent[leaf].(map[string]any)
		patch, ok := sm.Value.(map[string]any)
		if !ok {
			return agenterr.Newf(agenterr.KindDirective, "state path %v: merge value must be a map, got %T", sm.Path, sm.Value)
		}
		parent[leaf] = mergeInto(existing, patch)
	case OpDelete:
		delete(parent, leaf)
	default:
		return agenterr.Newf(agenterr.KindDirective, "state_modification: unknown op %q", sm.Op)
	}
	return nil
}

func mergeInto(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

func cloneState(state map[string]any) map[string]any {
	out := make(map[string]any, len(state))
	for k, v := range state {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneState(nested)
			continue
		}
		out[k] = v
	}
	return out
}
