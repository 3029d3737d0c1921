/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package agent defines the Agent Value: an immutable, schema-validated
// state bag paired with a registered catalog of Actions. Every mutator
// returns a new Value rather than touching the receiver — the Agent
// Server is the only thing allowed to treat a Value as "current".
package agent

import (
	"fmt"

	"github.com/marcus-qen/agentcore/internal/agenterr"
)

// FieldType names the primitive kinds a schema field may hold.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldInt     FieldType = "int"
	FieldFloat   FieldType = "float"
	FieldBool    FieldType = "bool"
	FieldMap     FieldType = "map"
	FieldList    FieldType = "list"
	FieldAny     FieldType = "any"
)

// FieldSpec declares the shape and constraints of one state field.
type FieldSpec struct {
	Type     FieldType
	Required bool
	Default  any
}

// Schema is a named set of field specs. A nil Schema imposes no
// constraints: strict mode is then meaningless and Validate is a no-op.
type Schema map[string]FieldSpec

// StrictMode controls how a Value treats keys absent from its Schema.
type StrictMode int

const (
	// StrictModeWarn accumulates unknown fields as warnings but does
	// not reject the state (the skill validator's default posture).
	StrictModeWarn StrictMode = iota
	// StrictModeReject turns unknown fields into validation errors.
	StrictModeReject
)

// ValidationResult mirrors the teacher's accumulate-don't-fail-fast
// skill validator: every violation is collected, not just the first.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// validateState partitions state into known/unknown fields against
// schema, accumulating one error per violated constraint and one
// warning per unknown field (or error, under StrictModeReject).
func validateState(schema Schema, state map[string]any, mode StrictMode) *ValidationResult {
	result := &ValidationResult{Valid: true}
	if schema == nil {
		return result
	}

	for name, spec := range schema {
		val, present := state[name]
		if !present {
			if spec.Required {
				result.Valid = false
				result.Errors = append(result.Errors, fmt.Sprintf("state.%s: missing required field", name))
			}
			continue
		}
		if err := checkType(name, spec.Type, val); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, err.Error())
		}
	}

	for name := range state {
		if _, known := schema[name]; known {
			continue
		}
		msg := fmt.Sprintf("state.%s: unknown field not declared in schema", name)
		if mode == StrictModeReject {
			result.Valid = false
			result.Errors = append(result.Errors, msg)
		} else {
			result.Warnings = append(result.Warnings, msg)
		}
	}

	return result
}

func checkType(name string, want FieldType, val any) error {
	if want == FieldAny || val == nil {
		return nil
	}
	ok := false
	switch want {
	case FieldString:
		_, ok = val.(string)
	case FieldInt:
		switch val.(type) {
		case int, int32, int64:
			ok = true
		}
	case FieldFloat:
		switch val.(type) {
		case float32, float64, int, int64:
			ok = true
		}
	case FieldBool:
		_, ok = val.(bool)
	case FieldMap:
		_, ok = val.(map[string]any)
	case FieldList:
		_, ok = val.([]any)
	default:
		ok = true
	}
	if !ok {
		return agenterr.Newf(agenterr.KindValidation, "state.%s: expected %s, got %T", name, want, val)
	}
	return nil
}
