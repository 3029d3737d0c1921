/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package signal defines the wire-independent signal envelope — the unit
// of communication into and out of an Agent Server — and the trie-based
// router used to resolve a signal's dotted type to a handler.
package signal

import (
	"github.com/google/uuid"
)

// DispatchConfig names an output sink and its options. The sink
// implementations themselves (logger/webhook/pubsub) are adapters that
// live outside this core; this struct only carries the routing intent.
type DispatchConfig struct {
	Kind string
	Opts map[string]any
}

// Signal is the envelope carrying a type, payload, and correlation
// metadata. It is immutable by convention — callers derive new signals
// rather than mutating one in place.
type Signal struct {
	ID             string
	Type           string
	Data           map[string]any
	Source         string
	CorrelationID  string
	CausationID    string
	TraceID        string
	SpanID         string
	ParentSpanID   string
	DispatchConfig *DispatchConfig
}

// New creates a signal of the given type. If no correlation/trace id is
// supplied it becomes its own root: CorrelationID and TraceID default to
// the new signal's ID.
func New(sigType string, data map[string]any) Signal {
	id := uuid.NewString()
	return Signal{
		ID:            id,
		Type:          sigType,
		Data:          data,
		CorrelationID: id,
		TraceID:       id,
	}
}

// Derive creates a new signal caused by s: the child inherits s's
// TraceID and CorrelationID, sets CausationID to s.ID, and sets
// ParentSpanID to s's current SpanID. This is the propagation rule in
// §4.6/§8 S6 of the runtime spec — every signal an agent emits while
// processing s carries s's correlation chain forward.
func (s Signal) Derive(sigType string, data map[string]any) Signal {
	return Signal{
		ID:            uuid.NewString(),
		Type:          sigType,
		Data:          data,
		Source:        s.Source,
		CorrelationID: s.CorrelationID,
		CausationID:   s.ID,
		TraceID:       s.TraceID,
		ParentSpanID:  s.SpanID,
	}
}

// WithSource returns a copy of s with Source set.
func (s Signal) WithSource(source string) Signal {
	s.Source = source
	return s
}

// WithSpan returns a copy of s with its own span id set (called once the
// server opens a span to process it).
func (s Signal) WithSpan(spanID string) Signal {
	s.SpanID = spanID
	return s
}
