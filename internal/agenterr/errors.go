/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package agenterr defines the structured error taxonomy used across the
// runtime core. Every error returned across a component boundary is a
// *Error carrying a kind, a message, and a metadata map — never a bare
// sentinel, never a panic. The one exception is Chain, whose joined
// result is a plain error.
package agenterr

import "fmt"

// Kind discriminates the error taxonomy. It is not an HTTP status or a
// wire code — just a coarse bucket callers can branch on.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindExecution     Kind = "execution"
	KindDirective     Kind = "directive"
	KindQueue         Kind = "queue"
	KindConfig        Kind = "config"
	KindTransport     Kind = "transport"
	KindTracerContract Kind = "tracer_contract"
)

// Error is the structured error value threaded through every layer.
type Error struct {
	Kind    Kind
	Message string
	Details string
	Cause   error
	Meta    map[string]any
}

// New creates a bare structured error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a bare structured error with formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(cause error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(cause error, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithDetails sets Details in place and returns the same error for chaining.
func (e *Error) WithDetails(details string) *Error {
	e.Details = details
	return e
}

// WithDetailsf is WithDetails with formatting.
func (e *Error) WithDetailsf(format string, args ...any) *Error {
	e.Details = fmt.Sprintf(format, args...)
	return e
}

// WithMeta merges a key/value into the metadata map in place.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]any, 4)
	}
	e.Meta[key] = value
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	if e, ok := err.(*Error); ok {
		ae = e
	} else {
		return false
	}
	return ae.Kind == kind
}

// GetKind returns the kind of err, or KindExecution if err is not a *Error.
func GetKind(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindExecution
}

// LogFields renders an error as a structured field map suitable for a
// logr.Logger's key/value pair list (flatten with LogFields(err)...).
func LogFields(err error) map[string]any {
	fields := map[string]any{"error": err.Error()}
	e, ok := err.(*Error)
	if !ok {
		return fields
	}
	fields["error_kind"] = string(e.Kind)
	if e.Details != "" {
		fields["error_details"] = e.Details
	}
	if e.Cause != nil {
		fields["underlying_error"] = e.Cause.Error()
	}
	for k, v := range e.Meta {
		fields["meta_"+k] = v
	}
	return fields
}

// Chain joins a sequence of errors (nils filtered) into one error whose
// message concatenates each with " -> ". Returns nil if all are nil,
// and the error itself unwrapped if only one remains.
func Chain(errs ...error) error {
	var kept []error
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	msg := kept[0].Error()
	for _, err := range kept[1:] {
		msg += " -> " + err.Error()
	}
	return fmt.Errorf("%s", msg)
}
