/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package server

import (
	"github.com/marcus-qen/agentcore/internal/signal"
	"github.com/marcus-qen/agentcore/internal/telemetry"
)

type envelopeKind int

const (
	envSignal envelopeKind = iota
	envAttach
	envDetach
	envQuery
	envSetDebug
	envRecentEvents
	envStop
	envResume
	envCancel
)

// reply is what the owner goroutine sends back on an envelope's reply
// channel. Only the fields relevant to the envelope's kind are set.
type reply struct {
	snapshot Snapshot
	events   []DebugEvent
	err      error
}

// envelope is the single intake type the owner goroutine selects on;
// every public Handle method is a thin constructor for one of these.
type envelope struct {
	kind       envelopeKind
	sig        signal.Signal
	debugLevel telemetry.Level
	reply      chan reply
}
