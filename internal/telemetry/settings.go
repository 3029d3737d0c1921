/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package telemetry is the Observability Substrate: span lifecycle
// management over a pluggable Tracer, the four telemetry event
// families, and per-instance config resolution. Grounded directly on
// the teacher's internal/telemetry/tracing.go (OTel tracer + span
// helpers, generalized here from GenAI-specific span names to the
// generic agent.cmd.* / agent_server.* prefixes) and
// internal/metrics/metrics.go for the counters those spans feed.
package telemetry

import "sync"

// Level is the verbosity of telemetry emitted for an agent instance.
type Level string

const (
	LevelOff   Level = "off"
	LevelError Level = "error"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

// FailureMode governs what happens when a Tracer contract violation is
// detected (see span.go's guard counter).
type FailureMode string

const (
	// FailureModeStrict returns an error from WithSpan on contract
	// violation.
	FailureModeStrict FailureMode = "strict"
	// FailureModeWarn logs the violation and continues.
	FailureModeWarn FailureMode = "warn"
)

// Settings is the resolved telemetry configuration for one agent
// instance at one point in time.
type Settings struct {
	Level           Level
	RedactSensitive bool
	FailureMode     FailureMode
	OTLPEndpoint    string
	ServiceName     string
}

// defaultSettings is the hardcoded fallback — level 4 of the
// resolution order below.
var defaultSettings = Settings{
	Level:           LevelInfo,
	RedactSensitive: true,
	FailureMode:     FailureModeWarn,
	ServiceName:     "agentcore",
}

// globalSettings is level 3: the process-wide configured default,
// normally set once at startup from InstanceManager config.
var globalMu sync.RWMutex
var globalSettings *Settings

// classSettings is level 2: per-agent-class configuration, keyed by
// class name.
var classMu sync.RWMutex
var classSettings = make(map[string]Settings)

// overrideStore is level 1: the highest-priority, runtime
// per-instance override, keyed by instance id. Modeled on the
// teacher's description of a process-wide persistent-term style store
// (see spec.md §9) using sync.Map rather than a package mutex+map
// since overrides churn far more than class/global config.
var overrideStore sync.Map // instance id -> Settings

// SetGlobal installs the process-wide default telemetry settings.
func SetGlobal(s Settings) {
	globalMu.Lock()
	defer globalMu.Unlock()
	cp := s
	globalSettings = &cp
}

// SetClass installs telemetry settings for every instance of class,
// unless overridden at the instance or runtime-override level.
func SetClass(class string, s Settings) {
	classMu.Lock()
	defer classMu.Unlock()
	classSettings[class] = s
}

// SetOverride installs a runtime override for one instance, taking
// priority over class and global settings until Reset is called.
func SetOverride(instance string, s Settings) {
	overrideStore.Store(instance, s)
}

// Reset clears the runtime override for instance. This is the
// test-isolation hook spec.md §9 calls for: tests that install a
// per-instance override must Reset it during cleanup so later tests
// are not affected by leftover process-wide state.
func Reset(instance string) {
	overrideStore.Delete(instance)
}

// Resolve returns the effective Settings for instance/class, applying
// the four-level resolution order: runtime override, then per-class
// config, then global config, then hardcoded defaults.
func Resolve(instance, class string) Settings {
	if v, ok := overrideStore.Load(instance); ok {
		return v.(Settings)
	}

	classMu.RLock()
	if s, ok := classSettings[class]; ok {
		classMu.RUnlock()
		return s
	}
	classMu.RUnlock()

	globalMu.RLock()
	if globalSettings != nil {
		s := *globalSettings
		globalMu.RUnlock()
		return s
	}
	globalMu.RUnlock()

	return defaultSettings
}
