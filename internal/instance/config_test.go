/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package instance

import (
	"strings"
	"testing"
	"time"

	"github.com/marcus-qen/agentcore/internal/agent"
)

const sampleManagerConfig = `
default_capacity: 64
default_idle_timeout: 5m
classes:
  - class: counter
    strict_mode: reject
    capacity: 16
    idle_timeout: 30s
    schema:
      count:
        type: int
        default: 0
      label:
        type: string
        required: true
`

func TestLoadManagerConfig(t *testing.T) {
	cfg, err := LoadManagerConfig(strings.NewReader(sampleManagerConfig))
	if err != nil {
		t.Fatalf("LoadManagerConfig: %v", err)
	}
	if cfg.DefaultCapacity != 64 {
		t.Fatalf("DefaultCapacity = %d, want 64", cfg.DefaultCapacity)
	}
	if cfg.DefaultIdleTimeout != 5*time.Minute {
		t.Fatalf("DefaultIdleTimeout = %v, want 5m", cfg.DefaultIdleTimeout)
	}
	if len(cfg.Classes) != 1 {
		t.Fatalf("len(Classes) = %d, want 1", len(cfg.Classes))
	}

	cc := cfg.Classes[0]
	if cc.Class != "counter" || cc.Capacity != 16 || cc.IdleTimeout != 30*time.Second {
		t.Fatalf("unexpected class config: %+v", cc)
	}

	schema, err := cc.ToSchema()
	if err != nil {
		t.Fatalf("ToSchema: %v", err)
	}
	if schema["count"].Type != agent.FieldInt {
		t.Fatalf("count field type = %v, want int", schema["count"].Type)
	}
	if !schema["label"].Required {
		t.Fatal("label field should be required")
	}

	strict, err := cc.StrictMode()
	if err != nil {
		t.Fatalf("StrictMode: %v", err)
	}
	if strict != agent.StrictModeReject {
		t.Fatalf("StrictMode = %v, want StrictModeReject", strict)
	}
}

func TestClassConfigRejectsUnknownFieldType(t *testing.T) {
	cc := ClassConfig{Class: "x", Schema: map[string]FieldConfig{"f": {Type: "wat"}}}
	if _, err := cc.ToSchema(); err == nil {
		t.Fatal("expected an error for an unknown field type")
	}
}

func TestClassConfigRejectsUnknownStrictMode(t *testing.T) {
	cc := ClassConfig{Class: "x", Strict: "wat"}
	if _, err := cc.StrictMode(); err == nil {
		t.Fatal("expected an error for an unknown strict_mode")
	}
}
