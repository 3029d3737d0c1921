/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package instance

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marcus-qen/agentcore/internal/agent"
	"github.com/marcus-qen/agentcore/internal/agenterr"
)

// ManagerConfig is the YAML-loadable shape of a Manager's defaults and
// its agent class declarations: a class's schema, strictness, and
// queue/idle-timeout defaults are pure data, so they live here rather
// than in code. Actions and routing remain Go — there is no bundled
// scripting layer for those, unlike the teacher's skill sources.
type ManagerConfig struct {
	DefaultCapacity    int           `yaml:"default_capacity"`
	DefaultIdleTimeout time.Duration `yaml:"default_idle_timeout"`
	Classes            []ClassConfig `yaml:"classes"`
}

// ClassConfig is one agent class's declarative configuration. The
// caller still supplies the class's Action implementations and Router
// in code (via RegisterClassConfig) — this only carries the
// data-shaped parts.
type ClassConfig struct {
	Class       string                 `yaml:"class"`
	Strict      string                 `yaml:"strict_mode"`
	Capacity    int                    `yaml:"capacity"`
	IdleTimeout time.Duration          `yaml:"idle_timeout"`
	Schema      map[string]FieldConfig `yaml:"schema"`
}

// FieldConfig is the YAML shape of a single agent.FieldSpec.
type FieldConfig struct {
	Type     string `yaml:"type"`
	Required bool   `yaml:"required"`
	Default  any    `yaml:"default"`
}

// LoadManagerConfig parses a ManagerConfig from r.
func LoadManagerConfig(r io.Reader) (ManagerConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ManagerConfig{}, agenterr.Wrap(err, agenterr.KindConfig, "reading manager config")
	}
	var cfg ManagerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ManagerConfig{}, agenterr.Wrap(err, agenterr.KindConfig, "parsing manager config YAML")
	}
	return cfg, nil
}

// ToSchema converts the YAML field declarations into an agent.Schema.
func (c ClassConfig) ToSchema() (agent.Schema, error) {
	out := make(agent.Schema, len(c.Schema))
	for name, f := range c.Schema {
		t, err := parseFieldType(f.Type)
		if err != nil {
			return nil, agenterr.Wrapf(err, agenterr.KindConfig, "class %q field %q", c.Class, name)
		}
		out[name] = agent.FieldSpec{Type: t, Required: f.Required, Default: f.Default}
	}
	return out, nil
}

// StrictMode converts the YAML strictness string ("warn"/"reject",
// default "warn") into an agent.StrictMode.
func (c ClassConfig) StrictMode() (agent.StrictMode, error) {
	switch c.Strict {
	case "", "warn":
		return agent.StrictModeWarn, nil
	case "reject":
		return agent.StrictModeReject, nil
	default:
		return 0, agenterr.Newf(agenterr.KindConfig, "class %q: unknown strict_mode %q", c.Class, c.Strict)
	}
}

func parseFieldType(t string) (agent.FieldType, error) {
	switch agent.FieldType(t) {
	case agent.FieldString, agent.FieldInt, agent.FieldFloat, agent.FieldBool, agent.FieldMap, agent.FieldList, agent.FieldAny:
		return agent.FieldType(t), nil
	default:
		return "", fmt.Errorf("unknown field type %q", t)
	}
}
