/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package server

import "sync"

// goroutineChild is the directive.Child for a bare Spawn directive: a
// supervised goroutine that exits when its stop channel closes.
type goroutineChild struct {
	stop chan struct{}
	once sync.Once
}

func newGoroutineChild() *goroutineChild {
	return &goroutineChild{stop: make(chan struct{})}
}

func (c *goroutineChild) Stop(reason string) {
	c.once.Do(func() { close(c.stop) })
}

// SpawnAgentFunc is supplied by whatever owns the Instance Manager
// (internal/instance) so that SpawnAgent directives can start a new
// managed instance without this package importing internal/instance,
// which would create an import cycle (instance already depends on
// server to build the Servers it manages).
type SpawnAgentFunc func(instanceID, class string, initState map[string]any) error

// StopAgentFunc mirrors SpawnAgentFunc for StopChild directives that
// target a spawned agent instance rather than a bare goroutine.
type StopAgentFunc func(instanceID, reason string)
