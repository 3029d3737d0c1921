/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package instance implements the Instance Manager: a keyed-singleton
// registry that get-or-creates one Agent Server per (class, instance
// id) pair and hands callers back a server.Handle, never the Server
// itself. Grounded on the teacher's state.Manager get-or-create
// pattern (a mutex-guarded map keyed by object identity, lazily
// constructing and caching the managed resource on first lookup,
// loading any existing persisted state before serving a fresh one).
package instance

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/marcus-qen/agentcore/internal/agent"
	"github.com/marcus-qen/agentcore/internal/agenterr"
	"github.com/marcus-qen/agentcore/internal/server"
	"github.com/marcus-qen/agentcore/internal/signal"
	"github.com/marcus-qen/agentcore/internal/storage"
)

// ClassSpec is a registered agent class: its schema, actions, signal
// routing, and the server-level defaults new instances of this class
// should start with.
type ClassSpec struct {
	Class       string
	Schema      agent.Schema
	Strict      agent.StrictMode
	Actions     []agent.Action
	Router      *signal.Router
	Capacity    int
	IdleTimeout time.Duration
	Dispatchers map[string]server.Dispatcher
}

// running is what the Manager keeps per live instance.
type running struct {
	handle server.Handle
	srv    *server.Server
	cancel context.CancelFunc
}

// Manager owns the instance registry. One Manager typically backs an
// entire process; its Get is safe for concurrent callers racing to
// create the same instance id.
type Manager struct {
	mu        sync.Mutex
	specs     map[string]ClassSpec
	instances map[string]*running
	storage   storage.Adapter
	log       logr.Logger
}

// NewManager constructs an empty Manager. Register class specs with
// RegisterClass before calling Get.
func NewManager(store storage.Adapter, log logr.Logger) *Manager {
	return &Manager{
		specs:     make(map[string]ClassSpec),
		instances: make(map[string]*running),
		storage:   store,
		log:       log,
	}
}

// RegisterClass makes spec.Class available to Get and SpawnAgent
// directives. Registering the same class twice replaces the spec for
// instances created afterward; already-running instances keep their
// original configuration.
func (m *Manager) RegisterClass(spec ClassSpec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.specs[spec.Class] = spec
}

// RegisterClassConfig builds a ClassSpec from a YAML-loaded ClassConfig
// plus the Go-side parts a config file cannot express (actions,
// routing, dispatch sinks) and registers it.
func (m *Manager) RegisterClassConfig(cfg ClassConfig, actions []agent.Action, router *signal.Router, dispatchers map[string]server.Dispatcher) error {
	schema, err := cfg.ToSchema()
	if err != nil {
		return err
	}
	strict, err := cfg.StrictMode()
	if err != nil {
		return err
	}
	m.RegisterClass(ClassSpec{
		Class:       cfg.Class,
		Schema:      schema,
		Strict:      strict,
		Actions:     actions,
		Router:      router,
		Capacity:    cfg.Capacity,
		IdleTimeout: cfg.IdleTimeout,
		Dispatchers: dispatchers,
	})
	return nil
}

// Get returns the Handle for instanceID, creating and starting its
// Server on first lookup. A concurrent Get for the same id blocks on
// m.mu rather than racing to create two Servers for one id.
func (m *Manager) Get(ctx context.Context, instanceID, class string) (server.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.instances[instanceID]; ok {
		return r.handle, nil
	}

	spec, ok := m.specs[class]
	if !ok {
		return server.Handle{}, agenterr.Newf(agenterr.KindConfig, "no registered class %q", class)
	}

	initial := map[string]any{}
	var threadRevision int64
	if m.storage != nil {
		cp, found, err := m.storage.GetCheckpoint(ctx, instanceID)
		if err != nil {
			return server.Handle{}, agenterr.Wrap(err, agenterr.KindConfig, "loading checkpoint")
		}
		if found {
			if err := m.verifyThread(ctx, instanceID, cp); err != nil {
				return server.Handle{}, err
			}
			initial = cp.State
			threadRevision = cp.ThreadRevision
		}
	}

	v, err := agent.New(class, spec.Schema, initial, spec.Strict)
	if err != nil {
		return server.Handle{}, agenterr.Wrap(err, agenterr.KindConfig, "building initial agent value")
	}
	for _, a := range spec.Actions {
		v = v.RegisterAction(a)
	}

	srv, h := server.New(server.Config{
		InstanceID:            instanceID,
		Class:                 class,
		Capacity:              spec.Capacity,
		IdleTimeout:           spec.IdleTimeout,
		Router:                spec.Router,
		Dispatchers:           spec.Dispatchers,
		Storage:               m.storage,
		SpawnAgent:            m.spawnAgent,
		StopAgent:             m.stopAgent,
		InitialThreadRevision: threadRevision,
		Log:                   m.log,
	}, v)

	runCtx, cancel := context.WithCancel(context.Background())
	m.instances[instanceID] = &running{handle: h, srv: srv, cancel: cancel}
	go srv.Start(runCtx)

	return h, nil
}

// verifyThread checks that a thawed checkpoint's ThreadRevision still
// has a matching entry in the append-only thread, closing the
// checkpoint/thread split: a checkpoint with a non-zero ThreadRevision
// but no corresponding thread entries (storage pruned or never wrote
// it) is a missing_thread error; a checkpoint whose recorded revision
// disagrees with the thread's latest entry is a thread_mismatch error.
// A checkpoint with ThreadRevision zero predates any appended entry
// and is accepted without a thread lookup.
func (m *Manager) verifyThread(ctx context.Context, instanceID string, cp storage.Checkpoint) error {
	if cp.ThreadRevision == 0 {
		return nil
	}
	entries, err := m.storage.LoadThread(ctx, instanceID, cp.ThreadRevision)
	if err != nil {
		return agenterr.Wrap(err, agenterr.KindExecution, "loading thread").WithMeta("reason", "missing_thread")
	}
	if len(entries) == 0 {
		return agenterr.Newf(agenterr.KindExecution, "no thread entries found for instance %q at or after revision %d", instanceID, cp.ThreadRevision).
			WithMeta("reason", "missing_thread")
	}
	last := entries[len(entries)-1]
	if last.Revision != cp.ThreadRevision {
		return agenterr.Newf(agenterr.KindExecution, "checkpoint thread revision %d for instance %q does not match thread's latest revision %d", cp.ThreadRevision, instanceID, last.Revision).
			WithMeta("reason", "thread_mismatch")
	}
	return nil
}

// Stop stops instanceID's server, if running, and removes it from the
// registry. Stopping an unknown id is a no-op.
func (m *Manager) Stop(instanceID, reason string) {
	m.mu.Lock()
	r, ok := m.instances[instanceID]
	if ok {
		delete(m.instances, instanceID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	r.handle.Stop()
	// Give the graceful stop (which writes the checkpoint) a bounded
	// window before cancelling the server's context.
	select {
	case <-r.srv.Done():
	case <-time.After(5 * time.Second):
	}
	r.cancel()
}

// Snapshots returns a read-only snapshot of every live instance.
func (m *Manager) Snapshots(ctx context.Context) []server.Snapshot {
	m.mu.Lock()
	handles := make([]server.Handle, 0, len(m.instances))
	for _, r := range m.instances {
		handles = append(handles, r.handle)
	}
	m.mu.Unlock()

	out := make([]server.Snapshot, 0, len(handles))
	for _, h := range handles {
		if snap, err := h.State(ctx); err == nil {
			out = append(out, snap)
		}
	}
	return out
}

// spawnAgent implements server.SpawnAgentFunc: it is injected into
// every Server this Manager creates so a SpawnAgent directive can
// bring up another managed instance without internal/server importing
// this package.
func (m *Manager) spawnAgent(instanceID, class string, initState map[string]any) error {
	m.mu.Lock()
	if _, ok := m.instances[instanceID]; ok {
		m.mu.Unlock()
		return agenterr.Newf(agenterr.KindConfig, "instance %q already running", instanceID)
	}
	spec, ok := m.specs[class]
	m.mu.Unlock()
	if !ok {
		return agenterr.Newf(agenterr.KindConfig, "no registered class %q", class)
	}

	v, err := agent.New(class, spec.Schema, initState, spec.Strict)
	if err != nil {
		return agenterr.Wrap(err, agenterr.KindConfig, "building spawned agent value")
	}
	for _, a := range spec.Actions {
		v = v.RegisterAction(a)
	}

	m.mu.Lock()
	if _, ok := m.instances[instanceID]; ok {
		m.mu.Unlock()
		return agenterr.Newf(agenterr.KindConfig, "instance %q already running", instanceID)
	}
	srv, h := server.New(server.Config{
		InstanceID:  instanceID,
		Class:       class,
		Capacity:    spec.Capacity,
		IdleTimeout: spec.IdleTimeout,
		Router:      spec.Router,
		Dispatchers: spec.Dispatchers,
		Storage:     m.storage,
		SpawnAgent:  m.spawnAgent,
		StopAgent:   m.stopAgent,
		Log:         m.log,
	}, v)
	runCtx, cancel := context.WithCancel(context.Background())
	m.instances[instanceID] = &running{handle: h, srv: srv, cancel: cancel}
	m.mu.Unlock()

	go srv.Start(runCtx)
	return nil
}

// stopAgent implements server.StopAgentFunc.
func (m *Manager) stopAgent(instanceID, reason string) {
	m.Stop(instanceID, reason)
}
