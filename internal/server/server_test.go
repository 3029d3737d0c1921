/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package server

import (
	"context"
	"testing"
	"time"

	"github.com/marcus-qen/agentcore/internal/agent"
	"github.com/marcus-qen/agentcore/internal/directive"
	"github.com/marcus-qen/agentcore/internal/signal"
)

func counterSchema() agent.Schema {
	return agent.Schema{
		"count": {Type: agent.FieldInt, Default: int64(0)},
	}
}

type incrementAction struct{}

func (incrementAction) Name() string               { return "increment" }
func (incrementAction) ParamSchema() agent.Schema   { return nil }
func (incrementAction) Run(ctx context.Context, params map[string]any, rc agent.RunContext) agent.ActionResult {
	count, _ := rc.State["count"].(int64)
	return agent.ActionResult{
		Directives: []agent.Directive{
			directive.StateModification{Op: directive.OpSet, Path: []string{"count"}, Value: count + 1},
		},
	}
}

func newTestServer(t *testing.T, capacity int, idleTimeout time.Duration) (*Server, Handle) {
	t.Helper()
	v, err := agent.New("counter", counterSchema(), nil, agent.StrictModeWarn)
	if err != nil {
		t.Fatalf("agent.New: %v", err)
	}
	v = v.RegisterAction(incrementAction{})

	router := signal.NewRouter()
	router.Register("counter.tick", Plan(func(sig signal.Signal, state map[string]any) []agent.Instruction {
		return []agent.Instruction{{Action: "increment"}}
	}))

	s, h := New(Config{
		InstanceID:  "inst-1",
		Class:       "counter",
		Capacity:    capacity,
		IdleTimeout: idleTimeout,
		Router:      router,
	}, v)
	return s, h
}

// TestQueueOverflowReturnsQueueError covers scenario S2: a Cast against
// a full queue never blocks the caller, it returns a KindQueue error.
func TestQueueOverflowReturnsQueueError(t *testing.T) {
	s, h := newTestServer(t, 1, 0)
	_ = s // server goroutine intentionally never started: queue stays full after the first Cast

	if err := h.Cast(signal.New("counter.tick", nil)); err != nil {
		t.Fatalf("first Cast: unexpected error %v", err)
	}
	err := h.Cast(signal.New("counter.tick", nil))
	if err == nil {
		t.Fatal("expected queue overflow error, got nil")
	}
}

// TestProcessSignalAppliesStateModification covers scenario S1: a
// signal routed to an action whose directives fold into agent state.
func TestProcessSignalAppliesStateModification(t *testing.T) {
	s, h := newTestServer(t, 8, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	snap, err := h.Call(ctx, signal.New("counter.tick", nil))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got, _ := snap.State["count"].(int64); got != 1 {
		t.Fatalf("count = %v, want 1", got)
	}

	snap, err = h.Call(ctx, signal.New("counter.tick", nil))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got, _ := snap.State["count"].(int64); got != 2 {
		t.Fatalf("count = %v, want 2", got)
	}

	h.Stop()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down after Stop")
	}
}

// TestIdleTimeoutFiresOnlyAtZeroAttachments covers scenario S2's
// companion idle-timeout behavior: the timer is suppressed entirely
// while at least one attachment is outstanding, and only starts
// counting down again once the last Detach brings the count to zero.
func TestIdleTimeoutFiresOnlyAtZeroAttachments(t *testing.T) {
	s, h := newTestServer(t, 8, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	h.Attach()
	time.Sleep(150 * time.Millisecond) // longer than idleTimeout; must not fire while attached

	select {
	case <-s.Done():
		t.Fatal("server shut down while an attachment was outstanding")
	default:
	}

	h.Detach()

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("server did not idle-timeout after the last detach")
	}
}

type scheduleSelfAction struct{}

func (scheduleSelfAction) Name() string             { return "schedule_self" }
func (scheduleSelfAction) ParamSchema() agent.Schema { return nil }
func (scheduleSelfAction) Run(ctx context.Context, params map[string]any, rc agent.RunContext) agent.ActionResult {
	return agent.ActionResult{
		Directives: []agent.Directive{
			directive.Schedule{JobID: "job-1", Delay: 30 * time.Millisecond, SignalType: "counter.tick"},
		},
	}
}

// TestScheduleDeliversDelayedSignal exercises a Schedule directive's
// one-shot delay path through the Host implementation: an action emits
// Schedule, the Host's Schedule implementation arms a timer, and the
// timer later re-casts the signal onto the server's own intake.
func TestScheduleDeliversDelayedSignal(t *testing.T) {
	v, err := agent.New("counter", counterSchema(), nil, agent.StrictModeWarn)
	if err != nil {
		t.Fatalf("agent.New: %v", err)
	}
	v = v.RegisterAction(incrementAction{})
	v = v.RegisterAction(scheduleSelfAction{})

	router := signal.NewRouter()
	router.Register("counter.tick", Plan(func(sig signal.Signal, state map[string]any) []agent.Instruction {
		return []agent.Instruction{{Action: "increment"}}
	}))
	router.Register("counter.schedule_self", Plan(func(sig signal.Signal, state map[string]any) []agent.Instruction {
		return []agent.Instruction{{Action: "schedule_self"}}
	}))

	s, h := New(Config{InstanceID: "inst-2", Class: "counter", Capacity: 8, Router: router}, v)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)
	defer h.Stop()

	if _, err := h.Call(ctx, signal.New("counter.schedule_self", nil)); err != nil {
		t.Fatalf("Call: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := h.State(ctx)
		if err != nil {
			t.Fatalf("State: %v", err)
		}
		if got, _ := snap.State["count"].(int64); got == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("scheduled signal was never delivered")
}
