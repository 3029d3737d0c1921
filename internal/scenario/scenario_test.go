/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package scenario

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/go-logr/logr"

	"github.com/marcus-qen/agentcore/internal/agent"
	"github.com/marcus-qen/agentcore/internal/agenterr"
	"github.com/marcus-qen/agentcore/internal/directive"
	"github.com/marcus-qen/agentcore/internal/instance"
	"github.com/marcus-qen/agentcore/internal/server"
	"github.com/marcus-qen/agentcore/internal/signal"
	"github.com/marcus-qen/agentcore/internal/storage"
)

// evalAction is S1's single arithmetic action: it never actually
// parses expression, it only resolves the one literal this suite
// feeds it, which is enough to exercise set -> plan -> run end to end.
type evalAction struct{}

func (evalAction) Name() string             { return "Eval" }
func (evalAction) ParamSchema() agent.Schema { return nil }
func (evalAction) Run(ctx context.Context, params map[string]any, rc agent.RunContext) agent.ActionResult {
	expr, _ := params["expression"].(string)
	result := 0
	if expr == "2+3" {
		result = 5
	}
	return agent.ActionResult{
		Directives: []agent.Directive{
			directive.StateModification{Op: directive.OpSet, Path: []string{"result"}, Value: result},
		},
	}
}

var _ = Describe("S1: arithmetic action with directive", func() {
	It("replies with the action's result and folds it into agent state", func() {
		v, err := agent.New("Calc", agent.Schema{"result": {Type: agent.FieldInt, Default: 0}}, nil, agent.StrictModeWarn)
		Expect(err).NotTo(HaveOccurred())
		v = v.RegisterAction(evalAction{})

		router := signal.NewRouter()
		router.Register("instruction", server.Plan(func(sig signal.Signal, state map[string]any) []agent.Instruction {
			action, _ := sig.Data["action"].(string)
			params, _ := sig.Data["params"].(map[string]any)
			return []agent.Instruction{{Action: action, Params: params}}
		}))

		s, h := server.New(server.Config{InstanceID: "calc-1", Class: "Calc", Router: router}, v)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go s.Start(ctx)

		snap, err := h.Call(ctx, signal.New("instruction", map[string]any{
			"action": "Eval",
			"params": map[string]any{"expression": "2+3"},
		}))
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.State["result"]).To(Equal(5))

		h.Stop()
		Eventually(s.Done(), 2*time.Second).Should(BeClosed())
	})
})

var counterTickRouter = func() *signal.Router {
	r := signal.NewRouter()
	r.Register("counter.tick", server.Plan(func(sig signal.Signal, state map[string]any) []agent.Instruction {
		return []agent.Instruction{{Action: "increment"}}
	}))
	return r
}

type incrementAction struct{}

func (incrementAction) Name() string             { return "increment" }
func (incrementAction) ParamSchema() agent.Schema { return nil }
func (incrementAction) Run(ctx context.Context, params map[string]any, rc agent.RunContext) agent.ActionResult {
	count, _ := rc.State["count"].(int)
	return agent.ActionResult{
		Directives: []agent.Directive{
			directive.StateModification{Op: directive.OpSet, Path: []string{"count"}, Value: count + 1},
		},
	}
}

var _ = Describe("S2: queue overflow", func() {
	It("rejects a Cast once the bounded queue is full instead of blocking", func() {
		v, err := agent.New("counter", agent.Schema{"count": {Type: agent.FieldInt, Default: 0}}, nil, agent.StrictModeWarn)
		Expect(err).NotTo(HaveOccurred())
		v = v.RegisterAction(incrementAction{})

		_, h := server.New(server.Config{InstanceID: "overflow-1", Class: "counter", Capacity: 3, Router: counterTickRouter()}, v)
		// The server goroutine is never started: every Cast lands
		// straight in the bounded channel with nothing draining it.
		for i := 0; i < 3; i++ {
			Expect(h.Cast(signal.New("counter.tick", nil))).To(Succeed())
		}
		err = h.Cast(signal.New("counter.tick", nil))
		Expect(err).To(HaveOccurred())
		Expect(agenterr.IsKind(err, agenterr.KindQueue)).To(BeTrue())
	})
})

// counterStepAction is S3's iterator: it re-enqueues itself with
// step+1 until step reaches max, folding count into state each turn.
type counterStepAction struct{}

func (counterStepAction) Name() string             { return "counter_step" }
func (counterStepAction) ParamSchema() agent.Schema { return nil }
func (counterStepAction) Run(ctx context.Context, params map[string]any, rc agent.RunContext) agent.ActionResult {
	step, _ := params["step"].(int)
	max, _ := params["max"].(int)
	if step >= max {
		return agent.ActionResult{
			Directives: []agent.Directive{
				directive.StateModification{Op: directive.OpSet, Path: []string{"count"}, Value: step},
			},
		}
	}
	return agent.ActionResult{
		Directives: []agent.Directive{
			directive.StateModification{Op: directive.OpSet, Path: []string{"count"}, Value: step + 1},
			directive.Enqueue{SignalType: "counter.step", Data: map[string]any{"step": step + 1, "max": max}},
		},
	}
}

var _ = Describe("S3: iterator directive loop", func() {
	It("re-enqueues itself until the terminal step, settling on the expected count", func() {
		v, err := agent.New("iterator", agent.Schema{"count": {Type: agent.FieldInt, Default: 0}}, nil, agent.StrictModeWarn)
		Expect(err).NotTo(HaveOccurred())
		v = v.RegisterAction(counterStepAction{})

		router := signal.NewRouter()
		router.Register("counter.step", server.Plan(func(sig signal.Signal, state map[string]any) []agent.Instruction {
			return []agent.Instruction{{Action: "counter_step", Params: sig.Data}}
		}))

		s, h := server.New(server.Config{InstanceID: "iter-1", Class: "iterator", Capacity: 16, Router: router}, v)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go s.Start(ctx)

		Expect(h.Cast(signal.New("counter.step", map[string]any{"step": 0, "max": 3}))).To(Succeed())

		Eventually(func() int {
			snap, err := h.State(ctx)
			if err != nil {
				return -1
			}
			count, _ := snap.State["count"].(int)
			return count
		}, 2*time.Second, 10*time.Millisecond).Should(Equal(3))

		events, err := h.RecentEvents(ctx)
		Expect(err).NotTo(HaveOccurred())
		signalTurns := 0
		for _, e := range events {
			if e.Kind == "signal" {
				signalTurns++
			}
		}
		Expect(signalTurns).To(Equal(4))

		h.Stop()
		Eventually(s.Done(), 2*time.Second).Should(BeClosed())
	})
})

var _ = Describe("S4: instance manager lookup-or-start", func() {
	It("hibernates on Stop and thaws the same state into a new handle on the next Get", func() {
		store := storage.NewMemoryAdapter()
		m := instance.NewManager(store, logr.Discard())

		router := signal.NewRouter()
		router.Register("counter.tick", server.Plan(func(sig signal.Signal, state map[string]any) []agent.Instruction {
			return []agent.Instruction{{Action: "increment"}}
		}))
		m.RegisterClass(instance.ClassSpec{
			Class:    "counter",
			Schema:   agent.Schema{"count": {Type: agent.FieldInt, Default: 0}},
			Strict:   agent.StrictModeWarn,
			Actions:  []agent.Action{incrementAction{}},
			Router:   router,
			Capacity: 8,
		})

		ctx := context.Background()
		h1, err := m.Get(ctx, "user-1", "counter")
		Expect(err).NotTo(HaveOccurred())

		snap, err := h1.Call(ctx, signal.New("counter.tick", nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.State["count"]).To(Equal(1))

		m.Stop("user-1", "scenario teardown")
		Eventually(func() bool {
			_, found, _ := store.GetCheckpoint(ctx, "user-1")
			return found
		}, 2*time.Second, 10*time.Millisecond).Should(BeTrue())

		h2, err := m.Get(ctx, "user-1", "counter")
		Expect(err).NotTo(HaveOccurred())
		Expect(h2.InstanceID()).To(Equal(h1.InstanceID()))

		snap2, err := h2.State(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(snap2.State["count"]).To(Equal(1))
	})
})

type scheduleSelfAction struct{}

func (scheduleSelfAction) Name() string             { return "schedule_self" }
func (scheduleSelfAction) ParamSchema() agent.Schema { return nil }
func (scheduleSelfAction) Run(ctx context.Context, params map[string]any, rc agent.RunContext) agent.ActionResult {
	return agent.ActionResult{
		Directives: []agent.Directive{
			directive.Schedule{JobID: "tick-job", Delay: 100 * time.Millisecond, SignalType: "tick"},
		},
	}
}

type incrementTicksAction struct{}

func (incrementTicksAction) Name() string             { return "increment_ticks" }
func (incrementTicksAction) ParamSchema() agent.Schema { return nil }
func (incrementTicksAction) Run(ctx context.Context, params map[string]any, rc agent.RunContext) agent.ActionResult {
	ticks, _ := rc.State["ticks"].(int)
	return agent.ActionResult{
		Directives: []agent.Directive{
			directive.StateModification{Op: directive.OpSet, Path: []string{"ticks"}, Value: ticks + 1},
			directive.Schedule{JobID: "tick-job", Delay: 100 * time.Millisecond, SignalType: "tick"},
		},
	}
}

var _ = Describe("S5: cron-like delayed signal", func() {
	It("keeps delivering a rescheduled signal on roughly its delay cadence", func() {
		v, err := agent.New("ticker", agent.Schema{"ticks": {Type: agent.FieldInt, Default: 0}}, nil, agent.StrictModeWarn)
		Expect(err).NotTo(HaveOccurred())
		v = v.RegisterAction(scheduleSelfAction{}).RegisterAction(incrementTicksAction{})

		router := signal.NewRouter()
		router.Register("start", server.Plan(func(sig signal.Signal, state map[string]any) []agent.Instruction {
			return []agent.Instruction{{Action: "schedule_self"}}
		}))
		router.Register("tick", server.Plan(func(sig signal.Signal, state map[string]any) []agent.Instruction {
			return []agent.Instruction{{Action: "increment_ticks"}}
		}))

		s, h := server.New(server.Config{InstanceID: "ticker-1", Class: "ticker", Capacity: 32, Router: router}, v)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go s.Start(ctx)

		Expect(h.Cast(signal.New("start", nil))).To(Succeed())

		Eventually(func() int {
			snap, err := h.State(ctx)
			if err != nil {
				return -1
			}
			ticks, _ := snap.State["ticks"].(int)
			return ticks
		}, 1200*time.Millisecond, 20*time.Millisecond).Should(BeNumerically(">=", 9))

		h.Stop()
		Eventually(s.Done(), 2*time.Second).Should(BeClosed())
	})
})

var _ = Describe("S6: correlation propagation", func() {
	It("derives a caused signal that carries the root's trace id forward", func() {
		root := signal.New("A", map[string]any{}).WithSpan("span-A")
		child := root.Derive("B", map[string]any{})

		Expect(child.TraceID).To(Equal(root.TraceID))
		Expect(child.ParentSpanID).To(Equal(root.SpanID))
		Expect(child.CausationID).To(Equal(root.ID))
	})

	It("propagates the same correlation id across a chain of derivations", func() {
		root := signal.New("A", nil)
		var mu sync.Mutex
		seen := map[string]bool{}

		current := root
		for i := 0; i < 3; i++ {
			current = current.Derive("A.step", nil)
			mu.Lock()
			seen[current.CorrelationID] = true
			mu.Unlock()
		}

		Expect(seen).To(HaveLen(1))
		Expect(seen).To(HaveKey(root.CorrelationID))
	})
})
