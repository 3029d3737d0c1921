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
	"time"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"

	"github.com/marcus-qen/agentcore/internal/agent"
	"github.com/marcus-qen/agentcore/internal/agenterr"
	"github.com/marcus-qen/agentcore/internal/directive"
	"github.com/marcus-qen/agentcore/internal/pipeline"
	"github.com/marcus-qen/agentcore/internal/signal"
	"github.com/marcus-qen/agentcore/internal/storage"
	"github.com/marcus-qen/agentcore/internal/telemetry"
)

// Plan resolves an incoming signal to the instructions a turn should
// run, given the agent's state at the time the signal was dequeued.
// Servers register one Plan per signal.Router pattern.
type Plan func(sig signal.Signal, state map[string]any) []agent.Instruction

// Config configures a new Server. Router, Runner, Hooks, Dispatchers
// and the Spawn/Stop agent callbacks are all optional; sensible
// defaults are filled in by New.
type Config struct {
	InstanceID    string
	Class         string
	Capacity      int
	IdleTimeout   time.Duration
	DebugCapacity int

	Router      *signal.Router
	Runner      pipeline.Runner
	Hooks       pipeline.Hooks
	Dispatchers map[string]Dispatcher
	SpawnAgent  SpawnAgentFunc
	StopAgent   StopAgentFunc
	Storage     storage.Adapter

	// InitialThreadRevision is the thread revision this instance was
	// thawed at (0 for a brand new instance), used as the starting
	// point for the AppendThread calls each processed signal makes.
	InitialThreadRevision int64

	Log logr.Logger
}

// Server is the Agent Server: the single goroutine owning v and
// processing one signal at a time. Every field below is touched only
// by the goroutine started in Start — no mutex guards them, because
// nothing else is allowed to.
type Server struct {
	instanceID string
	class      string
	v          agent.Value

	router *signal.Router
	runner pipeline.Runner
	hooks  pipeline.Hooks
	disp   registry
	log    logr.Logger
	store  storage.Adapter

	intake   chan envelope
	capacity int

	status      Status
	attachCount int
	idleTimeout time.Duration
	idleTimer   *time.Timer

	threadRevision     int64
	pendingWhilePaused []envelope

	children map[string]*goroutineChild
	spawnAgentFn SpawnAgentFunc
	stopAgentFn  StopAgentFunc

	delayTimers map[string]*time.Timer
	cronRunner  *cron.Cron
	cronJobs    map[string]cron.EntryID

	debugLevel telemetry.Level
	debugRing  []DebugEvent
	debugCap   int

	stopRequested chan string
	done          chan struct{}
}

// New constructs a Server in the initializing state around initial. Call
// Start to begin its goroutine; the returned Handle is safe to use
// immediately (it will simply queue behind the goroutine starting).
func New(cfg Config, initial agent.Value) (*Server, Handle) {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 64
	}
	debugCap := cfg.DebugCapacity
	if debugCap <= 0 {
		debugCap = 32
	}
	router := cfg.Router
	if router == nil {
		router = signal.NewRouter()
	}
	runner := cfg.Runner
	if runner == nil {
		runner = pipeline.NewRunner()
	}
	hooks := cfg.Hooks
	if hooks == nil {
		hooks = pipeline.DefaultHooks{}
	}
	log := cfg.Log
	disp := make(registry, len(cfg.Dispatchers))
	for k, v := range cfg.Dispatchers {
		disp[k] = v
	}

	s := &Server{
		instanceID:    cfg.InstanceID,
		class:         cfg.Class,
		v:             initial,
		router:        router,
		runner:        runner,
		hooks:         hooks,
		disp:          disp,
		log:           log,
		store:         cfg.Storage,
		intake:         make(chan envelope, capacity),
		capacity:       capacity,
		status:         StatusInitializing,
		threadRevision: cfg.InitialThreadRevision,
		idleTimeout:    cfg.IdleTimeout,
		children:      make(map[string]*goroutineChild),
		spawnAgentFn:  cfg.SpawnAgent,
		stopAgentFn:   cfg.StopAgent,
		delayTimers:   make(map[string]*time.Timer),
		cronRunner:    cron.New(),
		cronJobs:      make(map[string]cron.EntryID),
		debugLevel:    telemetry.LevelInfo,
		debugCap:      debugCap,
		stopRequested: make(chan string, 1),
		done:          make(chan struct{}),
	}

	h := Handle{instanceID: cfg.InstanceID, class: cfg.Class, intake: s.intake}
	return s, h
}

// Start runs the owner loop until Stop is called or ctx is cancelled.
// It blocks until the server has fully shut down; callers typically
// invoke it in its own goroutine.
func (s *Server) Start(ctx context.Context) {
	_ = s.transition(StatusIdle)
	s.cronRunner.Start()
	s.resetIdleTimer()

	var reason string
	var graceful bool

	var idleC <-chan time.Time
loop:
	for {
		if s.idleTimer != nil {
			idleC = s.idleTimer.C
		} else {
			idleC = nil
		}

		select {
		case env := <-s.intake:
			s.handleEnvelope(ctx, env)
		case <-idleC:
			s.recordEvent("idle_timeout", "", "", "no attachments before deadline")
			reason, graceful = "idle_timeout", true
			break loop
		case r := <-s.stopRequested:
			s.recordEvent("stop", "", "", r)
			reason, graceful = r, true
			break loop
		case <-ctx.Done():
			s.recordEvent("stop", "", "", "context cancelled")
			reason, graceful = "context cancelled", false
			break loop
		}
	}
	s.shutdown(reason, graceful)
}

// shutdown tears down children, timers, and the cron runner
// unconditionally, but only hibernates state through storage when
// graceful is true: an explicit stop request or an idle timeout gets a
// checkpoint to thaw from later, a context cancellation (process being
// killed, not the agent choosing to stop) does not get to assume its
// last-seen state is safe to resume from.
func (s *Server) shutdown(reason string, graceful bool) {
	_ = s.transition(StatusStopping)
	for _, c := range s.children {
		c.Stop("server shutting down")
	}
	for _, t := range s.delayTimers {
		t.Stop()
	}
	s.cronRunner.Stop()

	if graceful && s.store != nil {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = s.store.PutCheckpoint(bgCtx, storage.Checkpoint{
			InstanceID:     s.instanceID,
			Class:          s.class,
			State:          s.v.State(),
			ThreadRevision: s.threadRevision,
			UpdatedAt:      time.Now(),
		})
		cancel()
	}
	s.recordEvent("shutdown", "", "", reason)

	_ = s.transition(StatusStopped)
	close(s.done)
}

// Done returns a channel closed once the server has fully shut down.
func (s *Server) Done() <-chan struct{} { return s.done }

func (s *Server) handleEnvelope(ctx context.Context, env envelope) {
	switch env.kind {
	case envSignal:
		if s.status == StatusPaused {
			s.pendingWhilePaused = append(s.pendingWhilePaused, env)
			return
		}
		s.processSignal(ctx, env)
	case envAttach:
		s.attachCount++
		s.stopIdleTimer()
	case envDetach:
		if s.attachCount > 0 {
			s.attachCount--
		}
		if s.attachCount == 0 {
			s.resetIdleTimer()
		}
	case envQuery:
		env.reply <- reply{snapshot: s.snapshot()}
	case envSetDebug:
		s.debugLevel = env.debugLevel
	case envRecentEvents:
		env.reply <- reply{events: append([]DebugEvent{}, s.debugRing...)}
	case envStop:
		select {
		case s.stopRequested <- "requested":
		default:
		}
	case envResume:
		s.handleResume(ctx)
	case envCancel:
		s.handleCancel()
	}
}

// handleResume moves a paused server back to idle and replays whatever
// signals arrived (and were buffered) while it was paused. Resuming a
// server that is not paused is a no-op.
func (s *Server) handleResume(ctx context.Context) {
	if s.status != StatusPaused {
		return
	}
	if err := s.transition(StatusIdle); err != nil {
		return
	}
	pending := s.pendingWhilePaused
	s.pendingWhilePaused = nil
	for _, env := range pending {
		s.handleEnvelope(ctx, env)
	}
}

// handleCancel discards the in-progress turn's dirty/result/pending
// tracking via agent.Value.Reset (state and registered actions are
// left untouched) and drops any signals buffered while paused, then
// returns a paused server to idle.
func (s *Server) handleCancel() {
	s.v = s.v.Reset()
	s.pendingWhilePaused = nil
	s.recordEvent("cancel", "", "", "")
	if s.status == StatusPaused {
		_ = s.transition(StatusIdle)
	}
}

func (s *Server) snapshot() Snapshot {
	return Snapshot{
		InstanceID:  s.instanceID,
		Class:       s.class,
		Status:      s.status,
		QueueSize:   len(s.intake),
		AttachCount: s.attachCount,
		State:       s.v.State(),
	}
}

func (s *Server) processSignal(ctx context.Context, env envelope) {
	sig := env.sig
	s.recordEvent("signal", sig.Type, sig.CorrelationID, "")

	if err := s.transition(StatusPlanning); err != nil {
		s.replyError(env, err)
		return
	}

	handler, ok := s.router.Match(sig.Type)
	if !ok {
		err := agenterr.Newf(agenterr.KindQueue, "no matching handler for signal type %q", sig.Type).
			WithMeta("reason", "no_matching_handler")
		s.recordEvent("error", sig.Type, sig.CorrelationID, err.Error())
		if env.reply == nil {
			s.log.Info("no matching handler for signal", "signal_type", sig.Type, "correlation_id", sig.CorrelationID)
		}
		_ = s.transition(StatusIdle)
		s.replyError(env, err)
		return
	}

	var instructions []agent.Instruction
	if plan, ok := handler.(Plan); ok {
		instructions = plan(sig, s.v.State())
	}

	if err := s.transition(StatusRunning); err != nil {
		s.replyError(env, err)
		return
	}

	next, directives, err := pipeline.Cmd(ctx, s.v, instructions, sig.Data, pipeline.Options{
		InstanceID:    s.instanceID,
		SignalType:    sig.Type,
		CorrelationID: sig.CorrelationID,
		Runner:        s.runner,
		Hooks:         s.hooks,
	})
	if err != nil {
		s.recordEvent("error", sig.Type, sig.CorrelationID, err.Error())
		s.log.Error(err, "turn failed", "signal_type", sig.Type, "correlation_id", sig.CorrelationID)
	}
	s.v = next

	finalState, applyErr := directive.Apply(ctx, s, s.v.State(), directives)
	if applyErr != nil {
		s.recordEvent("error", sig.Type, sig.CorrelationID, applyErr.Error())
		s.log.Error(applyErr, "directive apply failed", "signal_type", sig.Type, "correlation_id", sig.CorrelationID)
	}
	if merged, mergeErr := s.v.Merge(finalState); mergeErr == nil {
		s.v = merged
	}

	if s.store != nil {
		if rev, appendErr := s.store.AppendThread(ctx, s.instanceID, storage.ThreadEntry{
			SignalType: sig.Type,
			Data:       sig.Data,
			CreatedAt:  time.Now(),
		}); appendErr == nil {
			s.threadRevision = rev
		}
	}

	if env.reply != nil {
		r := reply{snapshot: s.snapshot()}
		if err != nil {
			r.err = err
		} else if applyErr != nil {
			r.err = applyErr
		}
		env.reply <- r
	}

	// A Pause directive already moved status to paused via Host.Pause;
	// leave it there instead of forcing the turn back to idle.
	if s.status == StatusRunning {
		_ = s.transition(StatusIdle)
	}
}

// replyError sends err back to a synchronous caller's reply channel if
// one was supplied, otherwise it is a no-op — an async Cast caller
// only ever learns about a failed turn through the debug event log,
// per spec.md's handling of unmatched/failed async signals.
func (s *Server) replyError(env envelope, err error) {
	if env.reply != nil {
		env.reply <- reply{snapshot: s.snapshot(), err: err}
	}
}

func (s *Server) resetIdleTimer() {
	s.stopIdleTimer()
	if s.idleTimeout <= 0 {
		return
	}
	s.idleTimer = time.NewTimer(s.idleTimeout)
}

func (s *Server) stopIdleTimer() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

func (s *Server) recordEvent(kind, sigType, correlationID, detail string) {
	s.debugRing = append(s.debugRing, DebugEvent{
		At:            time.Now(),
		Kind:          kind,
		SignalType:    sigType,
		CorrelationID: correlationID,
		Detail:        detail,
	})
	if len(s.debugRing) > s.debugCap {
		s.debugRing = s.debugRing[len(s.debugRing)-s.debugCap:]
	}
}
