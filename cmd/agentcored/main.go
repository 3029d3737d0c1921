/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// agentcored wires a single in-process Instance Manager to an HTTP
// /metrics endpoint and a demo "echo" agent class so the runtime core
// can be exercised end to end. It is deliberately thin — a full
// management CLI and REST control surface are out of scope; see
// legatorctl in the teacher repo for what that would look like grown
// out from here.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marcus-qen/agentcore/internal/agent"
	"github.com/marcus-qen/agentcore/internal/directive"
	"github.com/marcus-qen/agentcore/internal/instance"
	"github.com/marcus-qen/agentcore/internal/metrics"
	"github.com/marcus-qen/agentcore/internal/server"
	agentsignal "github.com/marcus-qen/agentcore/internal/signal"
	"github.com/marcus-qen/agentcore/internal/storage"
	"github.com/marcus-qen/agentcore/internal/telemetry"
)

func main() {
	addr := flag.String("metrics-addr", ":9090", "address to serve /metrics on")
	otlpEndpoint := flag.String("otlp-endpoint", "", "OTLP collector endpoint; empty disables trace export")
	idleTimeout := flag.Duration("idle-timeout", 5*time.Minute, "agent idle timeout before its server shuts down")
	flag.Parse()

	stdr.SetVerbosity(1)
	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *otlpEndpoint != "" {
		shutdownTracing, err := telemetry.InitTraceProvider(ctx, *otlpEndpoint, "dev")
		if err != nil {
			logger.Error(err, "failed to initialize tracing, continuing without it")
		} else {
			defer shutdownTracing(context.Background())
		}
	}

	reg := metrics.NewRegistry()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	httpSrv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(err, "metrics server stopped unexpectedly")
		}
	}()

	mgr := instance.NewManager(storage.NewMemoryAdapter(), logger)
	spec := echoClassSpec(logger)
	spec.IdleTimeout = *idleTimeout
	mgr.RegisterClass(spec)

	logger.Info("agentcored ready", "metrics_addr", *addr, "idle_timeout", idleTimeout.String())

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}

// echoClassSpec is the demo agent class: it acknowledges an
// "echo.ping" signal by folding the received payload into its state
// and emitting a log-sink signal recording the round trip.
func echoClassSpec(logger logr.Logger) instance.ClassSpec {
	router := agentsignal.NewRouter()
	router.Register("echo.ping", server.Plan(func(sig agentsignal.Signal, state map[string]any) []agent.Instruction {
		return []agent.Instruction{{Action: "echo", Params: sig.Data}}
	}))

	return instance.ClassSpec{
		Class: "echo",
		Schema: agent.Schema{
			"last_message": {Type: agent.FieldAny},
			"ping_count":   {Type: agent.FieldInt, Default: int64(0)},
		},
		Strict:      agent.StrictModeWarn,
		Actions:     []agent.Action{echoAction{}},
		Router:      router,
		Capacity:    32,
		IdleTimeout: 5 * time.Minute,
		Dispatchers: map[string]server.Dispatcher{
			"log": server.LoggerDispatcher{Log: logger},
		},
	}
}

type echoAction struct{}

func (echoAction) Name() string             { return "echo" }
func (echoAction) ParamSchema() agent.Schema { return nil }

func (echoAction) Run(ctx context.Context, params map[string]any, rc agent.RunContext) agent.ActionResult {
	count, _ := rc.State["ping_count"].(int64)
	return agent.ActionResult{
		Directives: []agent.Directive{
			directive.StateModification{Op: directive.OpSet, Path: []string{"last_message"}, Value: params},
			directive.StateModification{Op: directive.OpSet, Path: []string{"ping_count"}, Value: count + 1},
			directive.Emit{SignalType: "echo.ponged", Data: params, Sink: "log"},
		},
	}
}
