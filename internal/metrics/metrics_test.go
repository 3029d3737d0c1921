/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	m := &dto.Metric{}
	if err := cv.WithLabelValues(labels...).Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func getGaugeVecValue(gv *prometheus.GaugeVec, labels ...string) float64 {
	m := &dto.Metric{}
	if err := gv.WithLabelValues(labels...).Write(m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

func getHistogramCount(hv *prometheus.HistogramVec, labels ...string) uint64 {
	m := &dto.Metric{}
	observer := hv.WithLabelValues(labels...)
	if c, ok := observer.(prometheus.Metric); ok {
		if err := c.Write(m); err != nil {
			return 0
		}
		return m.GetHistogram().GetSampleCount()
	}
	return 0
}

func TestRecordCmd(t *testing.T) {
	RecordCmd("counter", "ok", 42*time.Millisecond)

	val := getCounterValue(CmdTotal, "counter", "ok")
	if val < 1 {
		t.Errorf("CmdTotal = %f, want >= 1", val)
	}
	count := getHistogramCount(CmdDurationSeconds, "counter")
	if count < 1 {
		t.Errorf("CmdDurationSeconds sample count = %d, want >= 1", count)
	}
}

func TestRecordSignal(t *testing.T) {
	RecordSignal("counter", "cmd.state")
	val := getCounterValue(SignalsTotal, "counter", "cmd.state")
	if val < 1 {
		t.Errorf("SignalsTotal = %f, want >= 1", val)
	}
}

func TestRecordDirective(t *testing.T) {
	RecordDirective("emit", "ok")
	RecordDirective("emit", "ok")
	val := getCounterValue(DirectivesTotal, "emit", "ok")
	if val < 2 {
		t.Errorf("DirectivesTotal = %f, want >= 2", val)
	}
}

func TestRecordQueueOverflow(t *testing.T) {
	RecordQueueOverflow("counter")
	val := getCounterValue(QueueOverflowTotal, "counter")
	if val < 1 {
		t.Errorf("QueueOverflowTotal = %f, want >= 1", val)
	}
}

func TestSetQueueSize(t *testing.T) {
	SetQueueSize("inst-1", 3)
	if got := getGaugeVecValue(QueueSize, "inst-1"); got != 3 {
		t.Errorf("QueueSize = %f, want 3", got)
	}
	SetQueueSize("inst-1", 0)
	if got := getGaugeVecValue(QueueSize, "inst-1"); got != 0 {
		t.Errorf("QueueSize after drain = %f, want 0", got)
	}
}

func TestSetActiveInstances(t *testing.T) {
	SetActiveInstances("counter", 5)
	if got := getGaugeVecValue(ActiveInstances, "counter"); got != 5 {
		t.Errorf("ActiveInstances = %f, want 5", got)
	}
}

func TestNewRegistryGathersAllMetrics(t *testing.T) {
	reg := NewRegistry()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("unexpected error gathering metrics: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected at least one metric family registered")
	}
}

func TestLabelIsolation(t *testing.T) {
	RecordCmd("agent-a", "ok", 10*time.Millisecond)
	RecordCmd("agent-b", "error", 5*time.Millisecond)

	aOK := getCounterValue(CmdTotal, "agent-a", "ok")
	bError := getCounterValue(CmdTotal, "agent-b", "error")
	aError := getCounterValue(CmdTotal, "agent-a", "error")

	if aOK < 1 {
		t.Error("agent-a ok should be >= 1")
	}
	if bError < 1 {
		t.Error("agent-b error should be >= 1")
	}
	if aError != 0 {
		t.Errorf("agent-a error = %f, want 0", aError)
	}
}
