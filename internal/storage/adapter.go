/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package storage is the Instance Manager's pluggable persistence
// layer: a small checkpoint (hibernated agent state) referencing a
// separately appended, revision-addressed thread, so a checkpoint
// never grows unbounded the way the teacher's AgentState CRD entries
// could. Grounded on internal/state/manager.go's get-or-create +
// quota-checked entry model, generalized from a single CRD-backed key
// value store to a pluggable adapter with in-memory, Postgres, and
// MySQL implementations.
package storage

import (
	"context"
	"time"
)

// Quota defaults, carried over from the teacher's state.Manager
// constants (DefaultMaxKeys / DefaultMaxValueSize / DefaultMaxTotalSize)
// and reinterpreted for the checkpoint/thread split: MaxStateBytes
// bounds one checkpoint's serialized state, MaxThreadEntryBytes bounds
// one thread entry.
const (
	DefaultMaxStateBytes       = 65536
	DefaultMaxThreadEntryBytes = 4096
)

// Checkpoint is the small, frequently-read snapshot of a hibernated
// agent: its validated state plus a pointer to how far its thread has
// been appended.
type Checkpoint struct {
	InstanceID     string
	Class          string
	State          map[string]any
	ThreadRevision int64
	UpdatedAt      time.Time
}

// ThreadEntry is one append-only record in an instance's thread —
// typically the signal that produced a state change, kept separate
// from the checkpoint so replaying history doesn't require loading
// every past signal just to resume an instance.
type ThreadEntry struct {
	Revision  int64
	SignalType string
	Data      map[string]any
	CreatedAt time.Time
}

// Adapter is the storage contract the Instance Manager depends on.
// Every method is safe to call concurrently for different instance
// ids; concurrent calls for the same instance id are serialized by
// the Instance Manager, not by the adapter.
type Adapter interface {
	PutCheckpoint(ctx context.Context, cp Checkpoint) error
	GetCheckpoint(ctx context.Context, instanceID string) (Checkpoint, bool, error)
	DeleteCheckpoint(ctx context.Context, instanceID string) error

	AppendThread(ctx context.Context, instanceID string, entry ThreadEntry) (int64, error)
	LoadThread(ctx context.Context, instanceID string, fromRevision int64) ([]ThreadEntry, error)
}
