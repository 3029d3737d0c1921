/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package storage

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/marcus-qen/agentcore/internal/agenterr"
)

// MemoryAdapter is an in-process Adapter backed by plain maps, for
// tests and single-process deployments. Quota checks mirror the
// teacher's state.Manager.Set: value size is checked before the write
// is accepted, not after.
type MemoryAdapter struct {
	mu          sync.RWMutex
	checkpoints map[string]Checkpoint
	threads     map[string][]ThreadEntry
	maxState    int
	maxEntry    int
}

// NewMemoryAdapter returns an empty MemoryAdapter with default quotas.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		checkpoints: make(map[string]Checkpoint),
		threads:     make(map[string][]ThreadEntry),
		maxState:    DefaultMaxStateBytes,
		maxEntry:    DefaultMaxThreadEntryBytes,
	}
}

func (m *MemoryAdapter) PutCheckpoint(ctx context.Context, cp Checkpoint) error {
	size, err := jsonSize(cp.State)
	if err != nil {
		return agenterr.Wrap(err, agenterr.KindConfig, "marshal checkpoint state")
	}
	if size > m.maxState {
		return agenterr.Newf(agenterr.KindConfig, "checkpoint state size %d exceeds max %d bytes", size, m.maxState)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints[cp.InstanceID] = cp
	return nil
}

func (m *MemoryAdapter) GetCheckpoint(ctx context.Context, instanceID string) (Checkpoint, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp, ok := m.checkpoints[instanceID]
	return cp, ok, nil
}

func (m *MemoryAdapter) DeleteCheckpoint(ctx context.Context, instanceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checkpoints, instanceID)
	delete(m.threads, instanceID)
	return nil
}

func (m *MemoryAdapter) AppendThread(ctx context.Context, instanceID string, entry ThreadEntry) (int64, error) {
	size, err := jsonSize(entry.Data)
	if err != nil {
		return 0, agenterr.Wrap(err, agenterr.KindConfig, "marshal thread entry")
	}
	if size > m.maxEntry {
		return 0, agenterr.Newf(agenterr.KindConfig, "thread entry size %d exceeds max %d bytes", size, m.maxEntry)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	entry.Revision = int64(len(m.threads[instanceID])) + 1
	m.threads[instanceID] = append(m.threads[instanceID], entry)
	return entry.Revision, nil
}

func (m *MemoryAdapter) LoadThread(ctx context.Context, instanceID string, fromRevision int64) ([]ThreadEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.threads[instanceID]
	out := make([]ThreadEntry, 0, len(all))
	for _, e := range all {
		if e.Revision >= fromRevision {
			out = append(out, e)
		}
	}
	return out, nil
}

func jsonSize(v map[string]any) (int, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}
