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
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcus-qen/agentcore/internal/agenterr"
)

// PostgresSchema is the DDL a deployment must apply before using
// PostgresAdapter. Kept as a constant rather than a migration tool
// since this core has no migration framework of its own — callers
// wire it into whatever migration system their deployment already
// uses.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS agent_checkpoints (
	instance_id     TEXT PRIMARY KEY,
	class           TEXT NOT NULL,
	state           JSONB NOT NULL,
	thread_revision BIGINT NOT NULL DEFAULT 0,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS agent_thread_entries (
	instance_id  TEXT NOT NULL,
	revision     BIGINT NOT NULL,
	signal_type  TEXT NOT NULL,
	data         JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (instance_id, revision)
);
`

// PostgresAdapter implements Adapter over a pgx connection pool.
type PostgresAdapter struct {
	pool *pgxpool.Pool
}

// NewPostgresAdapter wraps an already-configured pgxpool.Pool. The
// caller owns the pool's lifecycle (Close it on shutdown).
func NewPostgresAdapter(pool *pgxpool.Pool) *PostgresAdapter {
	return &PostgresAdapter{pool: pool}
}

func (p *PostgresAdapter) PutCheckpoint(ctx context.Context, cp Checkpoint) error {
	state, err := json.Marshal(cp.State)
	if err != nil {
		return agenterr.Wrap(err, agenterr.KindConfig, "marshal checkpoint state")
	}
	if len(state) > DefaultMaxStateBytes {
		return agenterr.Newf(agenterr.KindConfig, "checkpoint state size %d exceeds max %d bytes", len(state), DefaultMaxStateBytes)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO agent_checkpoints (instance_id, class, state, thread_revision, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (instance_id) DO UPDATE SET
			class = EXCLUDED.class,
			state = EXCLUDED.state,
			thread_revision = EXCLUDED.thread_revision,
			updated_at = EXCLUDED.updated_at
	`, cp.InstanceID, cp.Class, state, cp.ThreadRevision, cp.UpdatedAt)
	if err != nil {
		return agenterr.Wrap(err, agenterr.KindTransport, "put checkpoint")
	}
	return nil
}

func (p *PostgresAdapter) GetCheckpoint(ctx context.Context, instanceID string) (Checkpoint, bool, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT class, state, thread_revision, updated_at
		FROM agent_checkpoints WHERE instance_id = $1
	`, instanceID)

	var (
		class     string
		rawState  []byte
		revision  int64
		updatedAt time.Time
	)
	if err := row.Scan(&class, &rawState, &revision, &updatedAt); err != nil {
		if err.Error() == "no rows in result set" {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, agenterr.Wrap(err, agenterr.KindTransport, "get checkpoint")
	}

	state := make(map[string]any)
	if err := json.Unmarshal(rawState, &state); err != nil {
		return Checkpoint{}, false, agenterr.Wrap(err, agenterr.KindConfig, "unmarshal checkpoint state")
	}

	return Checkpoint{
		InstanceID:     instanceID,
		Class:          class,
		State:          state,
		ThreadRevision: revision,
		UpdatedAt:      updatedAt,
	}, true, nil
}

func (p *PostgresAdapter) DeleteCheckpoint(ctx context.Context, instanceID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM agent_checkpoints WHERE instance_id = $1`, instanceID); err != nil {
		return agenterr.Wrap(err, agenterr.KindTransport, "delete checkpoint")
	}
	if _, err := p.pool.Exec(ctx, `DELETE FROM agent_thread_entries WHERE instance_id = $1`, instanceID); err != nil {
		return agenterr.Wrap(err, agenterr.KindTransport, "delete thread entries")
	}
	return nil
}

func (p *PostgresAdapter) AppendThread(ctx context.Context, instanceID string, entry ThreadEntry) (int64, error) {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return 0, agenterr.Wrap(err, agenterr.KindConfig, "marshal thread entry")
	}
	if len(data) > DefaultMaxThreadEntryBytes {
		return 0, agenterr.Newf(agenterr.KindConfig, "thread entry size %d exceeds max %d bytes", len(data), DefaultMaxThreadEntryBytes)
	}

	var revision int64
	err = p.pool.QueryRow(ctx, `
		INSERT INTO agent_thread_entries (instance_id, revision, signal_type, data, created_at)
		VALUES ($1, COALESCE((SELECT MAX(revision) FROM agent_thread_entries WHERE instance_id = $1), 0) + 1, $2, $3, $4)
		RETURNING revision
	`, instanceID, entry.SignalType, data, entry.CreatedAt).Scan(&revision)
	if err != nil {
		return 0, agenterr.Wrap(err, agenterr.KindTransport, "append thread entry")
	}
	return revision, nil
}

func (p *PostgresAdapter) LoadThread(ctx context.Context, instanceID string, fromRevision int64) ([]ThreadEntry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT revision, signal_type, data, created_at
		FROM agent_thread_entries
		WHERE instance_id = $1 AND revision >= $2
		ORDER BY revision ASC
	`, instanceID, fromRevision)
	if err != nil {
		return nil, agenterr.Wrap(err, agenterr.KindTransport, "load thread")
	}
	defer rows.Close()

	var out []ThreadEntry
	for rows.Next() {
		var (
			e        ThreadEntry
			rawData  []byte
		)
		if err := rows.Scan(&e.Revision, &e.SignalType, &rawData, &e.CreatedAt); err != nil {
			return nil, agenterr.Wrap(err, agenterr.KindTransport, "scan thread entry")
		}
		data := make(map[string]any)
		if err := json.Unmarshal(rawData, &data); err != nil {
			return nil, agenterr.Wrap(err, agenterr.KindConfig, "unmarshal thread entry data")
		}
		e.Data = data
		out = append(out, e)
	}
	return out, rows.Err()
}
