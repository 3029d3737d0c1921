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
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/marcus-qen/agentcore/internal/agenterr"
)

// MySQLSchema mirrors PostgresSchema for a MySQL/MariaDB deployment.
const MySQLSchema = `
CREATE TABLE IF NOT EXISTS agent_checkpoints (
	instance_id     VARCHAR(255) PRIMARY KEY,
	class           VARCHAR(255) NOT NULL,
	state           JSON NOT NULL,
	thread_revision BIGINT NOT NULL DEFAULT 0,
	updated_at      DATETIME(6) NOT NULL
);

CREATE TABLE IF NOT EXISTS agent_thread_entries (
	instance_id  VARCHAR(255) NOT NULL,
	revision     BIGINT NOT NULL,
	signal_type  VARCHAR(255) NOT NULL,
	data         JSON NOT NULL,
	created_at   DATETIME(6) NOT NULL,
	PRIMARY KEY (instance_id, revision)
);
`

// MySQLAdapter implements Adapter over database/sql with the
// go-sql-driver/mysql driver registered.
type MySQLAdapter struct {
	db *sql.DB
}

// NewMySQLAdapter wraps an already-opened *sql.DB (opened with
// driver name "mysql"). The caller owns its lifecycle.
func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (a *MySQLAdapter) PutCheckpoint(ctx context.Context, cp Checkpoint) error {
	state, err := json.Marshal(cp.State)
	if err != nil {
		return agenterr.Wrap(err, agenterr.KindConfig, "marshal checkpoint state")
	}
	if len(state) > DefaultMaxStateBytes {
		return agenterr.Newf(agenterr.KindConfig, "checkpoint state size %d exceeds max %d bytes", len(state), DefaultMaxStateBytes)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO agent_checkpoints (instance_id, class, state, thread_revision, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			class = VALUES(class),
			state = VALUES(state),
			thread_revision = VALUES(thread_revision),
			updated_at = VALUES(updated_at)
	`, cp.InstanceID, cp.Class, state, cp.ThreadRevision, cp.UpdatedAt)
	if err != nil {
		return agenterr.Wrap(err, agenterr.KindTransport, "put checkpoint")
	}
	return nil
}

func (a *MySQLAdapter) GetCheckpoint(ctx context.Context, instanceID string) (Checkpoint, bool, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT class, state, thread_revision, updated_at
		FROM agent_checkpoints WHERE instance_id = ?
	`, instanceID)

	var (
		class     string
		rawState  []byte
		revision  int64
		updatedAt time.Time
	)
	if err := row.Scan(&class, &rawState, &revision, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
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

func (a *MySQLAdapter) DeleteCheckpoint(ctx context.Context, instanceID string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM agent_checkpoints WHERE instance_id = ?`, instanceID); err != nil {
		return agenterr.Wrap(err, agenterr.KindTransport, "delete checkpoint")
	}
	if _, err := a.db.ExecContext(ctx, `DELETE FROM agent_thread_entries WHERE instance_id = ?`, instanceID); err != nil {
		return agenterr.Wrap(err, agenterr.KindTransport, "delete thread entries")
	}
	return nil
}

func (a *MySQLAdapter) AppendThread(ctx context.Context, instanceID string, entry ThreadEntry) (int64, error) {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return 0, agenterr.Wrap(err, agenterr.KindConfig, "marshal thread entry")
	}
	if len(data) > DefaultMaxThreadEntryBytes {
		return 0, agenterr.Newf(agenterr.KindConfig, "thread entry size %d exceeds max %d bytes", len(data), DefaultMaxThreadEntryBytes)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, agenterr.Wrap(err, agenterr.KindTransport, "begin tx")
	}
	defer tx.Rollback()

	var maxRevision sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(revision) FROM agent_thread_entries WHERE instance_id = ?`, instanceID,
	).Scan(&maxRevision); err != nil {
		return 0, agenterr.Wrap(err, agenterr.KindTransport, "find max revision")
	}
	revision := maxRevision.Int64 + 1

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO agent_thread_entries (instance_id, revision, signal_type, data, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, instanceID, revision, entry.SignalType, data, entry.CreatedAt); err != nil {
		return 0, agenterr.Wrap(err, agenterr.KindTransport, "append thread entry")
	}

	if err := tx.Commit(); err != nil {
		return 0, agenterr.Wrap(err, agenterr.KindTransport, "commit tx")
	}
	return revision, nil
}

func (a *MySQLAdapter) LoadThread(ctx context.Context, instanceID string, fromRevision int64) ([]ThreadEntry, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT revision, signal_type, data, created_at
		FROM agent_thread_entries
		WHERE instance_id = ? AND revision >= ?
		ORDER BY revision ASC
	`, instanceID, fromRevision)
	if err != nil {
		return nil, agenterr.Wrap(err, agenterr.KindTransport, "load thread")
	}
	defer rows.Close()

	var out []ThreadEntry
	for rows.Next() {
		var (
			e       ThreadEntry
			rawData []byte
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
