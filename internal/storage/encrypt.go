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
	"crypto/rand"
	"encoding/json"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/marcus-qen/agentcore/internal/agenterr"
)

// EncryptingAdapter wraps another Adapter and encrypts checkpoint
// state and thread entry data at rest with ChaCha20-Poly1305, deriving
// a per-instance key from masterKey via HKDF and sealing each record
// with a fresh random nonce. The wrapped adapter never sees plaintext.
type EncryptingAdapter struct {
	inner     Adapter
	masterKey []byte
}

// NewEncryptingAdapter wraps inner, deriving record keys from
// masterKey (which must be 32 bytes — a ChaCha20-Poly1305 key size).
func NewEncryptingAdapter(inner Adapter, masterKey []byte) (*EncryptingAdapter, error) {
	if len(masterKey) != chacha20poly1305.KeySize {
		return nil, agenterr.Newf(agenterr.KindConfig, "master key must be %d bytes, got %d", chacha20poly1305.KeySize, len(masterKey))
	}
	return &EncryptingAdapter{inner: inner, masterKey: masterKey}, nil
}

func (e *EncryptingAdapter) PutCheckpoint(ctx context.Context, cp Checkpoint) error {
	sealed, err := e.seal(cp.InstanceID, cp.State)
	if err != nil {
		return err
	}
	cp.State = sealed
	return e.inner.PutCheckpoint(ctx, cp)
}

func (e *EncryptingAdapter) GetCheckpoint(ctx context.Context, instanceID string) (Checkpoint, bool, error) {
	cp, ok, err := e.inner.GetCheckpoint(ctx, instanceID)
	if err != nil || !ok {
		return cp, ok, err
	}
	opened, err := e.open(instanceID, cp.State)
	if err != nil {
		return Checkpoint{}, false, err
	}
	cp.State = opened
	return cp, true, nil
}

func (e *EncryptingAdapter) DeleteCheckpoint(ctx context.Context, instanceID string) error {
	return e.inner.DeleteCheckpoint(ctx, instanceID)
}

func (e *EncryptingAdapter) AppendThread(ctx context.Context, instanceID string, entry ThreadEntry) (int64, error) {
	sealed, err := e.seal(instanceID, entry.Data)
	if err != nil {
		return 0, err
	}
	entry.Data = sealed
	return e.inner.AppendThread(ctx, instanceID, entry)
}

func (e *EncryptingAdapter) LoadThread(ctx context.Context, instanceID string, fromRevision int64) ([]ThreadEntry, error) {
	entries, err := e.inner.LoadThread(ctx, instanceID, fromRevision)
	if err != nil {
		return nil, err
	}
	for i, entry := range entries {
		opened, err := e.open(instanceID, entry.Data)
		if err != nil {
			return nil, err
		}
		entries[i].Data = opened
	}
	return entries, nil
}

// recordKey derives a per-instance AEAD key from the master key via
// HKDF-SHA256, using the instance id as salt so compromise of one
// instance's derived key does not expose another's.
func (e *EncryptingAdapter) recordKey(instanceID string) ([]byte, error) {
	reader := hkdf.New(newSHA256, e.masterKey, []byte(instanceID), []byte("agentcore-checkpoint"))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, agenterr.Wrap(err, agenterr.KindConfig, "derive checkpoint key")
	}
	return key, nil
}

func (e *EncryptingAdapter) seal(instanceID string, plain map[string]any) (map[string]any, error) {
	key, err := e.recordKey(instanceID)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, agenterr.Wrap(err, agenterr.KindConfig, "construct AEAD cipher")
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, agenterr.Wrap(err, agenterr.KindConfig, "generate nonce")
	}

	plainBytes, err := json.Marshal(plain)
	if err != nil {
		return nil, agenterr.Wrap(err, agenterr.KindConfig, "marshal plaintext")
	}
	sealed := aead.Seal(nonce, nonce, plainBytes, nil)

	return map[string]any{
		"__sealed": true,
		"__data":   sealed,
	}, nil
}

func (e *EncryptingAdapter) open(instanceID string, sealed map[string]any) (map[string]any, error) {
	if ok, _ := sealed["__sealed"].(bool); !ok {
		return sealed, nil // not encrypted (e.g. written before encryption was enabled)
	}
	raw, ok := sealed["__data"].([]byte)
	if !ok {
		return nil, agenterr.New(agenterr.KindConfig, "sealed record missing __data ciphertext")
	}

	key, err := e.recordKey(instanceID)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, agenterr.Wrap(err, agenterr.KindConfig, "construct AEAD cipher")
	}
	if len(raw) < aead.NonceSize() {
		return nil, agenterr.New(agenterr.KindConfig, "sealed record shorter than nonce")
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]

	plainBytes, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, agenterr.Wrap(err, agenterr.KindConfig, "decrypt checkpoint record")
	}

	out := make(map[string]any)
	if err := json.Unmarshal(plainBytes, &out); err != nil {
		return nil, agenterr.Wrap(err, agenterr.KindConfig, "unmarshal decrypted record")
	}
	return out, nil
}
