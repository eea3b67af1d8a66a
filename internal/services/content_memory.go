package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

// ErrBlobNotFound reports a missing object in the in-memory content store.
var ErrBlobNotFound = errors.New("blob not found")

// MemoryContentStore keeps blobs in process memory. It backs the test suite
// and the standalone development mode, mirroring how the metadata layer falls
// back to storage.Memory.
type MemoryContentStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryContentStore() *MemoryContentStore {
	return &MemoryContentStore{blobs: make(map[string][]byte)}
}

func (m *MemoryContentStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.blobs[key] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryContentStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	data, ok := m.blobs[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryContentStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.blobs, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryContentStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	_, ok := m.blobs[key]
	m.mu.RUnlock()
	return ok, nil
}
