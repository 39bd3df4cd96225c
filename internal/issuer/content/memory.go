package content

import (
	"context"
	"sync"

	"proofpass/pkg/domain"
	"proofpass/pkg/platform/sentinel"
)

// Memory keeps content in process. Used in development and tests.
type Memory struct {
	mu    sync.RWMutex
	blobs map[domain.ContentID][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[domain.ContentID][]byte)}
}

// Put stores data and returns its content id. Storing the same bytes twice
// is a no-op.
func (m *Memory) Put(_ context.Context, data []byte) (domain.ContentID, error) {
	id := ID(data)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[id]; !ok {
		m.blobs[id] = append([]byte(nil), data...)
	}
	return id, nil
}

func (m *Memory) Get(_ context.Context, id domain.ContentID) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
