package memory

import (
	"context"
	"sync"

	"github.com/secmon-lab/tradescout/pkg/domain/interfaces"
)

// Memory keeps snapshots in process memory. Used by tests and dry runs.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

var _ interfaces.SnapshotStore = &Memory{}

func New() *Memory {
	return &Memory{
		docs: make(map[string][]byte),
	}
}

func (m *Memory) Load(ctx context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.docs[name]
	if !ok {
		return nil, nil
	}
	return copyBytes(data), nil
}

func (m *Memory) Save(ctx context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[name] = copyBytes(data)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

func copyBytes(b []byte) []byte {
	copied := make([]byte, len(b))
	copy(copied, b)
	return copied
}
