package store

import (
	"context"
	"sync"

	"github.com/codriver-ai/codriver/chatmodel"
	"github.com/codriver-ai/codriver/pkg/llms"
)

type inMemory struct {
	mu      sync.RWMutex
	storage map[string][]llms.Message
}

// NewMemoryStore returns a MessageStore backed by process memory.
func NewMemoryStore() MessageStore {
	return &inMemory{}
}

func (m *inMemory) Messages(ctx context.Context) []llms.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.storage == nil {
		return nil
	}
	return m.storage[chatmodel.IDFromContext(ctx)]
}

func (m *inMemory) Add(ctx context.Context, msg llms.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage == nil {
		// create on first use
		m.storage = make(map[string][]llms.Message)
	}
	chatID := chatmodel.IDFromContext(ctx)
	m.storage[chatID] = append(m.storage[chatID], msg)
	return nil
}

func (m *inMemory) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage != nil {
		delete(m.storage, chatmodel.IDFromContext(ctx))
	}
	return nil
}
