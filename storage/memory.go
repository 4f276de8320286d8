package storage

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process [Storage].
type Memory struct {
	mu         sync.RWMutex
	credential string
}

// NewMemory returns an empty [Memory] storage.
func NewMemory() *Memory {
	return &Memory{}
}

// Load returns the stored credential or [ErrNotFound].
func (m *Memory) Load(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.credential == "" {
		return "", ErrNotFound
	}
	return m.credential, nil
}

// Save replaces the stored credential.
func (m *Memory) Save(ctx context.Context, credential string, _ time.Time) error {
	m.mu.Lock()
	m.credential = credential
	m.mu.Unlock()
	return nil
}

// Clear removes the stored credential.
func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.credential = ""
	m.mu.Unlock()
	return nil
}
