package store

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[string][]byte
	watchers watchers
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string][]byte{}}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	body, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(body), nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.docs[key] = clone(body)
	m.mu.Unlock()
	m.watchers.notify(key, body, nil)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.docs, key)
	m.mu.Unlock()
	m.watchers.notify(key, nil, ErrNotFound)
	return nil
}

func (m *MemoryStore) Watch(ctx context.Context, key string, fn WatchFunc) (func(), error) {
	return watchLocal(ctx, &m.watchers, m, key, fn)
}
