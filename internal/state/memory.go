package state

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process. It is meant for single-replica
// deployments and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Record
	opts options
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{data: make(map[string]Record), opts: newOptions(opts)}
}

// Get returns a copy of the live record for key.
func (m *MemoryStore) Get(_ context.Context, key string) (Record, error) {
	m.mu.RLock()
	rec, ok := m.data[key]
	m.mu.RUnlock()
	if !ok || rec.Expired(m.opts.now()) {
		return Record{}, ErrNotFound
	}
	return rec.Clone(), nil
}

// CreateIfAbsent stores rec unless a live record exists.
func (m *MemoryStore) CreateIfAbsent(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.now()
	if cur, ok := m.data[rec.JiraIssueKey]; ok && !cur.Expired(now) {
		return ErrExists
	}
	rec = rec.Clone()
	m.opts.stamp(&rec, now)
	m.data[rec.JiraIssueKey] = rec
	return nil
}

// Update applies fn under the write lock.
func (m *MemoryStore) Update(_ context.Context, key string, fn Mutator) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.now()
	cur, ok := m.data[key]
	if !ok || cur.Expired(now) {
		return Record{}, ErrNotFound
	}
	next, err := applyMutator(cur, fn)
	if err != nil {
		return Record{}, err
	}
	m.opts.stamp(&next, now)
	m.data[key] = next
	return next.Clone(), nil
}

// Purge drops expired records.
func (m *MemoryStore) Purge(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.now()
	n := 0
	for k, rec := range m.data {
		if rec.Expired(now) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
