package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/calvinalkan/authdoc/internal/document"
)

// MemoryStore is an in-process [Store] and [Updater], intended for tests and
// embedding. Documents are deep-copied on the way in and out, so callers
// never share state with the store. Writing nil deletes the key.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]document.Document
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string]document.Document{}}
}

// Read implements [Store].
func (m *MemoryStore) Read(ctx context.Context, key string, opts ReadOptions) (document.Document, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	if key == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKey)
	}

	m.mu.Lock()
	doc, ok := m.docs[key]
	m.mu.Unlock()

	if !ok {
		return missing(opts), nil
	}

	return doc.Clone(), nil
}

// Write implements [Store].
func (m *MemoryStore) Write(ctx context.Context, key string, doc document.Document) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if doc == nil {
		delete(m.docs, key)

		return nil
	}

	m.docs[key] = doc.Clone()

	return nil
}

// Update implements [Updater]. The store mutex is held across fn.
func (m *MemoryStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := fn(m.docs[key].Clone(), nil)
	if err != nil {
		return err
	}

	if next != nil {
		m.docs[key] = next.Clone()
	}

	return nil
}

// Len returns the number of stored documents.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.docs)
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Updater = (*MemoryStore)(nil)
)
