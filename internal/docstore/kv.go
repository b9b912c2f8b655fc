package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/calvinalkan/authdoc/internal/document"
)

// KV is a string key-value store, the shape of a browser's localStorage.
type KV interface {
	// Get returns the value stored under name; ok is false if there is none.
	Get(ctx context.Context, name string) (value string, ok bool, err error)
	Set(ctx context.Context, name, value string) error
	Del(ctx context.Context, name string) error
}

// KVStore keeps each document as compact JSON in a single [KV] slot.
//
// Document keys are mapped to slot names through the slots table; keys not
// in the table use the key itself as the slot name. Writing a nil document
// deletes the slot. Writes always replace the whole value.
type KVStore struct {
	kv    KV
	slots map[string]string
}

// NewKVStore returns a store over kv. slots may be nil.
func NewKVStore(kv KV, slots map[string]string) *KVStore {
	table := make(map[string]string, len(slots))
	for key, name := range slots {
		table[key] = name
	}

	return &KVStore{kv: kv, slots: table}
}

// SlotName returns the slot that holds key.
func (s *KVStore) SlotName(key string) string {
	if name, ok := s.slots[key]; ok && name != "" {
		return name
	}

	return key
}

// Read implements [Store]. An empty slot value reads as missing.
func (s *KVStore) Read(ctx context.Context, key string, opts ReadOptions) (document.Document, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKey)
	}

	name := s.SlotName(key)

	raw, ok, err := s.kv.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("reading slot %s: %w", name, err)
	}

	if !ok || raw == "" {
		return missing(opts), nil
	}

	doc, err := document.Unmarshal([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: slot %s: %w", ErrCorrupt, name, err)
	}

	return doc, nil
}

// Write implements [Store].
func (s *KVStore) Write(ctx context.Context, key string, doc document.Document) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}

	name := s.SlotName(key)

	if doc == nil {
		err := s.kv.Del(ctx, name)
		if err != nil {
			return fmt.Errorf("removing slot %s: %w", name, err)
		}

		return nil
	}

	data, err := document.Marshal(doc)
	if err != nil {
		return fmt.Errorf("writing slot %s: %w", name, err)
	}

	err = s.kv.Set(ctx, name, string(data))
	if err != nil {
		return fmt.Errorf("writing slot %s: %w", name, err)
	}

	return nil
}

// MemoryKV is an in-process [KV]. It is safe for concurrent use.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: map[string]string{}}
}

// Get implements [KV].
func (m *MemoryKV) Get(_ context.Context, name string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[name]

	return value, ok, nil
}

// Set implements [KV].
func (m *MemoryKV) Set(_ context.Context, name, value string) error {
	m.mu.Lock()
	m.values[name] = value
	m.mu.Unlock()

	return nil
}

// Del implements [KV].
func (m *MemoryKV) Del(_ context.Context, name string) error {
	m.mu.Lock()
	delete(m.values, name)
	m.mu.Unlock()

	return nil
}

var (
	_ Store = (*KVStore)(nil)
	_ KV    = (*MemoryKV)(nil)
)
