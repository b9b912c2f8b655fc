// Package docstore provides the raw storage backends for JSON documents.
//
// Backends report every fault as an error. Callers that need a
// never-failing view (the auth adapter) or per-step fault isolation
// (migrations) build it on top of [Store].
//
// The backends are:
//   - [FileStore]: one file per key under a root directory, atomic writes,
//     read-modify-write under an advisory lock via [FileStore.Update].
//   - [KVStore]: one string slot per key in a [KV] ([MemoryKV], [RedisKV]).
//   - [MemoryStore]: in-process map of documents.
package docstore

import (
	"context"
	"errors"

	"github.com/calvinalkan/authdoc/internal/document"
)

var (
	// ErrCorrupt is returned when stored data is not a JSON object.
	ErrCorrupt = errors.New("corrupt document")

	// ErrInvalidKey is returned for keys that cannot address a document.
	ErrInvalidKey = errors.New("invalid document key")

	// ErrLockTimeout is returned when the document lock could not be
	// acquired in time.
	ErrLockTimeout = errors.New("lock timeout")
)

// ReadOptions configures [Store.Read].
type ReadOptions struct {
	// DefaultToObject makes a missing document read as an empty object
	// instead of nil.
	DefaultToObject bool
}

// Store reads and writes whole documents by key.
type Store interface {
	// Read returns the document stored under key. A missing document is
	// (nil, nil), or an empty document if opts.DefaultToObject is set.
	// Unparseable data returns an error wrapping [ErrCorrupt].
	Read(ctx context.Context, key string, opts ReadOptions) (document.Document, error)

	// Write replaces the document stored under key. Writing nil clears the
	// record; how it is cleared depends on the backend.
	Write(ctx context.Context, key string, doc document.Document) error
}

// UpdateFunc receives the current document (nil if missing) and returns the
// document to write. Returning a nil document skips the write; returning an
// error aborts without writing.
//
// readErr is non-nil only when the stored data is corrupt (it wraps
// [ErrCorrupt]); current is nil in that case. Other read faults abort the
// update before the func is called.
type UpdateFunc func(current document.Document, readErr error) (document.Document, error)

// Updater performs read-modify-write cycles that exclude other updaters of
// the same key.
type Updater interface {
	Update(ctx context.Context, key string, fn UpdateFunc) error
}
