// Package authstore is the storage adapter for the persisted auth record.
//
// Unlike the raw [docstore] backends, the adapter never fails: a missing,
// empty, unreadable or corrupt record reads as nil ("logged out") and failed
// writes are logged and dropped. The record can always be rebuilt by signing
// in again, so losing a write is preferable to failing the caller.
//
// Two write strategies exist, and the caller picks one when wiring:
//   - [NewReplacing]: each write replaces the stored value.
//   - [NewMerging]: each write is merged onto the stored object and stamped
//     with updatedAt, under the backend's update lock.
package authstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/calvinalkan/authdoc/internal/docstore"
	"github.com/calvinalkan/authdoc/internal/document"
)

// UpdatedAtField is stamped on every merging write.
const UpdatedAtField = "updatedAt"

// MergeStore is a backend that supports locked read-modify-write.
type MergeStore interface {
	docstore.Store
	docstore.Updater
}

// Adapter reads and writes auth documents without surfacing errors.
type Adapter struct {
	store  docstore.Store
	merger docstore.Updater
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an [Adapter].
type Option func(*Adapter)

// WithLogger sets the logger for dropped faults. Nil discards.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock sets the clock used for updatedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		if now != nil {
			a.now = now
		}
	}
}

// NewReplacing returns an adapter whose writes replace the stored document
// and whose clears are delegated to the store's nil write.
func NewReplacing(store docstore.Store, opts ...Option) *Adapter {
	return newAdapter(store, nil, opts)
}

// NewMerging returns an adapter whose writes merge onto the stored document
// and stamp [UpdatedAtField]; clears store an empty object.
func NewMerging(store MergeStore, opts ...Option) *Adapter {
	return newAdapter(store, store, opts)
}

func newAdapter(store docstore.Store, merger docstore.Updater, opts []Option) *Adapter {
	a := &Adapter{
		store:  store,
		merger: merger,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Merging reports whether writes merge onto the stored document.
func (a *Adapter) Merging() bool {
	return a.merger != nil
}

// Read returns the document under key, or nil if there is no usable data.
func (a *Adapter) Read(ctx context.Context, key string) (doc document.Document) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Warn("auth read failed", "key", key, "err", fmt.Sprint(rec))
			doc = nil
		}
	}()

	doc, err := a.store.Read(ctx, key, docstore.ReadOptions{})
	if err != nil {
		a.logger.Warn("auth read failed", "key", key, "err", err)

		return nil
	}

	if len(doc) == 0 {
		return nil
	}

	return doc
}

// Write stores doc under key. A nil doc clears the record. Faults are
// logged and dropped.
func (a *Adapter) Write(ctx context.Context, key string, doc document.Document) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Warn("auth write failed", "key", key, "err", fmt.Sprint(rec))
		}
	}()

	var err error
	if a.merger != nil {
		err = a.writeMerged(ctx, key, doc)
	} else {
		err = a.store.Write(ctx, key, doc)
	}

	if err != nil {
		a.logger.Warn("auth write failed", "key", key, "err", err)
	}
}

// Clear removes the record under key. Same as Write(ctx, key, nil).
func (a *Adapter) Clear(ctx context.Context, key string) {
	a.Write(ctx, key, nil)
}

func (a *Adapter) writeMerged(ctx context.Context, key string, doc document.Document) error {
	if doc == nil {
		return a.store.Write(ctx, key, document.Document{})
	}

	return a.merger.Update(ctx, key, func(current document.Document, readErr error) (document.Document, error) {
		if readErr != nil {
			if !errors.Is(readErr, docstore.ErrCorrupt) {
				return nil, readErr
			}

			a.logger.Warn("replacing corrupt auth record", "key", key, "err", readErr)
		}

		merged := make(document.Document, len(current)+len(doc)+1)
		maps.Copy(merged, current)
		maps.Copy(merged, doc.Clone())
		merged[UpdatedAtField] = document.FormatTimestamp(a.now())

		return merged, nil
	})
}
