package authstore

import (
	"context"

	"github.com/calvinalkan/authdoc/internal/document"
)

// Session binds an [Adapter] to the single key of the auth session record.
type Session struct {
	adapter *Adapter
	key     string
}

// NewSession returns a session view of the record under key.
func NewSession(adapter *Adapter, key string) *Session {
	return &Session{adapter: adapter, key: key}
}

// Key returns the storage key of the record.
func (s *Session) Key() string {
	return s.key
}

// Get returns the auth data, or nil when logged out.
func (s *Session) Get(ctx context.Context) document.Document {
	return s.adapter.Read(ctx, s.key)
}

// Set stores auth data. A nil doc logs out.
func (s *Session) Set(ctx context.Context, doc document.Document) {
	s.adapter.Write(ctx, s.key, doc)
}

// Clear logs out.
func (s *Session) Clear(ctx context.Context) {
	s.adapter.Clear(ctx, s.key)
}
