// Package migrations declares the document migrations shipped with authdoc.
//
// New migrations are appended to [Default]. A later schema step for an
// existing document is a new entry after the earlier one for the same key;
// each step's version guard keeps the chain idempotent.
package migrations

import (
	"log/slog"
	"time"

	"github.com/calvinalkan/authdoc/internal/migrate"
)

// Options are shared by the shipped migrations.
type Options struct {
	// Now defaults to time.Now.
	Now func() time.Time
	// Logger defaults to discarding.
	Logger *slog.Logger
}

// Default returns the registry in application order.
func Default(opts Options) []migrate.Migration {
	return []migrate.Migration{
		AuthSessionV2(opts).Migration(),
	}
}
