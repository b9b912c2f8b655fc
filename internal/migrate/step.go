package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/calvinalkan/authdoc/internal/docstore"
	"github.com/calvinalkan/authdoc/internal/document"
)

// Transform rewrites doc in place for one version step. It receives a deep
// copy of the stored document and must only touch the fields it owns.
type Transform func(doc document.Document, now time.Time) error

// Step migrates the document under Key to Target.
//
// A missing document is treated as an empty object, so a first run
// establishes the current schema. A document without a version field is at
// [document.LegacyVersion].
type Step struct {
	Key       string
	Target    document.Version
	Transform Transform

	// Now defaults to time.Now.
	Now func() time.Time

	// Logger defaults to discarding.
	Logger *slog.Logger
}

// Migration returns the registry entry for s.
func (s Step) Migration() Migration {
	return Migration{Name: s.Key, Fn: s.Migrate}
}

// Migrate runs the step. It never panics and never returns a fault other
// than through [Result.Error]; on failure nothing is written.
func (s Step) Migrate(ctx context.Context, storage Storage) (result Result) {
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = Result{Error: panicError(rec).Error()}
			logger.Debug("migration step failed", "file", s.Key, "err", result.Error)
		}
	}()

	result, err := s.migrate(ctx, storage, logger)
	if err != nil {
		logger.Debug("migration step failed", "file", s.Key, "err", err)

		return Result{Error: err.Error()}
	}

	return result
}

func (s Step) migrate(ctx context.Context, storage Storage, logger *slog.Logger) (Result, error) {
	doc, err := storage.Read(ctx, s.Key, docstore.ReadOptions{DefaultToObject: true})
	if err != nil {
		return Result{}, err
	}

	if doc == nil {
		doc = document.Document{}
	}

	current, err := document.VersionOf(doc)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", s.Key, err)
	}

	if current >= s.Target {
		return Result{Version: current}, nil
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	migrated := doc.Clone()

	if s.Transform != nil {
		err = s.Transform(migrated, now())
		if err != nil {
			return Result{}, fmt.Errorf("%s: v%d to v%d: %w", s.Key, current, s.Target, err)
		}
	}

	migrated.SetVersion(s.Target)

	err = storage.Write(ctx, s.Key, migrated)
	if err != nil {
		return Result{}, err
	}

	logger.Info("migrated document", "file", s.Key, "from", int(current), "to", int(s.Target))

	return Result{Migrated: true, Version: s.Target}, nil
}
