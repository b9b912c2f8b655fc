package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

var errNilFunc = errors.New("migration has no function")

// Runner applies a fixed registry of migrations in order.
type Runner struct {
	migrations []Migration
	logger     *slog.Logger
	newRunID   func() string
}

// RunnerOption configures a [Runner].
type RunnerOption func(*Runner)

// WithLogger sets the runner's logger. Nil discards.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRunID overrides run ID generation.
func WithRunID(fn func() string) RunnerOption {
	return func(r *Runner) {
		if fn != nil {
			r.newRunID = fn
		}
	}
}

// NewRunner returns a runner over migrations. The slice is copied; the
// registry cannot change after construction.
func NewRunner(migrations []Migration, opts ...RunnerOption) *Runner {
	r := &Runner{
		migrations: append([]Migration(nil), migrations...),
		logger:     slog.New(slog.DiscardHandler),
		newRunID:   uuid.NewString,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Migrations returns a copy of the registry.
func (r *Runner) Migrations() []Migration {
	return append([]Migration(nil), r.migrations...)
}

// Run applies every migration in registration order and returns the
// summary. It never panics: a panicking migration is recorded as failed and
// the batch continues. Once ctx is done, the remaining entries are recorded
// as failed without being invoked.
//
// Successful counts results with Migrated set; Failed counts results with
// an error. An entry that was already current counts toward neither.
func (r *Runner) Run(ctx context.Context, storage Storage) (summary Summary) {
	summary = Summary{
		RunID:   r.newRunID(),
		Total:   len(r.migrations),
		Details: make([]Detail, 0, len(r.migrations)),
	}

	logger := r.logger.With("run", summary.RunID)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("migration run aborted", "err", fmt.Sprint(rec))
		}
	}()

	for _, m := range r.migrations {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			summary.Failed++
			summary.Details = append(summary.Details, Detail{File: m.Name, Result: Result{Error: ctxErr.Error()}})

			continue
		}

		result, fault := invoke(ctx, m, storage)
		if fault != nil {
			summary.Failed++
			summary.Details = append(summary.Details, Detail{File: m.Name, Result: Result{Error: fault.Error()}})
			logger.Error("migration panicked", "file", m.Name, "err", fault)

			continue
		}

		summary.Details = append(summary.Details, Detail{File: m.Name, Result: result})

		switch {
		case result.Migrated:
			summary.Successful++
			logger.Debug("migration applied", "file", m.Name, "version", int(result.Version))
		case result.Failed():
			summary.Failed++
			logger.Error("migration failed", "file", m.Name, "err", result.Error)
		default:
			logger.Debug("migration already current", "file", m.Name, "version", int(result.Version))
		}
	}

	if summary.Successful > 0 {
		logger.Info("migrations completed", "migrated", summary.Successful, "failed", summary.Failed)
	}

	return summary
}

// invoke calls m.Fn, converting a panic into fault.
func invoke(ctx context.Context, m Migration, storage Storage) (result Result, fault error) {
	defer func() {
		if rec := recover(); rec != nil {
			fault = panicError(rec)
		}
	}()

	if m.Fn == nil {
		return Result{}, errNilFunc
	}

	return m.Fn(ctx, storage), nil
}

func panicError(rec any) error {
	if err, ok := rec.(error); ok {
		return err
	}

	return fmt.Errorf("%v", rec)
}
