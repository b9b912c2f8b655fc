// Package migrate runs forward-only schema migrations over stored documents.
//
// A migration is a [Migration] entry: the key of the document it targets and
// a function that brings that document to its target version. Entries form
// a flat, ordered registry; there are no dependencies between them and no
// rollback. Each function must be idempotent: once the document is at the
// target version it reports {Migrated: false} and writes nothing.
//
// [Runner.Run] applies every entry in order and never fails. Faults are
// captured per entry in the returned [Summary]. [Step] implements the
// read -> version check -> transform -> stamp -> write pattern that
// migration functions share.
package migrate

import (
	"context"

	"github.com/calvinalkan/authdoc/internal/docstore"
	"github.com/calvinalkan/authdoc/internal/document"
)

// Storage is the read/write pair a migration runs against.
// [docstore.Store] implementations satisfy it.
type Storage interface {
	Read(ctx context.Context, key string, opts docstore.ReadOptions) (document.Document, error)
	Write(ctx context.Context, key string, doc document.Document) error
}

// Func migrates one document. Faults must be reported in [Result.Error];
// a panic is treated as an escaped fault by the runner.
type Func func(ctx context.Context, storage Storage) Result

// Migration is one registry entry.
type Migration struct {
	// Name is the storage key of the target document.
	Name string
	Fn   Func
}

// Result is the outcome of one migration function.
type Result struct {
	Migrated bool             `json:"migrated"`
	Version  document.Version `json:"version,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Failed reports whether the result carries an error.
func (r Result) Failed() bool {
	return r.Error != ""
}

// Detail is a [Result] labelled with the migrated key.
type Detail struct {
	File string `json:"file"`
	Result
}

// Summary aggregates one [Runner.Run].
type Summary struct {
	// RunID identifies the run in log output.
	RunID      string   `json:"runId"`
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Details    []Detail `json:"details"`
}
