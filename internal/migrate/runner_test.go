package migrate_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/authdoc/internal/docstore"
	"github.com/calvinalkan/authdoc/internal/migrate"
)

func fixed(result migrate.Result) migrate.Func {
	return func(context.Context, migrate.Storage) migrate.Result {
		return result
	}
}

func TestRunner_Run_Aggregates(t *testing.T) {
	t.Parallel()

	runner := migrate.NewRunner([]migrate.Migration{
		{Name: "a.json", Fn: fixed(migrate.Result{Migrated: true, Version: 2})},
		{Name: "b.json", Fn: fixed(migrate.Result{Version: 3})},
		{Name: "c.json", Fn: fixed(migrate.Result{Error: "disk full"})},
		{Name: "d.json", Fn: fixed(migrate.Result{Migrated: true, Version: 5})},
	}, migrate.WithRunID(func() string { return "run-1" }))

	got := runner.Run(context.Background(), docstore.NewMemoryStore())

	want := migrate.Summary{
		RunID:      "run-1",
		Total:      4,
		Successful: 2,
		Failed:     1,
		Details: []migrate.Detail{
			{File: "a.json", Result: migrate.Result{Migrated: true, Version: 2}},
			{File: "b.json", Result: migrate.Result{Version: 3}},
			{File: "c.json", Result: migrate.Result{Error: "disk full"}},
			{File: "d.json", Result: migrate.Result{Migrated: true, Version: 5}},
		},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestRunner_Run_Empty(t *testing.T) {
	t.Parallel()

	got := migrate.NewRunner(nil).Run(context.Background(), docstore.NewMemoryStore())

	require.Equal(t, 0, got.Total)
	require.Equal(t, 0, got.Successful)
	require.Equal(t, 0, got.Failed)
	require.Empty(t, got.Details)
	require.NotEmpty(t, got.RunID)
}

func TestRunner_Run_PanicIsCountedAndBatchContinues(t *testing.T) {
	t.Parallel()

	ran := false

	runner := migrate.NewRunner([]migrate.Migration{
		{Name: "boom.json", Fn: func(context.Context, migrate.Storage) migrate.Result {
			panic("exploded")
		}},
		{Name: "err.json", Fn: func(context.Context, migrate.Storage) migrate.Result {
			panic(errors.New("wrapped fault"))
		}},
		{Name: "after.json", Fn: func(context.Context, migrate.Storage) migrate.Result {
			ran = true

			return migrate.Result{Migrated: true, Version: 2}
		}},
	})

	got := runner.Run(context.Background(), docstore.NewMemoryStore())

	require.True(t, ran)
	require.Equal(t, 3, got.Total)
	require.Equal(t, 2, got.Failed)
	require.Equal(t, 1, got.Successful)
	require.Equal(t, migrate.Detail{File: "boom.json", Result: migrate.Result{Error: "exploded"}}, got.Details[0])
	require.Equal(t, migrate.Detail{File: "err.json", Result: migrate.Result{Error: "wrapped fault"}}, got.Details[1])
}

func TestRunner_Run_NilFuncFails(t *testing.T) {
	t.Parallel()

	got := migrate.NewRunner([]migrate.Migration{{Name: "x.json"}}).
		Run(context.Background(), docstore.NewMemoryStore())

	require.Equal(t, 1, got.Failed)
	require.True(t, got.Details[0].Failed())
	require.False(t, got.Details[0].Migrated)
}

func TestRunner_Run_CancelledContextSkipsRemaining(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0

	runner := migrate.NewRunner([]migrate.Migration{
		{Name: "first.json", Fn: func(context.Context, migrate.Storage) migrate.Result {
			calls++
			cancel()

			return migrate.Result{Migrated: true, Version: 2}
		}},
		{Name: "second.json", Fn: func(context.Context, migrate.Storage) migrate.Result {
			calls++

			return migrate.Result{Migrated: true, Version: 2}
		}},
	})

	got := runner.Run(ctx, docstore.NewMemoryStore())

	require.Equal(t, 1, calls)
	require.Equal(t, 1, got.Successful)
	require.Equal(t, 1, got.Failed)
	require.Equal(t, context.Canceled.Error(), got.Details[1].Error)
}

func TestRunner_Registry_IsCopied(t *testing.T) {
	t.Parallel()

	registry := []migrate.Migration{{Name: "a.json", Fn: fixed(migrate.Result{})}}
	runner := migrate.NewRunner(registry)

	registry[0].Name = "changed.json"

	got := runner.Migrations()
	require.Equal(t, "a.json", got[0].Name)

	got[0].Name = "changed again"
	require.Equal(t, "a.json", runner.Migrations()[0].Name)
}

func TestRunner_RunIDs_Differ(t *testing.T) {
	t.Parallel()

	runner := migrate.NewRunner(nil)
	store := docstore.NewMemoryStore()

	first := runner.Run(context.Background(), store)
	second := runner.Run(context.Background(), store)

	require.NotEqual(t, first.RunID, second.RunID)
}

func TestSummary_JSON(t *testing.T) {
	t.Parallel()

	summary := migrate.Summary{
		RunID:      "r",
		Total:      2,
		Successful: 1,
		Failed:     1,
		Details: []migrate.Detail{
			{File: "a.json", Result: migrate.Result{Migrated: true, Version: 2}},
			{File: "b.json", Result: migrate.Result{Error: "bad"}},
		},
	}

	data, err := json.Marshal(summary)
	require.NoError(t, err)

	require.JSONEq(t, `{
		"runId": "r",
		"total": 2,
		"successful": 1,
		"failed": 1,
		"details": [
			{"file": "a.json", "migrated": true, "version": 2},
			{"file": "b.json", "migrated": false, "error": "bad"}
		]
	}`, string(data))
}
