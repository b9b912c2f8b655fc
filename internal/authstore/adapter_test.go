package authstore_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/authdoc/internal/authstore"
	"github.com/calvinalkan/authdoc/internal/docstore"
	"github.com/calvinalkan/authdoc/internal/document"
)

const sessionKey = "auth/session.json"

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func TestReplacing_RoundTripAndReplace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := docstore.NewMemoryKV()
	adapter := authstore.NewReplacing(docstore.NewKVStore(kv, map[string]string{sessionKey: "softwareAuth"}))

	require.False(t, adapter.Merging())
	require.Nil(t, adapter.Read(ctx, sessionKey))

	adapter.Write(ctx, sessionKey, document.Document{"token": "t1", "user": "ann"})
	adapter.Write(ctx, sessionKey, document.Document{"token": "t2"})

	got := adapter.Read(ctx, sessionKey)
	if diff := cmp.Diff(document.Document{"token": "t2"}, got); diff != "" {
		t.Fatalf("replacing write should drop old fields (-want +got):\n%s", diff)
	}

	adapter.Clear(ctx, sessionKey)

	_, ok, err := kv.Get(ctx, "softwareAuth")
	require.NoError(t, err)
	require.False(t, ok, "clear should remove the slot")
	require.Nil(t, adapter.Read(ctx, sessionKey))
}

func TestMerging_MergesAndStampsUpdatedAt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := docstore.NewFileStore(t.TempDir())
	adapter := authstore.NewMerging(store, authstore.WithClock(fixedClock))

	require.True(t, adapter.Merging())

	adapter.Write(ctx, sessionKey, document.Document{"token": "t1", "user": "ann"})
	adapter.Write(ctx, sessionKey, document.Document{"token": "t2", "plan": "pro"})

	want := document.Document{
		"token":     "t2",
		"user":      "ann",
		"plan":      "pro",
		"updatedAt": "2025-06-01T12:00:00.000Z",
	}

	got := adapter.Read(ctx, sessionKey)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected merged document (-want +got):\n%s", diff)
	}
}

func TestMerging_ClearWritesEmptyObject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := t.TempDir()
	adapter := authstore.NewMerging(docstore.NewFileStore(root))

	adapter.Write(ctx, sessionKey, document.Document{"token": "t1"})
	adapter.Clear(ctx, sessionKey)

	content, err := os.ReadFile(filepath.Join(root, "auth", "session.json"))
	require.NoError(t, err)
	require.Equal(t, "{}\n", string(content))

	require.Nil(t, adapter.Read(ctx, sessionKey), "empty object should read as no data")

	// A later write starts from the cleared state.
	adapter.Write(ctx, sessionKey, document.Document{"token": "t2"})

	got := adapter.Read(ctx, sessionKey)
	require.Equal(t, "t2", got["token"])
	require.NotContains(t, got, "user")
}

func TestMerging_ReplacesCorruptRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := t.TempDir()
	path := filepath.Join(root, "auth", "session.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	var logs bytes.Buffer

	adapter := authstore.NewMerging(
		docstore.NewFileStore(root),
		authstore.WithClock(fixedClock),
		authstore.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)

	require.Nil(t, adapter.Read(ctx, sessionKey), "corrupt record should read as no data")

	adapter.Write(ctx, sessionKey, document.Document{"token": "t1"})

	got := adapter.Read(ctx, sessionKey)
	require.Equal(t, document.Document{"token": "t1", "updatedAt": "2025-06-01T12:00:00.000Z"}, got)
	require.Contains(t, logs.String(), "replacing corrupt auth record")
}

func TestAdapter_ReadTreatsEmptyObjectAsNoData(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := docstore.NewMemoryStore()
	require.NoError(t, store.Write(ctx, sessionKey, document.Document{}))

	require.Nil(t, authstore.NewReplacing(store).Read(ctx, sessionKey))
}

func TestAdapter_SwallowsBackendFaults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	errDown := errors.New("backend down")

	for name, adapter := range map[string]func(*slog.Logger) *authstore.Adapter{
		"replacing": func(l *slog.Logger) *authstore.Adapter {
			return authstore.NewReplacing(failingStore{err: errDown}, authstore.WithLogger(l))
		},
		"merging": func(l *slog.Logger) *authstore.Adapter {
			return authstore.NewMerging(failingStore{err: errDown}, authstore.WithLogger(l))
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var logs bytes.Buffer

			a := adapter(slog.New(slog.NewTextHandler(&logs, nil)))

			require.Nil(t, a.Read(ctx, sessionKey))
			a.Write(ctx, sessionKey, document.Document{"token": "secret-value"})
			a.Clear(ctx, sessionKey)

			require.Contains(t, logs.String(), "auth read failed")
			require.Contains(t, logs.String(), "auth write failed")
			require.NotContains(t, logs.String(), "secret-value", "document values must not be logged")
		})
	}
}

func TestAdapter_RecoversFromPanickingStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	adapter := authstore.NewReplacing(panickingStore{})

	require.NotPanics(t, func() {
		require.Nil(t, adapter.Read(ctx, sessionKey))
		adapter.Write(ctx, sessionKey, document.Document{"a": 1})
	})
}

func TestAdapter_RoundTripPreservesUnknownFields(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	adapter := authstore.NewMerging(docstore.NewFileStore(t.TempDir()), authstore.WithClock(fixedClock))

	input := document.Document{
		"token":   "t",
		"profile": map[string]any{"name": "Ann", "age": json.Number("41")},
		"scopes":  []any{"read", "write"},
	}

	adapter.Write(ctx, sessionKey, input)

	got := adapter.Read(ctx, sessionKey)
	delete(got, authstore.UpdatedAtField)

	if diff := cmp.Diff(input, got); diff != "" {
		t.Fatalf("round trip changed the document beyond updatedAt (-want +got):\n%s", diff)
	}
}

func TestSession_DelegatesToAdapter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := docstore.NewMemoryStore()
	session := authstore.NewSession(authstore.NewMerging(store, authstore.WithClock(fixedClock)), sessionKey)

	require.Equal(t, sessionKey, session.Key())
	require.Nil(t, session.Get(ctx))

	session.Set(ctx, document.Document{"token": "t1"})
	require.Equal(t, "t1", session.Get(ctx)["token"])

	session.Clear(ctx)
	require.Nil(t, session.Get(ctx))

	stored, err := store.Read(ctx, sessionKey, docstore.ReadOptions{})
	require.NoError(t, err)
	require.Equal(t, document.Document{}, stored)
}

type failingStore struct {
	err error
}

func (f failingStore) Read(context.Context, string, docstore.ReadOptions) (document.Document, error) {
	return nil, f.err
}

func (f failingStore) Write(context.Context, string, document.Document) error {
	return f.err
}

func (f failingStore) Update(context.Context, string, docstore.UpdateFunc) error {
	return f.err
}

type panickingStore struct{}

func (panickingStore) Read(context.Context, string, docstore.ReadOptions) (document.Document, error) {
	panic("read exploded")
}

func (panickingStore) Write(context.Context, string, document.Document) error {
	panic("write exploded")
}
