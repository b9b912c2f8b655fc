package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/calvinalkan/authdoc/internal/document"
)

const dirPerms = 0o755

// DefaultLockTimeout bounds lock acquisition in [FileStore.Update].
const DefaultLockTimeout = 2 * time.Second

// FileStore stores each document as a JSON file below a root directory.
// Keys are slash-separated paths relative to the root, e.g.
// "auth/session.json".
//
// Writes replace the file atomically (temp file + rename). Writing a nil
// document stores "{}".
type FileStore struct {
	root        string
	lockTimeout time.Duration
}

// FileStoreOption configures a [FileStore].
type FileStoreOption func(*FileStore)

// WithLockTimeout sets how long [FileStore.Update] waits for the lock.
// Non-positive values keep [DefaultLockTimeout].
func WithLockTimeout(timeout time.Duration) FileStoreOption {
	return func(s *FileStore) {
		if timeout > 0 {
			s.lockTimeout = timeout
		}
	}
}

// NewFileStore returns a store rooted at root. The directory is created
// lazily on first write.
func NewFileStore(root string, opts ...FileStoreOption) *FileStore {
	s := &FileStore{
		root:        filepath.Clean(root),
		lockTimeout: DefaultLockTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Root returns the root directory.
func (s *FileStore) Root() string {
	return s.root
}

// Path resolves key to a file path below the root.
func (s *FileStore) Path(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}

	if strings.HasPrefix(key, "/") || filepath.IsAbs(key) {
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidKey, key)
	}

	rel := filepath.Clean(filepath.FromSlash(key))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes the store root", ErrInvalidKey, key)
	}

	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == locksDirName {
			return "", fmt.Errorf("%w: %q uses reserved directory %s", ErrInvalidKey, key, locksDirName)
		}
	}

	return filepath.Join(s.root, rel), nil
}

// Read implements [Store].
func (s *FileStore) Read(ctx context.Context, key string, opts ReadOptions) (document.Document, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	path, err := s.Path(key)
	if err != nil {
		return nil, err
	}

	return readFile(path, key, opts)
}

func readFile(path, key string, opts ReadOptions) (document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return missing(opts), nil
		}

		return nil, fmt.Errorf("reading %s: %w", key, err)
	}

	doc, err := document.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, key, err)
	}

	return doc, nil
}

// Write implements [Store].
func (s *FileStore) Write(ctx context.Context, key string, doc document.Document) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	path, err := s.Path(key)
	if err != nil {
		return err
	}

	return writeFile(path, key, doc)
}

func writeFile(path, key string, doc document.Document) error {
	data, err := document.MarshalIndent(doc)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}

	mkdirErr := os.MkdirAll(filepath.Dir(path), dirPerms)
	if mkdirErr != nil {
		return fmt.Errorf("writing %s: creating directory: %w", key, mkdirErr)
	}

	writeErr := atomic.WriteFile(path, bytes.NewReader(data))
	if writeErr != nil {
		return fmt.Errorf("writing %s: %w", key, writeErr)
	}

	return nil
}

// Update runs fn on the current document while holding an exclusive lock
// on key, then writes the result. See [UpdateFunc] for the contract.
//
// The lock is a flock on a sidecar file in a ".locks" directory next to the
// document; it only excludes other callers of Update.
func (s *FileStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}

	return withLock(ctx, path, s.lockTimeout, func() error {
		current, readErr := readFile(path, key, ReadOptions{})
		if readErr != nil && !errors.Is(readErr, ErrCorrupt) {
			return readErr
		}

		next, fnErr := fn(current, readErr)
		if fnErr != nil {
			return fnErr
		}

		if next == nil {
			return nil
		}

		return writeFile(path, key, next)
	})
}

func missing(opts ReadOptions) document.Document {
	if opts.DefaultToObject {
		return document.Document{}
	}

	return nil
}

var (
	_ Store   = (*FileStore)(nil)
	_ Updater = (*FileStore)(nil)
)
