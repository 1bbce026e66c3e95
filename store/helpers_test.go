package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestStore creates a writable store in a fresh temp dir with the default
// codec and compression.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	opts := DefaultOptions()
	opts.Create = true
	return openTestStore(t, filepath.Join(t.TempDir(), "store"), opts)
}

func openTestStore(t *testing.T, root string, opts Options) *Store {
	t.Helper()
	s, err := Open(root, opts)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustPut(t *testing.T, s *Store, key Key, v any) {
	t.Helper()
	require.NoError(t, s.Put(key, v))
}

func mustLeaf(t *testing.T, s *Store, key Key) any {
	t.Helper()
	v, err := s.Leaf(key)
	require.NoError(t, err)
	return v
}

// realPath resolves symlinks in a temp dir path so it compares equal to a
// store root.
func realPath(t *testing.T, path string) string {
	t.Helper()
	p, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	return p
}
