package store

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/brettbedarf/dictfs/codec"
	"github.com/brettbedarf/dictfs/compress"
	"github.com/prashantv/gostub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelete(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	mustPut(t, s, K("a"), 1)
	mustPut(t, s, K("b", "c"), 2)
	assert.Equal(t, int64(1), mustLeaf(t, s, K("a")))
	assert.Equal(t, int64(2), mustLeaf(t, s, K("b", "c")))

	require.NoError(t, s.Delete(K("a"), false))
	require.NoError(t, s.Delete(K("b"), false))

	for _, key := range []Key{K("a"), K("b"), K("b", "c")} {
		ok, err := s.Exists(key)
		require.NoError(t, err)
		assert.False(t, ok, key.String())
		e, err := s.GetDefault(key, nil)
		require.NoError(t, err)
		assert.True(t, e.IsAbsent())
	}

	assert.ErrorIs(t, s.Delete(K("a"), false), ErrNoSuchKey)
	assert.NoError(t, s.Delete(K("a"), true))
	assert.ErrorIs(t, s.Delete(Key{}, true), ErrInvalidKey)
}

func TestAppend(t *testing.T) {
	t.Parallel()

	for _, alg := range []compress.Algorithm{compress.None, compress.Gzip, compress.Zstd} {
		t.Run(alg.String(), func(t *testing.T) {
			t.Parallel()
			opts := DefaultOptions()
			opts.Create = true
			opts.Compression = alg
			s := openTestStore(t, t.TempDir(), opts)

			require.NoError(t, s.Append(K("a"), 1))
			assert.Equal(t, int64(1), mustLeaf(t, s, K("a")))
			require.NoError(t, s.Append(K("a"), 2))
			assert.Equal(t, []any{int64(1), int64(2)}, mustLeaf(t, s, K("a")))
			require.NoError(t, s.Append(K("a"), 3))
			assert.Equal(t, []any{int64(1), int64(2), int64(3)}, mustLeaf(t, s, K("a")))
		})
	}
}

func TestAppend_Msgpack(t *testing.T) {
	t.Parallel()
	opts := DefaultOptions()
	opts.Create = true
	opts.CodecName = codec.MsgpackName
	s := openTestStore(t, t.TempDir(), opts)

	mustPut(t, s, K("a"), "x")
	require.NoError(t, s.Append(K("a"), "y"))
	assert.Equal(t, []any{"x", "y"}, mustLeaf(t, s, K("a")))
}

func TestAppend_NotConcatenable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		codec string
		alg   compress.Algorithm
		level int
	}{
		{"gob codec", codec.GobName, compress.Gzip, 9},
		{"lz4 compression", codec.CBORName, compress.LZ4, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := Options{Create: true, CodecName: tt.codec, Compression: tt.alg, CompressLevel: tt.level}
			s := openTestStore(t, t.TempDir(), opts)
			assert.ErrorIs(t, s.Append(K("a"), 1), ErrNotConcatenable)
		})
	}

	// Level 0 bypasses lz4 framing entirely.
	s := openTestStore(t, t.TempDir(), Options{Create: true, Compression: compress.LZ4})
	require.NoError(t, s.Append(K("a"), 1))
	require.NoError(t, s.Append(K("a"), 2))
	assert.Equal(t, []any{int64(1), int64(2)}, mustLeaf(t, s, K("a")))
}

func TestAppend_OverSubtree(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	mustPut(t, s, K("a", "b"), 1)
	assert.ErrorIs(t, s.Append(K("a"), 1), ErrLeafOverSubtree)
}

func TestMove_Leaf(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	mustPut(t, s, K("a", "b"), 1)

	require.NoError(t, s.Move(K("a", "b"), K("d")))
	assert.Equal(t, int64(1), mustLeaf(t, s, K("d")))
	ok, _ := s.Exists(K("a"))
	assert.True(t, ok)
	ok, _ = s.Exists(K("a", "b"))
	assert.False(t, ok)
}

func TestCopy_Leaf(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	mustPut(t, s, K("a", "b"), 1)
	mustPut(t, s, K("d"), 5)
	assert.Equal(t, int64(5), mustLeaf(t, s, K("d")))

	require.NoError(t, s.Copy(K("a", "b"), K("d")))
	assert.Equal(t, int64(1), mustLeaf(t, s, K("d")))
	assert.Equal(t, int64(1), mustLeaf(t, s, K("a", "b")))
}

func seedTree(t *testing.T, s *Store, root Key) {
	t.Helper()
	mustPut(t, s, root.Child("1"), 1)
	mustPut(t, s, root.Child("2"), 2)
	mustPut(t, s, root.Child("c", "3"), 3)
}

func assertTree(t *testing.T, s *Store, root Key) {
	t.Helper()
	assert.Equal(t, int64(1), mustLeaf(t, s, root.Child("1")))
	assert.Equal(t, int64(2), mustLeaf(t, s, root.Child("2")))
	assert.Equal(t, int64(3), mustLeaf(t, s, root.Child("c", "3")))
}

func TestMove_Subtree(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	seedTree(t, s, K("a"))

	require.NoError(t, s.Move(K("a"), K("b")))
	assertTree(t, s, K("b"))
	ok, _ := s.Exists(K("a"))
	assert.False(t, ok)
}

func TestCopy_Subtree(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	seedTree(t, s, K("a"))

	require.NoError(t, s.Copy(K("a"), K("x", "b")))
	assertTree(t, s, K("x", "b"))
	assertTree(t, s, K("a"))
}

func TestTransfer_Conflicts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(t *testing.T, s *Store)
		src     Key
		dst     Key
		wantErr error
	}{
		{
			name:    "missing source",
			setup:   func(t *testing.T, s *Store) {},
			src:     K("nope"),
			dst:     K("dst"),
			wantErr: ErrNoSuchKey,
		},
		{
			name: "leaf over subtree",
			setup: func(t *testing.T, s *Store) {
				mustPut(t, s, K("src"), 1)
				mustPut(t, s, K("dst", "x"), 2)
			},
			src: K("src"), dst: K("dst"), wantErr: ErrLeafOverSubtree,
		},
		{
			name: "subtree over leaf",
			setup: func(t *testing.T, s *Store) {
				mustPut(t, s, K("src", "x"), 1)
				mustPut(t, s, K("dst"), 2)
			},
			src: K("src"), dst: K("dst"), wantErr: ErrSubtreeOverLeaf,
		},
		{
			name: "subtree over non-empty subtree",
			setup: func(t *testing.T, s *Store) {
				mustPut(t, s, K("src", "x"), 1)
				mustPut(t, s, K("dst", "y"), 2)
			},
			src: K("src"), dst: K("dst"), wantErr: ErrSubtreeOverSubtree,
		},
		{
			name: "destination inside source",
			setup: func(t *testing.T, s *Store) {
				mustPut(t, s, K("src", "x"), 1)
			},
			src: K("src"), dst: K("src", "inner"), wantErr: ErrDestinationInsideSource,
		},
		{
			name: "destination below a leaf",
			setup: func(t *testing.T, s *Store) {
				mustPut(t, s, K("src"), 1)
				mustPut(t, s, K("dst"), 2)
			},
			src: K("src"), dst: K("dst", "deeper"), wantErr: ErrLeafPrefix,
		},
		{
			name:    "root source",
			setup:   func(t *testing.T, s *Store) {},
			src:     Key{},
			dst:     K("dst"),
			wantErr: ErrInvalidKey,
		},
	}
	for _, tt := range tests {
		for _, move := range []bool{false, true} {
			name := tt.name + "/copy"
			if move {
				name = tt.name + "/move"
			}
			t.Run(name, func(t *testing.T) {
				t.Parallel()
				s := newTestStore(t)
				tt.setup(t, s)

				var err error
				if move {
					err = s.Move(tt.src, tt.dst)
				} else {
					err = s.Copy(tt.src, tt.dst)
				}
				assert.ErrorIs(t, err, tt.wantErr)
			})
		}
	}
}

func TestMove_SubtreeOverSubtreeLeavesBothUnmodified(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	seedTree(t, s, K("src"))
	mustPut(t, s, K("dst", "keep"), "kept")

	assert.ErrorIs(t, s.Move(K("src"), K("dst")), ErrSubtreeOverSubtree)
	assertTree(t, s, K("src"))
	assert.Equal(t, "kept", mustLeaf(t, s, K("dst", "keep")))

	require.NoError(t, s.Delete(K("dst", "keep"), false))
	require.NoError(t, s.Move(K("src"), K("dst")))
	assertTree(t, s, K("dst"))

	n, err := func() (int, error) {
		sub, err := s.Subtree(K("dst"))
		if err != nil {
			return 0, err
		}
		return sub.Len()
	}()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMove_AcrossFilesystems(t *testing.T) {
	// Not parallel: replaces the package rename function.
	stubs := gostub.Stub(&rename, func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
	})
	defer stubs.Reset()

	s := newTestStore(t)
	seedTree(t, s, K("a"))
	mustPut(t, s, K("leaf"), "v")
	mustPut(t, s, K("other"), "old")

	require.NoError(t, s.Move(K("a"), K("b")))
	assertTree(t, s, K("b"))
	ok, _ := s.Exists(K("a"))
	assert.False(t, ok)

	require.NoError(t, s.Move(K("leaf"), K("other")))
	assert.Equal(t, "v", mustLeaf(t, s, K("other")))
	ok, _ = s.Exists(K("leaf"))
	assert.False(t, ok)

	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, ".tmp", filepath.Ext(e.Name()), "staging file left behind")
	}
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	require.NoError(t, s.Update(map[string]any{"a": int64(1), "b": map[string]any{"c": int64(2)}}, 0))
	assert.Equal(t, int64(1), mustLeaf(t, s, K("a")))
	assert.Equal(t, map[string]any{"c": int64(2)}, mustLeaf(t, s, K("b")))

	require.NoError(t, s.Delete(K("b"), false))
	require.NoError(t, s.Update(map[string]any{"a": int64(1), "b": map[string]any{"c": int64(2)}}, 1))
	e, err := s.Get(K("b"))
	require.NoError(t, err)
	sub, ok := e.Subtree()
	require.True(t, ok)
	assert.Equal(t, filepath.Join(s.Root(), "b"), sub.Root())
	assert.Equal(t, int64(2), mustLeaf(t, s, K("b", "c")))
}

func TestCopy_LeafOntoItself(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	mustPut(t, s, K("a"), "precious")

	assert.ErrorIs(t, s.Copy(K("a"), K("a")), ErrSameEntry)
	assert.Equal(t, "precious", mustLeaf(t, s, K("a")))

	require.NoError(t, s.Move(K("a"), K("a")))
	assert.Equal(t, "precious", mustLeaf(t, s, K("a")))
}

func TestCopy_SubtreeOntoItself(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	seedTree(t, s, K("a"))

	assert.ErrorIs(t, s.Copy(K("a"), K("a")), ErrSameEntry)
	require.NoError(t, s.Move(K("a"), K("a")))
	assertTree(t, s, K("a"))
}

func TestCopy_LeafOntoLinkedSelf(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	mustPut(t, s, K("a"), "precious")
	require.NoError(t, os.Link(filepath.Join(s.Root(), "a"), filepath.Join(s.Root(), "b")))

	assert.ErrorIs(t, s.Copy(K("a"), K("b")), ErrSameEntry)
	assert.Equal(t, "precious", mustLeaf(t, s, K("a")))
	assert.Equal(t, "precious", mustLeaf(t, s, K("b")))
}
