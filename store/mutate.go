package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/brettbedarf/dictfs/codec"
	"github.com/brettbedarf/dictfs/compress"
	"github.com/brettbedarf/dictfs/internal/util"
	"github.com/google/uuid"
)

// rename is swapped out in tests to simulate moves across filesystems.
var rename = os.Rename

// Put stores v as the leaf at key, replacing any existing leaf and creating
// missing parent subtrees.
func (s *Store) Put(key Key, v any) error {
	return s.put(key, v, false)
}

// Append adds v to the leaf at key as an additional encoded item. Reading the
// leaf back yields every appended item. Append requires a codec and
// compression whose outputs can be concatenated.
func (s *Store) Append(key Key, v any) error {
	return s.put(key, v, true)
}

func (s *Store) put(key Key, v any, appendTo bool) error {
	logger := util.GetLogger("store")

	if !s.Writable() {
		return s.fail(ErrAccessViolation, key)
	}
	switch v.(type) {
	case *Store, Entry, *Entry:
		return s.fail(ErrStoreValue, key)
	}
	if appendTo && !s.concatenable() {
		return s.fail(ErrNotConcatenable, key)
	}
	if key.IsRoot() {
		return s.fail(ErrLeafOverSubtree, key)
	}

	path, err := s.resolvePath(key)
	if err != nil {
		return err
	}
	kind, err := classify(path)
	if err != nil {
		return err
	}
	if kind == KindSubtree {
		return s.fail(ErrLeafOverSubtree, key)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	s.cache.Invalidate(path)
	if err := s.writeLeaf(path, v, appendTo); err != nil {
		logger.Error().Err(err).Str("path", path).Msg("Failed to write leaf")
		return err
	}
	logger.Debug().Str("path", path).Bool("append", appendTo).Msg("Wrote leaf")
	return nil
}

func (s *Store) concatenable() bool {
	if !codec.IsConcatenable(s.codec) {
		return false
	}
	return compress.Disabled(s.compression, s.level) || s.compression.Concatenable()
}

// Delete removes the leaf or subtree at key. A missing key fails with
// ErrNoSuchKey unless ignoreMissing is set. The root cannot be deleted
// through its own handle.
func (s *Store) Delete(key Key, ignoreMissing bool) error {
	if !s.Writable() {
		return s.fail(ErrAccessViolation, key)
	}
	if key.IsRoot() {
		return &Error{Err: ErrInvalidKey, Root: s.root, Key: key, Cause: errors.New("cannot delete the root")}
	}
	path, err := s.resolvePath(key)
	if err != nil {
		return err
	}
	kind, err := classify(path)
	if err != nil {
		return err
	}

	switch kind {
	case KindSubtree:
		err = os.RemoveAll(path)
	case KindLeaf:
		err = os.Remove(path)
	default:
		if ignoreMissing {
			return nil
		}
		return s.fail(ErrNoSuchKey, key)
	}
	s.cache.Invalidate(path)
	if err != nil {
		return err
	}
	util.GetLogger("store").Debug().Str("path", path).Str("kind", kind.String()).Msg("Deleted entry")
	return nil
}

// Copy copies the leaf or subtree at src to dst.
func (s *Store) Copy(src, dst Key) error {
	return s.transfer(src, dst, false)
}

// Move moves the leaf or subtree at src to dst.
func (s *Store) Move(src, dst Key) error {
	return s.transfer(src, dst, true)
}

// transfer checks leaf and subtree conflicts at dst before copying or
// moving. A leaf may replace a leaf. A subtree may only replace an empty
// subtree.
func (s *Store) transfer(src, dst Key, move bool) error {
	logger := util.GetLogger("store")

	if !s.Writable() {
		return s.fail(ErrAccessViolation, dst)
	}
	for _, k := range []Key{src, dst} {
		if k.IsRoot() {
			return &Error{Err: ErrInvalidKey, Root: s.root, Key: k, Cause: errors.New("the root cannot be copied or moved")}
		}
	}
	srcPath, err := s.resolvePath(src)
	if err != nil {
		return err
	}
	dstPath, err := s.resolvePath(dst)
	if err != nil {
		return err
	}

	srcKind, err := classify(srcPath)
	if err != nil {
		return err
	}
	dstKind, err := classify(dstPath)
	if err != nil {
		return err
	}

	if srcKind == KindAbsent {
		return s.fail(ErrNoSuchKey, src)
	}
	same, err := sameEntry(srcPath, dstPath, dstKind)
	if err != nil {
		return err
	}
	if same {
		if move {
			return nil
		}
		return s.fail(ErrSameEntry, dst)
	}

	switch srcKind {
	case KindLeaf:
		if dstKind == KindSubtree {
			return s.fail(ErrLeafOverSubtree, dst)
		}
	case KindSubtree:
		if isBelow(dstPath, srcPath) {
			return s.fail(ErrDestinationInsideSource, dst)
		}
		switch dstKind {
		case KindLeaf:
			return s.fail(ErrSubtreeOverLeaf, dst)
		case KindSubtree:
			children, err := os.ReadDir(dstPath)
			if err != nil {
				return err
			}
			if len(children) > 0 {
				return s.fail(ErrSubtreeOverSubtree, dst)
			}
			if err := os.Remove(dstPath); err != nil {
				return err
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return err
	}
	defer s.cache.Invalidate(srcPath)
	defer s.cache.Invalidate(dstPath)

	switch {
	case move:
		err = movePath(srcPath, dstPath, srcKind)
	case srcKind == KindLeaf:
		err = copyFile(srcPath, dstPath)
	default:
		err = os.CopyFS(dstPath, os.DirFS(srcPath))
	}
	if err != nil {
		logger.Error().Err(err).Str("src", srcPath).Str("dst", dstPath).Bool("move", move).Msg("Transfer failed")
		return err
	}
	logger.Debug().Str("src", srcPath).Str("dst", dstPath).Bool("move", move).Msg("Transferred entry")
	return nil
}

// sameEntry reports whether dst already is src, either by path or as the
// same file reached through a link.
func sameEntry(src, dst string, dstKind EntryKind) (bool, error) {
	if src == dst {
		return true, nil
	}
	if dstKind == KindAbsent {
		return false, nil
	}
	si, err := os.Stat(src)
	if err != nil {
		return false, err
	}
	di, err := os.Stat(dst)
	if err != nil {
		return false, err
	}
	return os.SameFile(si, di), nil
}

func isBelow(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(os.PathSeparator))
}

// movePath renames src to dst. Across filesystems it copies to a staging
// name next to dst, renames that into place and then removes src.
func movePath(src, dst string, kind EntryKind) error {
	err := rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}

	staging := filepath.Join(filepath.Dir(dst), fmt.Sprintf(".%s.%s.tmp", filepath.Base(dst), uuid.NewString()))
	if kind == KindLeaf {
		err = copyFile(src, staging)
	} else {
		err = os.CopyFS(staging, os.DirFS(src))
	}
	if err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("move %s across filesystems: %w", src, err)
	}
	if err := os.Rename(staging, dst); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("move %s across filesystems: %w", src, err)
	}
	return os.RemoveAll(src)
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}
