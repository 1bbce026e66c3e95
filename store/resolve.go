package store

import (
	"os"

	"github.com/brettbedarf/dictfs/internal/util"
)

// LookupOptions control how a key is resolved.
type LookupOptions struct {
	Filter Filter

	// Create makes a missing entry as an empty subtree. It requires a
	// writable handle and always accepts subtrees.
	Create bool

	// AllowMissing returns an absent entry carrying Default instead of
	// failing with ErrNoSuchKey.
	AllowMissing bool
	Default      any
}

// resolvePath validates key and checks that no proper prefix of it is a
// leaf, returning the path the key maps to.
func (s *Store) resolvePath(key Key) (string, error) {
	path, err := s.KeyPath(key)
	if err != nil {
		return "", err
	}
	for i := 1; i < len(key); i++ {
		info, err := os.Stat(joinPath(s.root, key[:i]))
		if err != nil {
			// Nothing below a missing prefix can exist.
			break
		}
		if !info.IsDir() {
			return "", &Error{Err: ErrLeafPrefix, Root: s.root, Key: key, Prefix: key[:i:i]}
		}
	}
	return path, nil
}

// Lookup resolves key through the shared cache.
func (s *Store) Lookup(key Key, opts LookupOptions) (Entry, error) {
	if opts.Create && !s.Writable() {
		return Entry{}, s.fail(ErrAccessViolation, key)
	}
	path, err := s.resolvePath(key)
	if err != nil {
		return Entry{}, err
	}
	if key.IsRoot() {
		return s.self(key, opts)
	}
	return s.lookupPath(key, path, opts)
}

// lookupPath is Lookup for a key already known to be valid.
func (s *Store) lookupPath(key Key, path string, opts LookupOptions) (Entry, error) {
	logger := util.GetLogger("store")

	e, err := s.cache.GetOrResolve(path, func() (Entry, bool, error) {
		e, err := s.resolveDirect(key, path, opts)
		return e, err == nil && e.kind != KindAbsent, err
	})
	if err != nil {
		return Entry{}, err
	}
	logger.Trace().Str("path", path).Str("kind", e.kind.String()).Msg("Resolved key")

	switch e.kind {
	case KindSubtree:
		if !opts.Filter.subtrees() && !opts.Create {
			return Entry{}, s.fail(ErrNotIncludeSubtree, key)
		}
		if e.sub.mode != s.mode {
			e = SubtreeEntry(s.borrow(path))
		}
	case KindLeaf:
		if !opts.Filter.leaves() {
			return Entry{}, s.fail(ErrNotIncludeLeaf, key)
		}
	}
	return e, nil
}

// LookupDirect resolves key from the filesystem without consulting or
// filling the cache.
func (s *Store) LookupDirect(key Key, opts LookupOptions) (Entry, error) {
	if opts.Create && !s.Writable() {
		return Entry{}, s.fail(ErrAccessViolation, key)
	}
	path, err := s.resolvePath(key)
	if err != nil {
		return Entry{}, err
	}
	if key.IsRoot() {
		return s.self(key, opts)
	}
	return s.resolveDirect(key, path, opts)
}

func (s *Store) self(key Key, opts LookupOptions) (Entry, error) {
	if !opts.Filter.subtrees() && !opts.Create {
		return Entry{}, s.fail(ErrNotIncludeSubtree, key)
	}
	return SubtreeEntry(s), nil
}

func (s *Store) resolveDirect(key Key, path string, opts LookupOptions) (Entry, error) {
	kind, err := classify(path)
	if err != nil {
		return Entry{}, err
	}

	switch kind {
	case KindSubtree:
		if !opts.Filter.subtrees() && !opts.Create {
			return Entry{}, s.fail(ErrNotIncludeSubtree, key)
		}
		return SubtreeEntry(s.borrow(path)), nil
	case KindLeaf:
		if !opts.Filter.leaves() {
			return Entry{}, s.fail(ErrNotIncludeLeaf, key)
		}
		v, err := s.readLeaf(path)
		if err != nil {
			return Entry{}, err
		}
		return LeafEntry(v), nil
	}

	if opts.Create {
		if !s.Writable() {
			return Entry{}, s.fail(ErrAccessViolation, key)
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return Entry{}, err
		}
		util.GetLogger("store").Debug().Str("path", path).Msg("Created subtree")
		return SubtreeEntry(s.borrow(path)), nil
	}
	if opts.AllowMissing {
		return AbsentEntry(opts.Default), nil
	}
	return Entry{}, s.fail(ErrNoSuchKey, key)
}

// Get returns the entry at key, leaf or subtree.
func (s *Store) Get(key Key) (Entry, error) {
	return s.Lookup(key, LookupOptions{})
}

// GetDefault is Get returning an absent entry carrying fallback when key is
// missing.
func (s *Store) GetDefault(key Key, fallback any) (Entry, error) {
	return s.Lookup(key, LookupOptions{AllowMissing: true, Default: fallback})
}

// Subtree returns the subtree at key, creating it if it is missing.
func (s *Store) Subtree(key Key) (*Store, error) {
	e, err := s.Lookup(key, LookupOptions{Filter: SubtreesOnly, Create: true})
	if err != nil {
		return nil, err
	}
	return e.sub, nil
}

// Leaf returns the decoded value of the leaf at key.
func (s *Store) Leaf(key Key) (any, error) {
	e, err := s.Lookup(key, LookupOptions{Filter: LeavesOnly})
	if err != nil {
		return nil, err
	}
	return e.value, nil
}

func (s *Store) exists(key Key) (EntryKind, error) {
	path, err := s.resolvePath(key)
	if err != nil {
		return KindAbsent, err
	}
	return classify(path)
}

// Exists reports whether key holds a leaf or a subtree.
func (s *Store) Exists(key Key) (bool, error) {
	k, err := s.exists(key)
	return k != KindAbsent, err
}

func (s *Store) SubtreeExists(key Key) (bool, error) {
	k, err := s.exists(key)
	return k == KindSubtree, err
}

func (s *Store) LeafExists(key Key) (bool, error) {
	k, err := s.exists(key)
	return k == KindLeaf, err
}

// Len returns the number of immediate children of the root.
func (s *Store) Len() (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	return len(entries), nil
}

// Empty reports whether the root has no children.
func (s *Store) Empty() (bool, error) {
	n, err := s.Len()
	return n == 0, err
}
