package store

import (
	"errors"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"syscall"
)

type child struct {
	name string
	kind EntryKind
}

// readChildren lists dir sorted by name. A directory that vanished is empty.
func readChildren(dir string) ([]child, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return nil, nil
		}
		return nil, err
	}
	children := make([]child, 0, len(entries))
	for _, d := range entries {
		kind := KindLeaf
		switch {
		case d.IsDir():
			kind = KindSubtree
		case d.Type()&fs.ModeSymlink != 0:
			if kind, err = classify(filepath.Join(dir, d.Name())); err != nil {
				return nil, err
			}
		}
		if kind != KindAbsent {
			children = append(children, child{d.Name(), kind})
		}
	}
	return children, nil
}

// visitFunc receives each match; returning false stops the traversal.
type visitFunc func(key Key, kind EntryKind) bool

// walkTree visits the subtree at dir itself and every descendant accepted by
// f. Top-down order visits a directory before its contents and lists a
// directory's subtrees and leaves before descending; bottom-up order is the
// reverse.
func walkTree(dir string, prefix Key, f Filter, bottomUp bool, fn visitFunc) (bool, error) {
	if !bottomUp && f.subtrees() && !fn(prefix, KindSubtree) {
		return false, nil
	}
	if ok, err := walkChildren(dir, prefix, f, bottomUp, fn); !ok || err != nil {
		return ok, err
	}
	if bottomUp && f.subtrees() {
		return fn(prefix, KindSubtree), nil
	}
	return true, nil
}

func walkChildren(dir string, prefix Key, f Filter, bottomUp bool, fn visitFunc) (bool, error) {
	children, err := readChildren(dir)
	if err != nil {
		return false, err
	}
	// A directory's subtrees are reported before its leaves.
	emit := func() bool {
		for _, kind := range []EntryKind{KindSubtree, KindLeaf} {
			for _, c := range children {
				if c.kind == kind && f.accepts(kind) && !fn(prefix.Child(c.name), kind) {
					return false
				}
			}
		}
		return true
	}

	if !bottomUp && !emit() {
		return false, nil
	}
	for _, c := range children {
		if c.kind != KindSubtree {
			continue
		}
		if ok, err := walkChildren(filepath.Join(dir, c.name), prefix.Child(c.name), f, bottomUp, fn); !ok || err != nil {
			return ok, err
		}
	}
	if bottomUp && !emit() {
		return false, nil
	}
	return true, nil
}

// expand visits the matches of one query step below prefix.
func (s *Store) expand(prefix Key, st step, f Filter, fn visitFunc) (bool, error) {
	dir := joinPath(s.root, prefix)

	if st.isExact() {
		key := prefix.Child(st.exact...)
		kind, err := classify(joinPath(s.root, key))
		if err != nil {
			return false, err
		}
		if f.accepts(kind) {
			return fn(key, kind), nil
		}
		return true, nil
	}

	switch st.token.kind {
	case TokenRecursive:
		return walkTree(dir, prefix, f, false, fn)
	default:
		children, err := readChildren(dir)
		if err != nil {
			return false, err
		}
		for _, c := range children {
			if st.token.kind == TokenPattern && !st.token.matches(c.name) {
				continue
			}
			if f.accepts(c.kind) && !fn(prefix.Child(c.name), c.kind) {
				return false, nil
			}
		}
		return true, nil
	}
}

// search evaluates q breadth first. Every step but the last only follows
// subtrees; the last step applies f. Branches whose intermediate segments
// are missing or leaves are dropped. Matches that vanish before their value
// is read are skipped.
func (s *Store) search(q Query, f Filter, withValues bool) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		if len(q) == 0 {
			yield(Item{}, s.fail(ErrEmptyQuery, nil))
			return
		}
		steps, err := q.steps()
		if err != nil {
			yield(Item{}, &Error{Err: ErrInvalidKey, Root: s.root, Cause: err})
			return
		}

		type pending struct {
			prefix Key
			rest   []step
		}
		queue := []pending{{prefix: Key{}, rest: steps}}

		for len(queue) > 0 {
			p := queue[0]
			queue = queue[1:]
			cur, rest := p.rest[0], p.rest[1:]

			final := len(rest) == 0
			filter := SubtreesOnly
			if final {
				filter = f
			}

			ok, err := s.expand(p.prefix, cur, filter, func(key Key, kind EntryKind) bool {
				if !final {
					queue = append(queue, pending{prefix: key, rest: rest})
					return true
				}
				item := Item{Key: key, Entry: Entry{kind: kind}}
				if withValues {
					e, err := s.entryAt(key, f)
					if err != nil {
						return yield(Item{Key: key}, err)
					}
					if e.IsAbsent() {
						return true
					}
					item.Entry = e
				}
				return yield(item, nil)
			})
			if err != nil {
				if !yield(Item{Key: p.prefix}, err) {
					return
				}
				continue
			}
			if !ok {
				return
			}
		}
	}
}

// Items lazily yields the key and entry of every match of q accepted by f.
// The root itself is matched as the empty key by a query of Recursive().
func (s *Store) Items(q Query, f Filter) iter.Seq2[Item, error] {
	return s.search(q, f, true)
}

// Keys is Items without reading leaf values.
func (s *Store) Keys(q Query, f Filter) iter.Seq2[Key, error] {
	return func(yield func(Key, error) bool) {
		for it, err := range s.search(q, f, false) {
			if !yield(it.Key, err) {
				return
			}
		}
	}
}

// Values is Items without keys.
func (s *Store) Values(q Query, f Filter) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for it, err := range s.search(q, f, true) {
			if !yield(it.Entry, err) {
				return
			}
		}
	}
}

// Children yields the immediate children of the root accepted by f.
func (s *Store) Children(f Filter) iter.Seq2[Item, error] {
	return s.Items(Q(Any()), f)
}

// WalkOptions control Walk.
type WalkOptions struct {
	Filter   Filter
	BottomUp bool // visit contents before their subtree
	KeysOnly bool // skip reading leaf values
}

// Walk yields the root and everything below it, like Items with a query of
// Recursive(), optionally bottom-up or without reading leaf values.
func (s *Store) Walk(opts WalkOptions) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		_, err := walkTree(s.root, Key{}, opts.Filter, opts.BottomUp, func(key Key, kind EntryKind) bool {
			item := Item{Key: key, Entry: Entry{kind: kind}}
			if !opts.KeysOnly {
				e, err := s.entryAt(key, opts.Filter)
				if err != nil {
					return yield(Item{Key: key}, err)
				}
				if e.IsAbsent() {
					return true
				}
				item.Entry = e
			}
			return yield(item, nil)
		})
		if err != nil {
			yield(Item{}, err)
		}
	}
}

func (s *Store) entryAt(key Key, f Filter) (Entry, error) {
	if key.IsRoot() {
		return SubtreeEntry(s), nil
	}
	return s.lookupPath(key, joinPath(s.root, key), LookupOptions{Filter: f, AllowMissing: true})
}
