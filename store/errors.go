package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidKey              = errors.New("invalid key")
	ErrNoSuchKey               = errors.New("no such key")
	ErrAccessViolation         = errors.New("store is read-only")
	ErrNotIncludeSubtree       = errors.New("entry is a subtree but subtrees are excluded")
	ErrNotIncludeLeaf          = errors.New("entry is a leaf but leaves are excluded")
	ErrLeafPrefix              = errors.New("key prefix is a leaf")
	ErrLeafOverSubtree         = errors.New("cannot place a leaf over a subtree")
	ErrSubtreeOverLeaf         = errors.New("cannot place a subtree over a leaf")
	ErrSubtreeOverSubtree      = errors.New("cannot place a subtree over a non-empty subtree")
	ErrDestinationInsideSource = errors.New("destination lies inside the source subtree")
	ErrSameEntry               = errors.New("source and destination are the same entry")
	ErrStoreValue              = errors.New("store handles and entries cannot be stored as values")
	ErrEmptyQuery              = errors.New("search requires at least one criterion")
	ErrNotConcatenable         = errors.New("codec or compression does not support appending")
	ErrNotDirectory            = errors.New("store root is not a directory")
	ErrRootNotExist            = errors.New("store root does not exist")
	ErrOutsideRoot             = errors.New("path is outside the store root")
)

// Error carries the store root and offending key alongside one of the
// sentinel errors above. Use errors.Is against the sentinel.
type Error struct {
	Err    error
	Root   string
	Key    Key
	Prefix Key   // leaf prefix for ErrLeafPrefix
	Cause  error // underlying detail, if any
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.Key != nil {
		fmt.Fprintf(&b, ": %s", e.Key)
	}
	if e.Prefix != nil {
		fmt.Fprintf(&b, " (prefix %s)", e.Prefix)
	}
	if e.Root != "" {
		fmt.Fprintf(&b, " in %s", e.Root)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func (s *Store) fail(sentinel error, key Key) error {
	return &Error{Err: sentinel, Root: s.root, Key: key}
}
