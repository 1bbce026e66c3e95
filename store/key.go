package store

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Key is a composite key: one segment per path component below a store root.
// The empty Key denotes the root itself.
type Key []string

// K builds a Key from parts. Strings are used as is, Keys and string slices
// are flattened and any other value contributes its canonical string form.
//
//	K("a", 1, "X") // Key{"a", "1", "X"}
func K(parts ...any) Key {
	k := make(Key, 0, len(parts))
	for _, p := range parts {
		switch x := p.(type) {
		case Key:
			k = append(k, x...)
		case []string:
			k = append(k, x...)
		default:
			k = append(k, segmentOf(p))
		}
	}
	return k
}

func segmentOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Child returns a new Key with name appended. k is not modified.
func (k Key) Child(name ...string) Key {
	return slices.Concat(k, Key(name))
}

// IsRoot reports whether k denotes the store root.
func (k Key) IsRoot() bool {
	return len(k) == 0
}

func (k Key) String() string {
	if k.IsRoot() {
		return "<root>"
	}
	return strings.Join(k, "/")
}

// Validate checks every segment. Segments must be non-empty, must not be "."
// or "..", and must not contain a path separator or NUL.
func (k Key) Validate() error {
	for _, seg := range k {
		if err := validateSegment(seg); err != nil {
			return err
		}
	}
	return nil
}

func validateSegment(seg string) error {
	switch {
	case seg == "":
		return fmt.Errorf("empty segment")
	case seg == "." || seg == "..":
		return fmt.Errorf("segment %q is reserved", seg)
	case strings.ContainsRune(seg, '/') || strings.ContainsRune(seg, filepath.Separator):
		return fmt.Errorf("segment %q contains a path separator", seg)
	case strings.ContainsRune(seg, 0):
		return fmt.Errorf("segment %q contains NUL", seg)
	}
	return nil
}

// joinPath maps an already validated key below dir.
func joinPath(dir string, k Key) string {
	if k.IsRoot() {
		return dir
	}
	return filepath.Join(append([]string{dir}, k...)...)
}

// canonicalPath returns the absolute, cleaned form of path with symlinks
// resolved as far as the path exists.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	// Resolve the longest existing ancestor so that paths below a symlinked
	// directory still compare equal to the root.
	dir, rest := abs, []string{}
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		rest = append([]string{filepath.Base(dir)}, rest...)
		dir = parent
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
	}
}
