package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"

	"github.com/brettbedarf/dictfs/compress"
)

// classify stats path. A missing path, or one below a leaf, is absent.
func classify(path string) (EntryKind, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return KindSubtree, nil
	case err == nil:
		return KindLeaf, nil
	case errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR):
		return KindAbsent, nil
	default:
		return KindAbsent, err
	}
}

func (s *Store) readLeaf(path string) (v any, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := compress.NewReader(f, s.compression, s.level)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	v, err = s.codec.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s with %s: %w", path, s.codec.Name(), err)
	}
	return v, nil
}

// writeLeaf encodes v into path, truncating it or, with appendTo, adding a
// new compressed stream after the existing bytes.
func (s *Store) writeLeaf(path string, v any, appendTo bool) (err error) {
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if appendTo {
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w, err := compress.NewWriter(f, s.compression, s.level)
	if err != nil {
		return err
	}
	if err := s.codec.Encode(w, v); err != nil {
		w.Close()
		return fmt.Errorf("encode %s with %s: %w", path, s.codec.Name(), err)
	}
	return w.Close()
}
