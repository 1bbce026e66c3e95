// Package store maps nested dictionaries onto a directory tree. Every subtree
// is a directory and every leaf is a file whose bytes are the codec encoding
// of the leaf value, optionally compressed.
//
// A [Store] is a handle on one directory. Handles created from one another
// share a stat-validated [cache.Cache], so reads through any of them see
// writes made through the others as well as writes made outside the process.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync/atomic"

	"github.com/brettbedarf/dictfs/cache"
	"github.com/brettbedarf/dictfs/codec"
	"github.com/brettbedarf/dictfs/compress"
	"github.com/brettbedarf/dictfs/internal/util"
)

// Mode is the access mode of a handle.
type Mode uint8

const (
	// ReadOnly handles reject every mutation and subtree creation.
	ReadOnly Mode = iota
	// Writable handles may mutate the tree and create subtrees.
	Writable
)

func (m Mode) String() string {
	if m == Writable {
		return "rw"
	}
	return "r"
}

// ParseMode parses the letters r, w and c in any combination. w grants
// writes; c grants writes and asks for the root to be created if missing.
func ParseMode(s string) (mode Mode, create bool, err error) {
	for _, ch := range s {
		switch ch {
		case 'r':
		case 'w':
			mode = Writable
		case 'c':
			mode, create = Writable, true
		default:
			return ReadOnly, false, fmt.Errorf("invalid access mode %q", s)
		}
	}
	return mode, create, nil
}

// DefaultCacheSize is used when Options.CacheSize is not positive.
const DefaultCacheSize = 128

// Options configure Open. The zero value opens an existing root read-only
// with the default codec and no compression; DefaultOptions matches the
// package defaults of gzip at level 9.
type Options struct {
	Mode   Mode
	Create bool // create the root if missing; implies Writable

	CacheSize int                 // size of a cache owned by this handle
	Cache     *cache.Cache[Entry] // shared cache; CacheSize is ignored when set

	Codec     codec.Codec // takes precedence over CodecName
	CodecName string      // registry name, default "cbor"

	Compression   compress.Algorithm
	CompressLevel int // 0 disables compression
}

// DefaultOptions returns read-only options with cbor and gzip level 9.
func DefaultOptions() Options {
	return Options{
		CacheSize:     DefaultCacheSize,
		CodecName:     codec.CBORName,
		Compression:   compress.Gzip,
		CompressLevel: compress.MaxLevel,
	}
}

// Store is a handle on one directory of a store.
type Store struct {
	root        string
	mode        Mode
	codec       codec.Codec
	compression compress.Algorithm
	level       int
	cache       *cache.Cache[Entry]

	// owned handles hold a cache reference; borrowed handles, produced while
	// resolving subtrees, share it without one.
	owned  bool
	closed atomic.Bool
}

// Open returns a handle on root. The root must be an existing directory
// unless opts.Create is set, in which case it is created.
func Open(root string, opts Options) (*Store, error) {
	logger := util.GetLogger("store")

	if opts.Create {
		opts.Mode = Writable
	}
	abs, err := canonicalPath(root)
	if err != nil {
		return nil, &Error{Err: ErrRootNotExist, Root: root, Cause: err}
	}

	info, err := os.Stat(abs)
	switch {
	case err == nil && !info.IsDir():
		logger.Error().Str("root", abs).Msg("Store root is not a directory")
		return nil, &Error{Err: ErrNotDirectory, Root: abs}
	case errors.Is(err, fs.ErrNotExist) && opts.Create:
		if err := os.MkdirAll(abs, 0o755); err != nil {
			logger.Error().Err(err).Str("root", abs).Msg("Failed to create store root")
			return nil, fmt.Errorf("create store root %s: %w", abs, err)
		}
		if abs, err = canonicalPath(abs); err != nil {
			return nil, err
		}
		logger.Debug().Str("root", abs).Msg("Created store root")
	case errors.Is(err, fs.ErrNotExist):
		return nil, &Error{Err: ErrRootNotExist, Root: abs}
	case err != nil:
		return nil, fmt.Errorf("stat store root %s: %w", abs, err)
	}

	name := opts.CodecName
	if name == "" {
		name = codec.CBORName
	}
	c, err := codec.Resolve(name, opts.Codec)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to resolve codec")
		return nil, err
	}
	if opts.CompressLevel < 0 || opts.CompressLevel > compress.MaxLevel {
		return nil, fmt.Errorf("compression level %d out of range 0-%d", opts.CompressLevel, compress.MaxLevel)
	}

	shared := opts.Cache
	if shared == nil {
		size := opts.CacheSize
		if size <= 0 {
			size = DefaultCacheSize
		}
		if shared, err = cache.New[Entry](size); err != nil {
			return nil, err
		}
	}

	s := &Store{
		root:        abs,
		mode:        opts.Mode,
		codec:       c,
		compression: opts.Compression,
		level:       opts.CompressLevel,
		cache:       shared,
		owned:       true,
	}
	if err := shared.Bind(s.signature()); err != nil {
		logger.Error().Err(err).Str("root", abs).Msg("Cache cannot be shared")
		return nil, err
	}
	shared.Acquire()
	logger.Debug().Str("root", abs).Str("mode", s.mode.String()).Str("codec", c.Name()).
		Str("compression", s.compression.String()).Int("level", s.level).Msg("Opened store")
	return s, nil
}

// signature describes how leaf bytes are turned into cached values.
func (s *Store) signature() string {
	if compress.Disabled(s.compression, s.level) {
		return s.codec.Name() + "/none/0"
	}
	return fmt.Sprintf("%s/%s/%d", s.codec.Name(), s.compression, s.level)
}

// borrow returns a handle on dir sharing the cache, codec and mode of s.
func (s *Store) borrow(dir string) *Store {
	return &Store{
		root:        dir,
		mode:        s.mode,
		codec:       s.codec,
		compression: s.compression,
		level:       s.level,
		cache:       s.cache,
	}
}

// WithMode opens another handle on the same root with the given mode,
// sharing the cache of s.
func (s *Store) WithMode(mode Mode) (*Store, error) {
	return Open(s.root, Options{
		Mode:          mode,
		Cache:         s.cache,
		Codec:         s.codec,
		Compression:   s.compression,
		CompressLevel: s.level,
	})
}

// SetMode changes the access mode of s in place. Handles are not safe for
// concurrent use with SetMode.
func (s *Store) SetMode(mode Mode) {
	s.mode = mode
}

func (s *Store) Mode() Mode                      { return s.mode }
func (s *Store) Writable() bool                  { return s.mode == Writable }
func (s *Store) Root() string                    { return s.root }
func (s *Store) Codec() codec.Codec              { return s.codec }
func (s *Store) Compression() compress.Algorithm { return s.compression }
func (s *Store) CompressLevel() int              { return s.level }

// Cache returns the cache shared by s, for passing to Options.Cache.
func (s *Store) Cache() *cache.Cache[Entry] { return s.cache }

func (s *Store) String() string {
	return fmt.Sprintf("Store(%s, %s)", s.root, s.mode)
}

// Close releases the cache reference held by s. Closing a borrowed subtree
// handle, or closing twice, has no effect. Releasing the last reference purges
// the cache; borrowed handles obtained from s keep working afterwards and
// refill it as they resolve keys.
func (s *Store) Close() error {
	if !s.owned || s.closed.Swap(true) {
		return nil
	}
	s.cache.Release()
	return nil
}

// ClearCache drops every entry of the shared cache.
func (s *Store) ClearCache() {
	s.cache.Clear()
}

// KeyPath returns the filesystem path denoted by key.
func (s *Store) KeyPath(key Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", &Error{Err: ErrInvalidKey, Root: s.root, Key: key, Cause: err}
	}
	return joinPath(s.root, key), nil
}

// PathKey returns the key of a filesystem path below the root. The root
// itself maps to the empty key.
func (s *Store) PathKey(path string) (Key, error) {
	p, err := canonicalPath(path)
	if err != nil {
		return nil, err
	}
	if p == s.root {
		return Key{}, nil
	}
	prefix := s.root + string(os.PathSeparator)
	if strings.HasSuffix(s.root, string(os.PathSeparator)) {
		prefix = s.root
	}
	rel, ok := strings.CutPrefix(p, prefix)
	if !ok {
		return nil, &Error{Err: ErrOutsideRoot, Root: s.root, Cause: fmt.Errorf("path %s", path)}
	}
	return Key(strings.Split(rel, string(os.PathSeparator))), nil
}
