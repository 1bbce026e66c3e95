// Package compress provides the leveled compression transforms applied to leaf
// files. Level 0 disables compression for every algorithm so that leaf files
// hold the codec's bytes verbatim.
package compress

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm identifies the compressor wrapped around leaf files.
type Algorithm uint8

const (
	// None writes codec output unchanged regardless of level.
	None Algorithm = iota

	// Gzip is the default. Multi-member gzip streams are read back as one
	// stream, so appended writes decode as concatenated codec output.
	Gzip

	// Zstd frames may also be concatenated.
	Zstd

	// LZ4 uses the lz4 frame format. Appending a second frame is not
	// supported by this package.
	LZ4
)

// MaxLevel is the highest accepted level for every algorithm.
const MaxLevel = 9

// String returns the human-readable name of an algorithm.
func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

// Parse parses an algorithm from its string representation. The empty string
// selects Gzip.
func Parse(name string) (Algorithm, error) {
	switch name {
	case "none":
		return None, nil
	case "", "gzip":
		return Gzip, nil
	case "zstd":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression algorithm: %q", name)
	}
}

// Concatenable reports whether two compressed streams written back to back
// read as the concatenation of their payloads.
func (a Algorithm) Concatenable() bool {
	return a != LZ4
}

// Disabled reports whether writes at level pass through uncompressed.
func Disabled(a Algorithm, level int) bool {
	return a == None || level == 0
}

// NewWriter wraps w with the algorithm's compressor at level. The returned
// writer must be closed to flush the stream; closing does not close w.
func NewWriter(w io.Writer, a Algorithm, level int) (io.WriteCloser, error) {
	if level < 0 || level > MaxLevel {
		return nil, fmt.Errorf("compression level %d out of range [0, %d]", level, MaxLevel)
	}
	if Disabled(a, level) {
		return nopWriteCloser{w}, nil
	}

	switch a {
	case Gzip:
		gw, err := gzip.NewWriterLevel(w, level)
		if err != nil {
			return nil, fmt.Errorf("gzip writer: %w", err)
		}
		return gw, nil

	case Zstd:
		zw, err := zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		return zw, nil

	case LZ4:
		lw := lz4.NewWriter(w)
		if err := lw.Apply(lz4.CompressionLevelOption(lz4Levels[level])); err != nil {
			return nil, fmt.Errorf("lz4 writer: %w", err)
		}
		return lw, nil

	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", a)
	}
}

// NewReader wraps r with the decompressor matching NewWriter(a, level).
// Closing the returned reader does not close r.
func NewReader(r io.Reader, a Algorithm, level int) (io.ReadCloser, error) {
	if Disabled(a, level) {
		return io.NopCloser(r), nil
	}

	switch a {
	case Gzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return gr, nil

	case Zstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return zr.IOReadCloser(), nil

	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil

	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", a)
	}
}

// lz4Levels maps 1-9 onto lz4's HC levels. Index 0 is unused since level 0
// never reaches the compressor.
var lz4Levels = [MaxLevel + 1]lz4.CompressionLevel{
	lz4.Fast,
	lz4.Level1, lz4.Level2, lz4.Level3,
	lz4.Level4, lz4.Level5, lz4.Level6,
	lz4.Level7, lz4.Level8, lz4.Level9,
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
