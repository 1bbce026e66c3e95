// Package codec defines the serialization capability used for leaf values and
// a name registry of built-in codecs.
//
// A codec turns one value into bytes and back. Codecs whose encoding is self
// delimiting report it through [Concatenable]; only those may be used for
// appending values to an existing leaf, and decoding such a leaf yields the
// list of appended values.
package codec

import (
	"fmt"
	"io"
)

// Codec encodes values to a sink and decodes them from a source.
type Codec interface {
	// Name identifies the codec. Handles sharing a cache must use codecs of
	// the same name.
	Name() string
	Encode(w io.Writer, v any) error
	Decode(r io.Reader) (any, error)
}

// Concatenable is implemented by codecs that can tell whether back to back
// encodings decode cleanly.
type Concatenable interface {
	Concatenable() bool
}

// IsConcatenable reports whether c opts into appends.
func IsConcatenable(c Codec) bool {
	cc, ok := c.(Concatenable)
	return ok && cc.Concatenable()
}

// Func adapts a pair of plain functions to a Codec.
type Func struct {
	Label      string
	EncodeFunc func(w io.Writer, v any) error
	DecodeFunc func(r io.Reader) (any, error)
	Appendable bool
}

func (f Func) Name() string { return f.Label }

func (f Func) Encode(w io.Writer, v any) error {
	if f.EncodeFunc == nil {
		return fmt.Errorf("codec %q has no encoder", f.Label)
	}
	return f.EncodeFunc(w, v)
}

func (f Func) Decode(r io.Reader) (any, error) {
	if f.DecodeFunc == nil {
		return nil, fmt.Errorf("codec %q has no decoder", f.Label)
	}
	return f.DecodeFunc(r)
}

func (f Func) Concatenable() bool { return f.Appendable }

var _ Concatenable = Func{}
