package codec

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Plain stores the UTF-8 text form of a value and decodes it as a string.
type Plain struct{}

func (Plain) Name() string       { return PlainName }
func (Plain) Concatenable() bool { return true }

func (Plain) Encode(w io.Writer, v any) error {
	var err error
	switch x := v.(type) {
	case string:
		_, err = io.WriteString(w, x)
	case []byte:
		if !utf8.Valid(x) {
			return fmt.Errorf("plain codec: value is not valid UTF-8")
		}
		_, err = w.Write(x)
	default:
		_, err = fmt.Fprint(w, x)
	}
	return err
}

func (Plain) Decode(r io.Reader) (any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("plain codec: stored data is not valid UTF-8")
	}
	return string(data), nil
}

// Binary writes byte values directly and decodes them as []byte.
type Binary struct{}

func (Binary) Name() string       { return BinaryName }
func (Binary) Concatenable() bool { return true }

func (Binary) Encode(w io.Writer, v any) error {
	var err error
	switch x := v.(type) {
	case []byte:
		_, err = w.Write(x)
	case string:
		_, err = io.WriteString(w, x)
	case io.Reader:
		_, err = io.Copy(w, x)
	default:
		return fmt.Errorf("binary codec cannot encode %T", v)
	}
	return err
}

func (Binary) Decode(r io.Reader) (any, error) {
	return io.ReadAll(r)
}

func init() {
	// Nested values decoded by the structured codecs come back with these
	// types, so they must be encodable as interface values too.
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// Gob serializes arbitrary Go values with encoding/gob. Concrete types carried
// inside interfaces must be registered with gob.Register by the caller. Gob
// streams carry type definitions, so encodings cannot be concatenated.
type Gob struct{}

func (Gob) Name() string       { return GobName }
func (Gob) Concatenable() bool { return false }

func (Gob) Encode(w io.Writer, v any) error {
	if err := gob.NewEncoder(w).Encode(&v); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func (Gob) Decode(r io.Reader) (any, error) {
	var v any
	if err := gob.NewDecoder(r).Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("gob decode: empty leaf: %w", io.ErrUnexpectedEOF)
		}
		return nil, fmt.Errorf("gob decode: %w", err)
	}
	return v, nil
}
