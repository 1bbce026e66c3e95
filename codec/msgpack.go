package codec

import (
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack is a structured binary codec using MessagePack. Like CBOR, appended
// items decode to a []any.
type Msgpack struct{}

func (Msgpack) Name() string       { return MsgpackName }
func (Msgpack) Concatenable() bool { return true }

func (Msgpack) Encode(w io.Writer, v any) error {
	if err := msgpack.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("msgpack encode: %w", err)
	}
	return nil
}

func (Msgpack) Decode(r io.Reader) (any, error) {
	dec := msgpack.NewDecoder(r)
	// integers decode to int64/uint64 and floats to float64 at every depth
	dec.UseLooseInterfaceDecoding(true)

	var items []any
	for {
		v, err := dec.DecodeInterface()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("msgpack decode: %w", err)
		}
		items = append(items, v)
	}
	return collapseItems(items)
}
