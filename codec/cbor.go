package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items.
var encMode cbor.EncMode

// decMode decodes maps into map[string]any and every integer into int64 when
// the target is any.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBOR is the structured binary codec. CBOR items are self delimiting, so a
// leaf holding several appended items decodes to a []any of them.
//
// With Numeric set, numeric slices are stored as RFC 8746 little endian typed
// arrays and decode back to the same slice type instead of []any.
type CBOR struct {
	Numeric bool
}

func (c CBOR) Name() string {
	if c.Numeric {
		return CBORNumericName
	}
	return CBORName
}

func (CBOR) Concatenable() bool { return true }

func (c CBOR) Encode(w io.Writer, v any) error {
	if c.Numeric {
		var err error
		if v, err = packTypedArrays(v); err != nil {
			return err
		}
	}
	if err := encMode.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("cbor encode: %w", err)
	}
	return nil
}

func (c CBOR) Decode(r io.Reader) (any, error) {
	dec := decMode.NewDecoder(r)
	var items []any
	for {
		var v any
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cbor decode: %w", err)
		}
		if c.Numeric {
			if v, err = unpackTypedArrays(v); err != nil {
				return nil, err
			}
		}
		items = append(items, v)
	}
	return collapseItems(items)
}

// collapseItems returns the single item of a leaf, or every item when values
// were appended.
func collapseItems(items []any) (any, error) {
	switch len(items) {
	case 0:
		return nil, fmt.Errorf("empty leaf: %w", io.ErrUnexpectedEOF)
	case 1:
		return items[0], nil
	default:
		return items, nil
	}
}

// RFC 8746 little endian typed array tags.
const (
	tagUint16LE  = 69
	tagUint32LE  = 70
	tagUint64LE  = 71
	tagInt16LE   = 77
	tagInt32LE   = 78
	tagInt64LE   = 79
	tagFloat32LE = 85
	tagFloat64LE = 86
)

func typedArrayTag(v any) (uint64, bool) {
	switch v.(type) {
	case []uint16:
		return tagUint16LE, true
	case []uint32:
		return tagUint32LE, true
	case []uint64:
		return tagUint64LE, true
	case []int16:
		return tagInt16LE, true
	case []int32:
		return tagInt32LE, true
	case []int64:
		return tagInt64LE, true
	case []float32:
		return tagFloat32LE, true
	case []float64:
		return tagFloat64LE, true
	}
	return 0, false
}

func packTypedArrays(v any) (any, error) {
	if tag, ok := typedArrayTag(v); ok {
		var buf bytes.Buffer
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("pack typed array: %w", err)
		}
		// Empty arrays must stay a byte string rather than encode as null.
		return cbor.Tag{Number: tag, Content: append([]byte{}, buf.Bytes()...)}, nil
	}

	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			packed, err := packTypedArrays(item)
			if err != nil {
				return nil, err
			}
			out[k] = packed
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			packed, err := packTypedArrays(item)
			if err != nil {
				return nil, err
			}
			out[i] = packed
		}
		return out, nil
	}
	return v, nil
}

func unpackTypedArrays(v any) (any, error) {
	switch x := v.(type) {
	case cbor.Tag:
		raw, ok := x.Content.([]byte)
		if !ok {
			return v, nil
		}
		return decodeTypedArray(x.Number, raw)
	case map[string]any:
		for k, item := range x {
			unpacked, err := unpackTypedArrays(item)
			if err != nil {
				return nil, err
			}
			x[k] = unpacked
		}
		return x, nil
	case []any:
		for i, item := range x {
			unpacked, err := unpackTypedArrays(item)
			if err != nil {
				return nil, err
			}
			x[i] = unpacked
		}
		return x, nil
	}
	return v, nil
}

func decodeTypedArray(tag uint64, raw []byte) (any, error) {
	var out any
	var width int
	switch tag {
	case tagUint16LE:
		out, width = make([]uint16, len(raw)/2), 2
	case tagUint32LE:
		out, width = make([]uint32, len(raw)/4), 4
	case tagUint64LE:
		out, width = make([]uint64, len(raw)/8), 8
	case tagInt16LE:
		out, width = make([]int16, len(raw)/2), 2
	case tagInt32LE:
		out, width = make([]int32, len(raw)/4), 4
	case tagInt64LE:
		out, width = make([]int64, len(raw)/8), 8
	case tagFloat32LE:
		out, width = make([]float32, len(raw)/4), 4
	case tagFloat64LE:
		out, width = make([]float64, len(raw)/8), 8
	default:
		return cbor.Tag{Number: tag, Content: raw}, nil
	}
	if len(raw)%width != 0 {
		return nil, fmt.Errorf("typed array tag %d: %d bytes is not a multiple of %d", tag, len(raw), width)
	}
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, out); err != nil {
		return nil, fmt.Errorf("unpack typed array: %w", err)
	}
	return out, nil
}
