package codec

type BuiltinName = string

const (
	PlainName       BuiltinName = "plain"
	BinaryName      BuiltinName = "binary"
	GobName         BuiltinName = "gob"
	CBORName        BuiltinName = "cbor"
	CBORNumericName BuiltinName = "cbor-numeric"
	MsgpackName     BuiltinName = "msgpack"
)

// RegisterBuiltins registers all built-in codecs into r by default
// or only the specific ones if names are provided
func RegisterBuiltins(r *Registry, names ...BuiltinName) {
	if len(names) == 0 {
		names = append(names, PlainName, BinaryName, GobName, CBORName, CBORNumericName, MsgpackName)
	}

	for _, name := range names {
		switch name {
		case PlainName:
			r.Register(Plain{})
		case BinaryName:
			r.Register(Binary{})
		case GobName:
			r.Register(Gob{})
		case CBORName:
			r.Register(CBOR{})
		case CBORNumericName:
			r.Register(CBOR{Numeric: true})
		case MsgpackName:
			r.Register(Msgpack{})
		}
	}
}
