package codec

import (
	"fmt"
	"slices"

	"github.com/puzpuzpuz/xsync/v4"
)

// Registry maps codec names to codecs. It is safe for concurrent use.
type Registry struct {
	codecs *xsync.Map[string, Codec]
}

func NewRegistry() *Registry {
	return &Registry{codecs: xsync.NewMap[string, Codec]()}
}

// Register adds c under c.Name(). The first codec registered for a name wins;
// Register reports whether c was stored.
func (r *Registry) Register(c Codec) bool {
	_, loaded := r.codecs.LoadOrStore(c.Name(), c)
	return !loaded
}

// Get returns the codec registered under name.
func (r *Registry) Get(name string) (Codec, error) {
	c, ok := r.codecs.Load(name)
	if !ok {
		return nil, fmt.Errorf("no codec registered for %q", name)
	}
	return c, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.codecs.Size())
	r.codecs.Range(func(name string, _ Codec) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)
	return names
}

// Default holds every built-in codec.
var Default = func() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}()

// Get looks name up in the Default registry.
func Get(name string) (Codec, error) {
	return Default.Get(name)
}

// Resolve returns c when it is set and otherwise looks name up in the Default
// registry.
func Resolve(name string, c Codec) (Codec, error) {
	if c != nil {
		return c, nil
	}
	return Default.Get(name)
}
