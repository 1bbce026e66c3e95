package mocks

import (
	"io"

	"github.com/stretchr/testify/mock"
)

// MockCodec implements codec.Codec for testing across packages. It does not
// import the codec package so codec's own tests can use it.
type MockCodec struct {
	mock.Mock
}

func (m *MockCodec) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockCodec) Encode(w io.Writer, v any) error {
	args := m.Called(w, v)

	// Handle function return types (for tests that need to write bytes)
	if fn, ok := args.Get(0).(func(io.Writer, any) error); ok {
		return fn(w, v)
	}
	return args.Error(0)
}

func (m *MockCodec) Decode(r io.Reader) (any, error) {
	args := m.Called(r)

	// Handle function return types (for tests that need to read bytes)
	if fn, ok := args.Get(0).(func(io.Reader) (any, error)); ok {
		return fn(r)
	}
	return args.Get(0), args.Error(1)
}

// NewPassthroughCodec returns a MockCodec named name that stores string values
// verbatim, for tests counting Encode/Decode calls.
func NewPassthroughCodec(name string) *MockCodec {
	m := &MockCodec{}
	m.On("Name").Return(name)
	m.On("Encode", mock.Anything, mock.Anything).Return(func(w io.Writer, v any) error {
		_, err := io.WriteString(w, v.(string))
		return err
	})
	m.On("Decode", mock.Anything).Return(func(r io.Reader) (any, error) {
		b, err := io.ReadAll(r)
		return string(b), err
	}, nil)
	return m
}
