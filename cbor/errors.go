package cbor

import "fmt"

// EncodeError reports a value that violates a hard wire constraint and
// cannot be serialized.
type EncodeError struct {
	Value interface{}
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("cbor: cannot encode %T: %s", e.Value, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeError reports malformed input or a primitive shape that does not
// match the expected type.
type DecodeError struct {
	Target interface{}
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cbor: cannot decode into %T: %s", e.Target, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// NewDecodeError wraps a structural decoding failure discovered above the
// primitive layer, e.g. an unknown variant discriminant.
func NewDecodeError(target interface{}, format string, args ...interface{}) error {
	return &DecodeError{Target: target, Err: fmt.Errorf(format, args...)}
}
