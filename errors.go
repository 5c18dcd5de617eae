package pathtree

import "errors"

var (
	// ErrInvalidPath is returned for paths that cannot be written: empty
	// paths, negative indices, indices too far past the end of an array,
	// or keys whose kind does not match an existing branch.
	ErrInvalidPath = errors.New("invalid path")

	// ErrUnsupportedValue is returned when a value is not plain data.
	ErrUnsupportedValue = errors.New("unsupported value")

	// ErrCorruptNode is returned when persisted bytes fail verification or
	// cannot be decoded.
	ErrCorruptNode = errors.New("corrupt node")
)
