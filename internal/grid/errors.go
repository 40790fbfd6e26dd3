package grid

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration covers a bounding box that cannot produce output.
	ErrConfiguration = errors.New("configuration error")

	// ErrEmptySelection is returned when the box selects no grid cells.
	ErrEmptySelection = fmt.Errorf("%w: bounding box selects no grid cells", ErrConfiguration)

	// ErrDimensionMismatch is returned when an input grid differs from the
	// reference grid the spatial index was resolved on.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrWrite wraps any failure creating or writing the output container.
	ErrWrite = errors.New("write error")

	errUnsupportedType = errors.New("unsupported variable type")
)

// ReadError reports a failure reading one input file.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
