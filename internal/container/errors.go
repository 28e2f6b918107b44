package container

import (
	"errors"
	"fmt"
)

var (
	ErrTooShort     = errors.New("stream too short for footer")
	ErrOutputExists = errors.New("output already exists")
	ErrInvalidName  = errors.New("invalid container name")
	ErrNotFused     = errors.New("container is not fused")
	ErrEmptySegment = errors.New("segment is empty")
	ErrSizeMismatch = errors.New("size mismatch")
	ErrTooLarge     = errors.New("stream exceeds int64 range")
)

// FormatError reports a stream that cannot carry a footer.
type FormatError struct {
	Size uint64
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%v: %d bytes, need at least %d", ErrTooShort, e.Size, FooterSize)
}

func (e *FormatError) Unwrap() error { return ErrTooShort }

// IOError wraps a failure from the underlying storage.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
