package recordstore

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrOversize = errors.New("record slot size ceiling exceeded")
	ErrDecode   = errors.New("unable to decode favorites")
)

// OversizeError is returned when a read or write would exceed the slot ceiling.
type OversizeError struct {
	Op      string
	Size    int64
	Ceiling int64
}

func (e *OversizeError) Error() string {
	return fmt.Sprintf("%v: %v bytes exceeds the %v byte ceiling", e.Op, e.Size, e.Ceiling)
}

func (e *OversizeError) Is(target error) bool {
	return target == ErrOversize
}

// DecodeError is returned when the stored bytes do not decode against the
// current schema. Document is true when they still parse as a JSON array,
// which makes them a candidate for migration.
type DecodeError struct {
	Document bool
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v (document=%v): %v", ErrDecode, e.Document, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}
