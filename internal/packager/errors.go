package packager

import (
	"errors"
	"fmt"

	"grayblend/internal/blend"
)

var (
	// ErrDecode matches item errors raised while reading input bytes.
	ErrDecode = errors.New("decode failed")
	// ErrEncode matches item errors raised while writing PNG output.
	ErrEncode = errors.New("encode failed")
	// ErrEmptyBatch is returned when no input could be converted.
	ErrEmptyBatch = errors.New("no images could be processed")
	// ErrInvalidIntensity is returned before any work for out-of-range intensities.
	ErrInvalidIntensity = blend.ErrInvalidIntensity
)

// Op names the pipeline step an ItemError came from.
type Op string

const (
	OpDecode Op = "decode"
	OpEncode Op = "encode"
)

// ItemError describes why a single input was skipped.
type ItemError struct {
	Op   Op
	Name string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrDecode and ErrEncode by operation.
func (e *ItemError) Is(target error) bool {
	switch target {
	case ErrDecode:
		return e.Op == OpDecode
	case ErrEncode:
		return e.Op == OpEncode
	default:
		return false
	}
}

// EmptyBatchError carries the per-item failures of a batch that produced
// nothing. It matches ErrEmptyBatch.
type EmptyBatchError struct {
	Total    int
	Failures []ItemResult
}

func (e *EmptyBatchError) Error() string {
	if e.Total == 0 {
		return ErrEmptyBatch.Error() + ": no inputs"
	}
	return fmt.Sprintf("%s: all %d inputs failed", ErrEmptyBatch, e.Total)
}

func (e *EmptyBatchError) Is(target error) bool {
	return target == ErrEmptyBatch
}
