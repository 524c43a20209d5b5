package jsonvalue

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidJSON is returned when a Value cannot be encoded, e.g. when it
	// holds a non-finite number.
	ErrInvalidJSON = errors.New("jsonvalue: invalid JSON")

	// ErrMergeType is matched by every *MergeTypeError.
	ErrMergeType = errors.New("jsonvalue: merge type mismatch")
)

// MergeTypeError reports a top-level merge between incompatible variants.
type MergeTypeError struct {
	Self  Kind
	Other Kind
}

func (e *MergeTypeError) Error() string {
	return fmt.Sprintf("jsonvalue: cannot merge %s into %s", e.Other, e.Self)
}

// Is makes errors.Is(err, ErrMergeType) hold.
func (e *MergeTypeError) Is(target error) bool {
	return target == ErrMergeType
}
