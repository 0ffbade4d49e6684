package common

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks a programmer error in the arguments of an operation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrIndexOutOfRange marks an index outside the valid range of a collection.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// CheckIndex validates 0 <= index < length when safety checks are compiled in.
func CheckIndex(index, length int) error {
	if !SafetyChecks {
		return nil
	}
	if index < 0 || index >= length {
		return fmt.Errorf("index %d not in [0,%d): %w", index, length, ErrIndexOutOfRange)
	}
	return nil
}
