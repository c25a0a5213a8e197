package database

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested key does not exist
var ErrNotFound = errors.New("key not found")

// CorruptValueError is returned when a stored value cannot be decoded
type CorruptValueError struct {
	Key string
	Err error
}

func (e *CorruptValueError) Error() string {
	return fmt.Sprintf("stored value for %q is corrupt: %v", e.Key, e.Err)
}

func (e *CorruptValueError) Unwrap() error {
	return e.Err
}
