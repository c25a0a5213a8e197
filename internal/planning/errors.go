package planning

import (
	"errors"
	"fmt"
)

// ErrGenerationFailed matches every gateway failure: transport errors, timeouts,
// empty replies and replies that fail the output schema.
var ErrGenerationFailed = errors.New("generation failed")

// GenerationFailedError carries the operation and a human-readable reason.
type GenerationFailedError struct {
	Operation string
	Reason    string
	Err       error
}

func (e *GenerationFailedError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Reason)
}

func (e *GenerationFailedError) Unwrap() error {
	return e.Err
}

func (e *GenerationFailedError) Is(target error) bool {
	return target == ErrGenerationFailed
}

func failed(op, reason string, err error) error {
	return &GenerationFailedError{Operation: op, Reason: reason, Err: err}
}
