package leave

import "errors"

// Outcome taxonomy for every engine operation. Handlers match with errors.Is
// and map each sentinel to an envelope error code.
var (
	ErrValidation             = errors.New("validation error")
	ErrPolicyViolation        = errors.New("policy violation")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrForbidden              = errors.New("forbidden")
	ErrNotFound               = errors.New("not found")
	ErrConcurrencyConflict    = errors.New("concurrency conflict")
)
