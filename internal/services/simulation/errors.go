package simulation

import "errors"

// Sentinel errors for the service boundary. Handlers map these onto the
// stable-code error envelope.
var (
	ErrJobNotFound   = errors.New("job not found")
	ErrQueueNotFound = errors.New("queue record not found")
	ErrValidation    = errors.New("validation error")
	ErrStateConflict = errors.New("state conflict")
)
