package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Backend and session errors
	ErrRequestFailed     = fmt.Errorf("request failed")
	ErrMalformedResponse = fmt.Errorf("malformed response")
	ErrPersistenceFailed = fmt.Errorf("persistence failed")
	ErrOperationRejected = fmt.Errorf("operation rejected")
	ErrNotInitialized    = fmt.Errorf("session not initialized")
	ErrNotFound          = fmt.Errorf("not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
