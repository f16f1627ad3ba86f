package audit

import "errors"

var (
	// ErrEventValidation indicates event validation failed.
	ErrEventValidation = errors.New("audit: event validation failed")

	// ErrFailedToStore indicates the storage backend rejected the event.
	ErrFailedToStore = errors.New("audit: failed to store event")
)
