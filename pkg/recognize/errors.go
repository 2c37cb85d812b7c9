package recognize

import "fmt"

// BackendError is the single error kind raised for recognition-backend
// failures (network, quota, unsupported configuration). The session pipeline
// treats it as fatal to the current channel: the failure is reported to the
// client as one error event and the channel is closed.
type BackendError struct {
	// Backend names the failing backend ("google", "whisper").
	Backend string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("recognize: %s backend failed: %v", e.Backend, e.Err)
}

// Unwrap returns the underlying cause.
func (e *BackendError) Unwrap() error { return e.Err }
