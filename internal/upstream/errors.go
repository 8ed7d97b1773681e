package upstream

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrMissingCredential means no API key is configured. This is a fatal
	// configuration error and is never retried.
	ErrMissingCredential = errors.New("OPENROUTER_API_KEY is missing")

	// ErrTimeout marks a timed-out or aborted upstream call.
	ErrTimeout = errors.New("upstream request timed out")
)

// Error describes a failed upstream call. Status is the HTTP status code, or
// zero for transport-level failures.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream error: %s", e.Message)
}

// DefaultRetryable reports whether an attempt should be retried: only
// server-side statuses and reset connections qualify. Timeouts, client
// errors, and malformed responses propagate immediately.
func DefaultRetryable(err error) bool {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Status >= 500
	}
	return errors.Is(err, syscall.ECONNRESET)
}
