package channel

import "errors"

var (
	// ErrContextInvalidated means the remote endpoint is gone for good (the
	// page navigated away, the extension reloaded). Not retryable; only the
	// probe loop restores validity.
	ErrContextInvalidated = errors.New("channel context invalidated")

	// ErrConnectionTransient is a momentary delivery failure worth retrying.
	ErrConnectionTransient = errors.New("channel connection transient")

	// ErrTimeout means a single attempt exceeded its deadline. Retryable.
	ErrTimeout = errors.New("channel send timeout")

	// ErrInvalid is returned by Send when the layer is latched INVALID;
	// no attempt is made.
	ErrInvalid = errors.New("channel invalid")
)

// Retryable reports whether err warrants another attempt within one Send.
func Retryable(err error) bool {
	return errors.Is(err, ErrConnectionTransient) || errors.Is(err, ErrTimeout)
}
