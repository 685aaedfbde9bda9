package transcript

import (
	"errors"
	"fmt"
)

// Sentinel errors for synchronously rejected operations - use with errors.Is().
var (
	// ErrEmptyMessage rejects a send with no text. Never reaches the network.
	ErrEmptyMessage = errors.New("message text is empty")

	// ErrReplyPending rejects a send while an assistant reply is outstanding.
	ErrReplyPending = errors.New("a reply is already pending")
)

// InvariantError signals a caller bug: an id collision or an out-of-order
// history prefix. It is not recoverable and must never be silently swallowed.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("transcript invariant violated: %s", e.Reason)
}
