package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrUnbound is returned when a turn is sent before Bind.
	ErrUnbound = errors.New("chat session is not bound")

	// ErrBusy is returned when a turn is sent while a reply is streaming.
	ErrBusy = errors.New("previous reply is still streaming")
)

// FallbackReply is shown when a turn fails before any text arrived.
const FallbackReply = "Sorry, something went wrong."

// StreamError ends a stream that failed after it started. Chunks delivered
// before it stay valid.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("reply interrupted: %v", e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }
