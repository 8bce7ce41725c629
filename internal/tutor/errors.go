package tutor

import "fmt"

// RequestError wraps any failure of the model service for a task.
type RequestError struct {
	Purpose string
	Err     error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Purpose, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// MalformedOutputError means the service answered but the output could
// not be used, e.g. quiz JSON with no valid questions.
type MalformedOutputError struct {
	Raw string
	Err error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("unusable model output: %v", e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }
