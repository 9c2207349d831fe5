// SPDX-License-Identifier: MIT
package pipeline

import "errors"

var (
	// ErrBusy is returned when the analysis queue is full. The request may
	// be retried later.
	ErrBusy = errors.New("analysis queue is full")

	// ErrClosed is returned by a pool that no longer accepts work.
	ErrClosed = errors.New("analysis pool is closed")
)

// InputError reports a clip that cannot be analyzed: empty, unsupported,
// corrupt or out of the accepted duration range. It maps to a 4xx status.
type InputError struct {
	Err error
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Err.Error()
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// InternalError reports an unexpected failure inside the service. Its
// message is logged but never returned to the client.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string {
	return "internal error: " + e.Err.Error()
}

func (e *InternalError) Unwrap() error {
	return e.Err
}
