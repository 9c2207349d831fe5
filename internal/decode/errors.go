// SPDX-License-Identifier: MIT
package decode

import "errors"

// Reasons a clip can be rejected. Callers match them with errors.Is.
var (
	ErrEmpty       = errors.New("empty audio")
	ErrUnsupported = errors.New("unsupported audio format")
	ErrCorrupt     = errors.New("corrupt or truncated audio")
	ErrTooShort    = errors.New("audio too short")
	ErrTooLong     = errors.New("audio too long")
)

// Error is returned for every input that cannot be turned into PCM. Err is
// one of the sentinel reasons above.
type Error struct {
	Err    error
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(reason error, detail string) *Error {
	return &Error{Err: reason, Detail: detail}
}
