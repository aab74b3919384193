// Package agent adapts reasoning backends (a managed agent endpoint or a
// raw LLM) into the single recommendation call the expert finder makes.
package agent

import (
	"errors"
)

var (
	// ErrUnavailable means the reasoning backend could not be reached or
	// failed to produce an answer.
	ErrUnavailable = errors.New("reasoning backend unavailable")

	// ErrThrottled means the reasoning backend rejected the call because of
	// rate limiting.
	ErrThrottled = errors.New("reasoning backend throttled")

	// ErrMalformedOutput means the backend answered but the answer does not
	// match the recommendation schema.
	ErrMalformedOutput = errors.New("malformed reasoning output")
)

// IsFatalClass reports whether err already carries one of the classified
// reasoning sentinels.
func IsFatalClass(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrThrottled) ||
		errors.Is(err, ErrMalformedOutput)
}
