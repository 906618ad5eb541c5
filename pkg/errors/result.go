package errors

import (
	"errors"
)

// Result is the response envelope returned by every mutating endpoint.
type Result struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors,omitempty"`
}

// Ok returns a successful result
func Ok() Result {
	return Result{Success: true}
}

// ResultFrom converts an error into a failure result.
// A nil error yields a successful result.
func ResultFrom(err error) Result {
	if err == nil {
		return Ok()
	}

	var e *Error
	if errors.As(err, &e) {
		msgs := []string{e.Message}
		if violations, ok := e.Details["violations"].([]string); ok {
			msgs = append(msgs, violations...)
		}
		return Result{Success: false, Errors: msgs}
	}
	return Result{Success: false, Errors: []string{"internal error"}}
}

// StatusFor returns the HTTP status code for err.
func StatusFor(err error) int {
	return MapErrorCodeToHTTPStatus(GetCode(err))
}
