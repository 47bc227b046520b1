package common

import "errors"

// Quality gate error taxonomy
var (
	// ErrNotFound post, evaluation or queue entry absent (404)
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyResolved a queue entry was resolved by a concurrent action (409)
	ErrAlreadyResolved = errors.New("approval entry already resolved")

	// ErrValidation malformed request or policy (400)
	ErrValidation = errors.New("validation failed")

	// ErrPersistence the store rejected a write; evaluations are retried as a whole (500)
	ErrPersistence = errors.New("persistence failure")

	// ErrAnalyzerTimeout an analyzer did not answer in time; recovered as a zero/fail score
	ErrAnalyzerTimeout = errors.New("analyzer timeout")

	// ErrNotCleared a publish was recorded for a post the gate does not clear (409)
	ErrNotCleared = errors.New("post is not cleared for publication")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
