package domain

import "errors"

// Failure taxonomy for the scraping pipeline. Stage boundaries wrap
// these with fmt.Errorf("...: %w", err) and callers match with
// errors.Is.
var (
	ErrNavigationTimeout        = errors.New("navigation timeout")
	ErrElementNotFound          = errors.New("element not found")
	ErrConnection               = errors.New("connection error")
	ErrParseFailure             = errors.New("parse failure")
	ErrConcurrencyLimitExceeded = errors.New("concurrent session limit reached")
	ErrJobAlreadyActive         = errors.New("session already has an active job")
)
