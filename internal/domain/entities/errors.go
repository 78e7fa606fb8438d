package entities

import (
	"errors"
	"fmt"
)

// ErrFingerprintNotSet is returned when a run has no fingerprint yet.
var ErrFingerprintNotSet = errors.New("fingerprint not set")

// FingerprintExistsError indicates an attempt to overwrite a run's
// fingerprint without asking for regeneration.
type FingerprintExistsError struct {
	RunID       string
	ReferenceID string
}

func (e *FingerprintExistsError) Error() string {
	return fmt.Sprintf(
		"fingerprint for run %s already set from %s; pass regenerate to replace it",
		e.RunID,
		e.ReferenceID,
	)
}

// HashMismatchError indicates a sealed document whose stored hash does not
// match its content.
type HashMismatchError struct {
	Subject  string
	Expected string
	Actual   string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf(
		"%s integrity check failed: expected %s, got %s",
		e.Subject,
		e.Expected,
		e.Actual,
	)
}
