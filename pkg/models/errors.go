package models

import (
	"errors"
	"fmt"
)

// Common errors shared by the storage, scheduling and session layers.
// Use errors.Is to check them.
var (
	// ErrNotFound is returned when a card, user or plan does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when an insert would violate a uniqueness rule.
	ErrDuplicate = errors.New("already exists")

	// ErrInvariantViolation marks a programming error such as scheduling a
	// pair that has no ledger row. It aborts the session.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrInvalidInput is returned for learner responses or ledger deltas that
	// are outside the accepted set.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidStatus is returned for status values outside New..Mastered.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrPersistence is matched by every storage failure.
	ErrPersistence = errors.New("persistence failure")

	ErrCardNotFound = fmt.Errorf("%w: card", ErrNotFound)
	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)
	ErrPlanNotFound = fmt.Errorf("%w: review plan", ErrNotFound)

	ErrStudyRecordNotFound = fmt.Errorf("%w: study record", ErrNotFound)
)
