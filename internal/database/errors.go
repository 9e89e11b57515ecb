package database

import (
	"fmt"

	"github.com/example/flashy/pkg/models"
)

// PersistenceError wraps a failure reported by the database driver.
// errors.Is(err, models.ErrPersistence) matches every PersistenceError.
type PersistenceError struct {
	Op     string // e.g. "get", "upsert"
	Entity string // e.g. "card", "review plan"
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is reports a match against models.ErrPersistence.
func (e *PersistenceError) Is(target error) bool {
	return target == models.ErrPersistence
}

func newPersistenceError(op, entity string, err error) error {
	return &PersistenceError{Op: op, Entity: entity, Err: err}
}
