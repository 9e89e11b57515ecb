package models

import "time"

// User represents a learner identified by a local username
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Credential   string    `json:"-" db:"credential"` // bcrypt hash, empty when none was given
	RegisteredOn time.Time `json:"registered_on" db:"registered_on"`
}
