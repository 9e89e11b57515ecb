package models

import (
	"encoding"
	"encoding/json"
	"fmt"
)

// Status is the learning stage of a card for one user.
type Status int

const (
	StatusNew       Status = iota // Never studied.
	StatusLearning                // Studied, incorrect answers keep up with correct ones.
	StatusReviewing               // Studied, more correct than incorrect, waiting for a due date.
	StatusMastered                // Terminal, never shown again.
)

var (
	statusNames = [...]string{
		StatusNew:       "New",
		StatusLearning:  "Learning",
		StatusReviewing: "Reviewing",
		StatusMastered:  "Mastered",
	}
	statusByName = map[string]Status{
		"New":       StatusNew,
		"Learning":  StatusLearning,
		"Reviewing": StatusReviewing,
		"Mastered":  StatusMastered,
	}
)

var (
	_ fmt.Stringer             = Status(0)
	_ json.Marshaler           = Status(0)
	_ json.Unmarshaler         = (*Status)(nil)
	_ encoding.TextMarshaler   = Status(0)
	_ encoding.TextUnmarshaler = (*Status)(nil)
)

// IsValid reports whether s is one of the four known statuses.
func (s Status) IsValid() bool {
	return s >= StatusNew && s <= StatusMastered
}

// IsActive reports whether a card in this status can still appear in a session.
func (s Status) IsActive() bool {
	return s == StatusLearning || s == StatusReviewing
}

// String returns the status name. Invalid values render as "Status(n)".
func (s Status) String() string {
	if s.IsValid() {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatus, int(s))
	}
	return []byte(statusNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	v, ok := statusByName[string(text)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, text)
	}
	*s = v
	return nil
}

// MarshalJSON implements json.Marshaler. Status serializes as a JSON string.
func (s Status) MarshalJSON() ([]byte, error) {
	text, err := s.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, data)
	}
	return s.UnmarshalText([]byte(str))
}
