package models

import (
	"fmt"
	"strings"
)

// Outcome is the learner's answer to a presented card.
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomeMastered  Outcome = "mastered"
	OutcomeQuit      Outcome = "quit"
)

var outcomeByKey = map[string]Outcome{
	"y":         OutcomeCorrect,
	"n":         OutcomeIncorrect,
	"m":         OutcomeMastered,
	"q":         OutcomeQuit,
	"correct":   OutcomeCorrect,
	"incorrect": OutcomeIncorrect,
	"mastered":  OutcomeMastered,
	"quit":      OutcomeQuit,
}

// ParseOutcome maps a response key (y/n/m/q) or an outcome name to an Outcome.
func ParseOutcome(key string) (Outcome, error) {
	o, ok := outcomeByKey[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return "", fmt.Errorf("%w: response %q", ErrInvalidInput, key)
	}
	return o, nil
}

// IsValid reports whether o is a recognized outcome.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeCorrect, OutcomeIncorrect, OutcomeMastered, OutcomeQuit:
		return true
	}
	return false
}

// Deltas returns the ledger increments for a recall outcome.
func (o Outcome) Deltas() (correct, incorrect int) {
	switch o {
	case OutcomeCorrect:
		return 1, 0
	case OutcomeIncorrect:
		return 0, 1
	}
	return 0, 0
}
