package spaced_repetition

import (
	"fmt"

	"github.com/example/flashy/pkg/models"
)

// Policy names
const (
	PolicySimple    = "simple"
	PolicyGraduated = "graduated"
)

// DefaultIntervals are the review gaps in days used by the graduated policy
var DefaultIntervals = []int{1, 2, 3, 4, 7, 8, 15, 30}

// Policy turns a classification into the next plan for a card. prev is the
// stored plan, or a zero plan with StatusNew for a card seen the first time.
type Policy interface {
	Name() string
	Next(prev models.ReviewPlan, classified models.Status, asOf models.Date) models.ReviewPlan
}

// PolicyByName returns the policy registered under name
func PolicyByName(name string) (Policy, error) {
	switch name {
	case PolicySimple, "":
		return SimplePolicy{}, nil
	case PolicyGraduated:
		return NewGraduatedPolicy(), nil
	default:
		return nil, fmt.Errorf("unknown schedule policy %q", name)
	}
}

// SimplePolicy brings every Reviewing card back the next day
type SimplePolicy struct{}

// Name returns PolicySimple
func (SimplePolicy) Name() string { return PolicySimple }

// Next keeps the classification and sets a due date of asOf+1 for Reviewing
func (SimplePolicy) Next(prev models.ReviewPlan, classified models.Status, asOf models.Date) models.ReviewPlan {
	next := prev
	next.Status = classified
	next.NextDueDate = nil
	if classified == models.StatusReviewing {
		next.NextDueDate = asOf.AddDays(1).Ptr()
	}
	return next
}

// GraduatedPolicy spaces reviews by an escalating list of intervals. Each
// successful review with no pending due date consumes the next interval;
// a card that has used them all is mastered.
type GraduatedPolicy struct {
	Intervals []int
}

// NewGraduatedPolicy creates a graduated policy with DefaultIntervals
func NewGraduatedPolicy() GraduatedPolicy {
	intervals := make([]int, len(DefaultIntervals))
	copy(intervals, DefaultIntervals)
	return GraduatedPolicy{Intervals: intervals}
}

// Name returns PolicyGraduated
func (GraduatedPolicy) Name() string { return PolicyGraduated }

// Next advances the card one interval on a Reviewing classification and
// masters it once the intervals run out. Learning clears the due date.
func (p GraduatedPolicy) Next(prev models.ReviewPlan, classified models.Status, asOf models.Date) models.ReviewPlan {
	next := prev

	if classified != models.StatusReviewing {
		next.Status = classified
		next.NextDueDate = nil
		return next
	}

	// still waiting for a scheduled review, e.g. a second answer the same day
	if prev.Status == models.StatusReviewing && prev.NextDueDate != nil && prev.NextDueDate.After(asOf) {
		return next
	}

	if prev.ReviewStep >= len(p.Intervals) {
		next.Status = models.StatusMastered
		next.NextDueDate = nil
		return next
	}

	next.Status = models.StatusReviewing
	next.NextDueDate = asOf.AddDays(p.Intervals[prev.ReviewStep]).Ptr()
	next.ReviewStep = prev.ReviewStep + 1
	return next
}
