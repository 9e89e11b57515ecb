package models

// ReviewPlan is the current scheduling decision for a user and card
type ReviewPlan struct {
	UserID        int64  `json:"user_id" db:"user_id"`
	CardID        int64  `json:"card_id" db:"card_id"`
	Status        Status `json:"status" db:"status"`
	TotalAttempts int    `json:"total_attempts" db:"total_attempts"`
	ReviewStep    int    `json:"review_step" db:"review_step"`     // Index into the graduated interval list
	NextDueDate   *Date  `json:"next_due_date" db:"next_due_date"` // Set only while Reviewing
}

// IsDueOn reports whether the plan puts the card in a session held on day
func (p *ReviewPlan) IsDueOn(day Date) bool {
	switch p.Status {
	case StatusLearning:
		return true
	case StatusReviewing:
		return p.NextDueDate != nil && !p.NextDueDate.After(day)
	default:
		return false
	}
}

// Validate checks the due date invariant
func (p *ReviewPlan) Validate() error {
	if !p.Status.IsValid() {
		return ErrInvalidStatus
	}
	if p.NextDueDate != nil && p.Status != StatusReviewing {
		return ErrInvariantViolation
	}
	return nil
}
