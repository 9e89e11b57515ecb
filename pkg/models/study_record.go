package models

// StudyRecord is the per-day tally of recall outcomes for a user and card
type StudyRecord struct {
	UserID         int64 `json:"user_id" db:"user_id"`
	CardID         int64 `json:"card_id" db:"card_id"`
	StudyDate      Date  `json:"study_date" db:"study_date"`
	CorrectCount   int   `json:"correct_count" db:"correct_count"`
	IncorrectCount int   `json:"incorrect_count" db:"incorrect_count"`
}

// Attempts returns the number of observations recorded for the day
func (r StudyRecord) Attempts() int {
	return r.CorrectCount + r.IncorrectCount
}
