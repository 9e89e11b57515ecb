package spaced_repetition

import "github.com/example/flashy/pkg/models"

// Classify maps a day's tally to a learning status. A strictly positive net
// score means the learner knows the card; ties, including an empty tally,
// keep it in Learning.
func Classify(correct, incorrect int) models.Status {
	if correct-incorrect > 0 {
		return models.StatusReviewing
	}
	return models.StatusLearning
}
