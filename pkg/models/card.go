package models

// Card represents a vocabulary item to be learned
type Card struct {
	ID       int64  `json:"id" db:"id"`
	Phonetic string `json:"phonetic" db:"phonetic"`
	Word     string `json:"word" db:"word" validate:"required"`
	Sentence string `json:"sentence" db:"sentence"`
	AudioRef string `json:"audio_ref" db:"audio_ref"` // Optional: path or URI of the pronunciation audio
}
