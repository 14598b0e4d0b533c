package models

// MoodLog is one survey submission and its classified mood. The answers column
// holds the raw ten-question answer map serialized as JSON.
type MoodLog struct {
	ID        int64  `json:"id" db:"id"`
	UserID    int64  `json:"-" db:"user_id"`
	Mood      string `json:"mood" db:"mood"`
	Answers   string `json:"answers" db:"answers"`
	CreatedAt string `json:"created_at" db:"created_at"`
}
