package models

type ChatMessage struct {
	ID        int64  `json:"id" db:"id"`
	SessionID int64  `json:"-" db:"session_id"`
	Role      string `json:"role" db:"role"`
	Content   string `json:"content" db:"content"`
	CreatedAt string `json:"created_at" db:"created_at"`
}
