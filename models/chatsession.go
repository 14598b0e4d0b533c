package models

// ChatSessionInfo is a chat session joined with the mood of its anchoring
// mood log, the shape returned by the session-listing endpoint. EndedAt stays
// null until the session is explicitly ended.
type ChatSessionInfo struct {
	ID        int64   `json:"id" db:"id"`
	MoodLogID int64   `json:"mood_log_id" db:"mood_log_id"`
	Mood      string  `json:"mood" db:"mood"`
	StartedAt string  `json:"started_at" db:"started_at"`
	EndedAt   *string `json:"ended_at" db:"ended_at"`
}
