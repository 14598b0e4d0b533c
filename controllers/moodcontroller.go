package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zarkopopovski/mood-chat/db"
	"github.com/zarkopopovski/mood-chat/llm"
	"github.com/zarkopopovski/mood-chat/models"
	"github.com/zarkopopovski/mood-chat/survey"
)

type MoodController struct {
	DBManager  *db.DBManager
	LLMService *llm.Service
	Logger     *zap.Logger
	Validate   *validator.Validate
}

type detectMoodRequest struct {
	Username string            `json:"username" validate:"required"`
	Answers  map[string]string `json:"answers" validate:"required"`
}

type moodHistoryItem struct {
	ID        int64             `json:"id"`
	Mood      string            `json:"mood"`
	Answers   map[string]string `json:"answers"`
	CreatedAt string            `json:"created_at"`
}

// DetectMood classifies a ten-question survey submission and persists the
// resulting mood log. Answers are validated against the closed survey schema
// before any store or model access.
func (mController *MoodController) DetectMood(w http.ResponseWriter, r *http.Request) {
	var request detectMoodRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Invalid request body"})
		return
	}
	defer r.Body.Close()

	if err := mController.Validate.Struct(request); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Username and answers are required"})
		return
	}

	if err := survey.Validate(request.Answers); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"status": "error", "message": err.Error()})
		return
	}

	username := strings.TrimSpace(request.Username)

	queryStr := "SELECT * FROM users WHERE username=$1 LIMIT 1"

	user := models.User{}

	if err := mController.DBManager.DB.Get(&user, queryStr, username); err != nil {
		jsonResponse(w, http.StatusNotFound, map[string]string{"status": "error", "message": "User not found. Please signup first."})
		return
	}

	mood, err := mController.LLMService.DetectMood(r.Context(), request.Answers)
	if err != nil {
		mController.Logger.Error("mood detection failed", zap.String("username", username), zap.Error(err))

		jsonResponse(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Failed to detect mood from model"})
		return
	}

	answersJSON, err := json.Marshal(request.Answers)
	if err != nil {
		jsonResponse(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Something got wrong..."})
		return
	}

	insertStr := "INSERT INTO mood_logs(user_id, mood, answers, created_at) VALUES($1, $2, $3, $4)"

	result, err := mController.DBManager.DB.Exec(insertStr, user.ID, mood, string(answersJSON), db.Now())
	if err != nil {
		mController.Logger.Error("failed to save mood log", zap.String("username", username), zap.Error(err))

		jsonResponse(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Something got wrong..."})
		return
	}

	logID, err := result.LastInsertId()
	if err != nil {
		jsonResponse(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Something got wrong..."})
		return
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"mood":   mood,
		"status": "success",
		"log_id": logID,
	})
}

// MoodHistory returns all mood logs for a user, newest first, with the stored
// answer maps deserialized back into objects.
func (mController *MoodController) MoodHistory(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PathValue("username"))

	queryStr := "SELECT COUNT(*) FROM users WHERE username=$1"

	var count int
	if err := mController.DBManager.DB.Get(&count, queryStr, username); err != nil || count == 0 {
		jsonResponse(w, http.StatusNotFound, map[string]string{"status": "error", "message": "User not found"})
		return
	}

	queryHistoryStr := `SELECT ml.id, ml.user_id, ml.mood, ml.answers, ml.created_at
		FROM mood_logs ml
		JOIN users u ON ml.user_id = u.id
		WHERE u.username=$1
		ORDER BY ml.created_at DESC, ml.id DESC`

	moodLogs := make([]models.MoodLog, 0)

	if err := mController.DBManager.DB.Select(&moodLogs, queryHistoryStr, username); err != nil {
		mController.Logger.Error("failed to load mood history", zap.String("username", username), zap.Error(err))

		jsonResponse(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Something got wrong..."})
		return
	}

	history := make([]moodHistoryItem, 0, len(moodLogs))
	for _, entry := range moodLogs {
		answers := map[string]string{}
		if err := json.Unmarshal([]byte(entry.Answers), &answers); err != nil {
			mController.Logger.Warn("unreadable answers payload", zap.Int64("log_id", entry.ID), zap.Error(err))
		}
		history = append(history, moodHistoryItem{
			ID:        entry.ID,
			Mood:      entry.Mood,
			Answers:   answers,
			CreatedAt: entry.CreatedAt,
		})
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"username":      username,
		"total_entries": len(history),
		"history":       history,
	})
}
