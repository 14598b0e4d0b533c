package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zarkopopovski/mood-chat/db"
	"github.com/zarkopopovski/mood-chat/llm"
	"github.com/zarkopopovski/mood-chat/models"
)

type ChatController struct {
	DBManager  *db.DBManager
	LLMService *llm.Service
	Logger     *zap.Logger
	Validate   *validator.Validate
}

type startChatRequest struct {
	Username  string `json:"username" validate:"required"`
	MoodLogID int64  `json:"mood_log_id" validate:"required"`
}

type chatMessageRequest struct {
	SessionID int64  `json:"session_id" validate:"required"`
	Message   string `json:"message"`
}

// sessionContext is the joined view needed to answer a chat turn: who owns the
// session and which mood anchors it.
type sessionContext struct {
	ID        int64  `db:"id"`
	UserID    int64  `db:"user_id"`
	MoodLogID int64  `db:"mood_log_id"`
	Mood      string `db:"mood"`
	Username  string `db:"username"`
}

// StartChatSession opens a conversation anchored to one prior mood log and
// stores the assistant greeting as the session's first message.
func (cController *ChatController) StartChatSession(w http.ResponseWriter, r *http.Request) {
	var request startChatRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Invalid request body"})
		return
	}
	defer r.Body.Close()

	if err := cController.Validate.Struct(request); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Username and mood_log_id are required"})
		return
	}

	username := strings.TrimSpace(request.Username)

	queryStr := "SELECT * FROM users WHERE username=$1 LIMIT 1"

	user := models.User{}

	if err := cController.DBManager.DB.Get(&user, queryStr, username); err != nil {
		jsonResponse(w, http.StatusNotFound, map[string]string{"status": "error", "message": "User not found"})
		return
	}

	moodHistory, err := cController.userMoodHistory(username)
	if err != nil {
		cController.Logger.Error("failed to load mood history", zap.String("username", username), zap.Error(err))

		jsonResponse(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Something got wrong..."})
		return
	}

	// Resolving the mood through the user's own history also guarantees the
	// session can only anchor to a mood log belonging to that user.
	currentMood := ""
	for _, entry := range moodHistory {
		if entry.ID == request.MoodLogID {
			currentMood = entry.Mood
			break
		}
	}

	if currentMood == "" {
		jsonResponse(w, http.StatusNotFound, map[string]string{"status": "error", "message": "Mood log not found"})
		return
	}

	insertSessionStr := "INSERT INTO chat_sessions(user_id, mood_log_id, started_at) VALUES($1, $2, $3)"

	result, err := cController.DBManager.DB.Exec(insertSessionStr, user.ID, request.MoodLogID, db.Now())
	if err != nil {
		cController.Logger.Error("failed to create chat session", zap.String("username", username), zap.Error(err))

		jsonResponse(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Something got wrong..."})
		return
	}

	sessionID, err := result.LastInsertId()
	if err != nil {
		jsonResponse(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Something got wrong..."})
		return
	}

	greeting := cController.LLMService.Greeting(r.Context(), currentMood, moodHistory)

	insertMessageStr := "INSERT INTO chat_messages(session_id, role, content, created_at) VALUES($1, $2, $3, $4)"

	if _, err := cController.DBManager.DB.Exec(insertMessageStr, sessionID, llm.RoleAssistant, greeting, db.Now()); err != nil {
		cController.Logger.Error("failed to save greeting", zap.Int64("session_id", sessionID), zap.Error(err))

		jsonResponse(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Something got wrong..."})
		return
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"greeting":   greeting,
		"mood":       currentMood,
	})
}

// SendMessage stores the user turn, assembles the bounded conversational
// context and stores and returns the assistant reply.
func (cController *ChatController) SendMessage(w http.ResponseWriter, r *http.Request) {
	var request chatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Invalid request body"})
		return
	}
	defer r.Body.Close()

	userMessage := strings.TrimSpace(request.Message)

	if err := cController.Validate.Struct(request); err != nil || userMessage == "" {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Message cannot be empty"})
		return
	}

	querySessionStr := `SELECT cs.id, cs.user_id, cs.mood_log_id, ml.mood, u.username
		FROM chat_sessions cs
		JOIN mood_logs ml ON cs.mood_log_id = ml.id
		JOIN users u ON cs.user_id = u.id
		WHERE cs.id=$1`

	session := sessionContext{}

	if err := cController.DBManager.DB.Get(&session, querySessionStr, request.SessionID); err != nil {
		jsonResponse(w, http.StatusNotFound, map[string]string{"status": "error", "message": "Chat session not found"})
		return
	}

	insertMessageStr := "INSERT INTO chat_messages(session_id, role, content, created_at) VALUES($1, $2, $3, $4)"

	if _, err := cController.DBManager.DB.Exec(insertMessageStr, session.ID, llm.RoleUser, userMessage, db.Now()); err != nil {
		cController.Logger.Error("failed to save user message", zap.Int64("session_id", session.ID), zap.Error(err))

		jsonResponse(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Something got wrong..."})
		return
	}

	queryMessagesStr := `SELECT id, session_id, role, content, created_at
		FROM chat_messages
		WHERE session_id=$1
		ORDER BY created_at ASC, id ASC`

	sessionMessages := make([]models.ChatMessage, 0)

	if err := cController.DBManager.DB.Select(&sessionMessages, queryMessagesStr, session.ID); err != nil {
		cController.Logger.Error("failed to load session messages", zap.Int64("session_id", session.ID), zap.Error(err))

		jsonResponse(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Something got wrong..."})
		return
	}

	moodHistory, err := cController.userMoodHistory(session.Username)
	if err != nil {
		cController.Logger.Error("failed to load mood history", zap.String("username", session.Username), zap.Error(err))

		jsonResponse(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Something got wrong..."})
		return
	}

	// The just-stored user turn goes to the model as the new message, not as
	// part of the prior history.
	priorTurns := sessionMessages
	if len(priorTurns) > 0 {
		priorTurns = priorTurns[:len(priorTurns)-1]
	}

	reply := cController.LLMService.Reply(r.Context(), userMessage, session.Mood, moodHistory, priorTurns)

	result, err := cController.DBManager.DB.Exec(insertMessageStr, session.ID, llm.RoleAssistant, reply, db.Now())
	if err != nil {
		cController.Logger.Error("failed to save assistant reply", zap.Int64("session_id", session.ID), zap.Error(err))

		jsonResponse(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Something got wrong..."})
		return
	}

	messageID, err := result.LastInsertId()
	if err != nil {
		jsonResponse(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Something got wrong..."})
		return
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"response":   reply,
		"message_id": messageID,
	})
}

// EndChatSession marks the session ended. The timestamp is only written while
// ended_at is still null, so repeating the call is a no-op.
func (cController *ChatController) EndChatSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(r.PathValue("sessionID"), 10, 64)
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Invalid session id"})
		return
	}

	updateStr := "UPDATE chat_sessions SET ended_at=$1 WHERE id=$2 AND ended_at IS NULL"

	if _, err := cController.DBManager.DB.Exec(updateStr, db.Now(), sessionID); err != nil {
		cController.Logger.Error("failed to end chat session", zap.Int64("session_id", sessionID), zap.Error(err))

		jsonResponse(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Something got wrong..."})
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Chat session ended",
	})
}

// ChatHistory returns the full transcript of a session in order.
func (cController *ChatController) ChatHistory(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(r.PathValue("sessionID"), 10, 64)
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Invalid session id"})
		return
	}

	queryStr := `SELECT id, session_id, role, content, created_at
		FROM chat_messages
		WHERE session_id=$1
		ORDER BY created_at ASC, id ASC`

	messages := make([]models.ChatMessage, 0)

	if err := cController.DBManager.DB.Select(&messages, queryStr, sessionID); err != nil {
		cController.Logger.Error("failed to load chat history", zap.Int64("session_id", sessionID), zap.Error(err))

		jsonResponse(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Something got wrong..."})
		return
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"messages":   messages,
	})
}

// ListSessions returns all chat sessions of a user, newest first, each with
// the mood of its anchoring mood log.
func (cController *ChatController) ListSessions(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PathValue("username"))

	queryStr := "SELECT COUNT(*) FROM users WHERE username=$1"

	var count int
	if err := cController.DBManager.DB.Get(&count, queryStr, username); err != nil || count == 0 {
		jsonResponse(w, http.StatusNotFound, map[string]string{"status": "error", "message": "User not found"})
		return
	}

	querySessionsStr := `SELECT cs.id, cs.mood_log_id, ml.mood, cs.started_at, cs.ended_at
		FROM chat_sessions cs
		JOIN users u ON cs.user_id = u.id
		JOIN mood_logs ml ON cs.mood_log_id = ml.id
		WHERE u.username=$1
		ORDER BY cs.started_at DESC`

	sessions := make([]models.ChatSessionInfo, 0)

	if err := cController.DBManager.DB.Select(&sessions, querySessionsStr, username); err != nil {
		cController.Logger.Error("failed to list chat sessions", zap.String("username", username), zap.Error(err))

		jsonResponse(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "Something got wrong..."})
		return
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"username": username,
		"sessions": sessions,
	})
}

// userMoodHistory loads a user's mood logs newest first, the order the persona
// prompt expects.
func (cController *ChatController) userMoodHistory(username string) ([]models.MoodLog, error) {
	queryStr := `SELECT ml.id, ml.user_id, ml.mood, ml.answers, ml.created_at
		FROM mood_logs ml
		JOIN users u ON ml.user_id = u.id
		WHERE u.username=$1
		ORDER BY ml.created_at DESC, ml.id DESC`

	moodHistory := make([]models.MoodLog, 0)
	if err := cController.DBManager.DB.Select(&moodHistory, queryStr, username); err != nil {
		return nil, err
	}
	return moodHistory, nil
}
