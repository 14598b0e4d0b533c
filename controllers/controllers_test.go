package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zarkopopovski/mood-chat/db"
	"github.com/zarkopopovski/mood-chat/llm"
)

// moodModelHandler imitates the external model endpoint: classification
// requests get a fixed mood label, conversational requests a canned reply.
func moodModelHandler(mood string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		reply := "Thanks for sharing. What is on your mind right now?"
		if len(req.Messages) > 0 && strings.Contains(req.Messages[0].Content, "Mood Classification Engine") {
			reply = mood
		}
		fmt.Fprintf(w, "{\"message\":{\"content\":%q},\"done\":true}\n", reply)
	}
}

func brokenModelHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
	}
}

func newTestRouter(t *testing.T, modelHandler http.HandlerFunc) *http.ServeMux {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	dbManager, err := db.NewDBConnection(dbPath, "file://../migrations")
	require.NoError(t, err)
	t.Cleanup(func() { dbManager.DB.Close() })

	modelServer := httptest.NewServer(modelHandler)
	t.Cleanup(modelServer.Close)

	logger := zap.NewNop()
	llmClient := llm.NewClient(modelServer.URL, "", "test-model")
	llmService := llm.NewService(llmClient, logger, 5*time.Second, 5*time.Second)
	validate := validator.New()

	userController := &UserController{DBManager: dbManager, Logger: logger, Validate: validate}
	moodController := &MoodController{DBManager: dbManager, LLMService: llmService, Logger: logger, Validate: validate}
	chatController := &ChatController{DBManager: dbManager, LLMService: llmService, Logger: logger, Validate: validate}

	router := http.NewServeMux()
	router.HandleFunc("POST /signup", userController.Signup)
	router.HandleFunc("POST /login", userController.Login)
	router.HandleFunc("GET /check-user/{username}", userController.CheckUser)
	router.HandleFunc("POST /detect-mood", moodController.DetectMood)
	router.HandleFunc("GET /mood-history/{username}", moodController.MoodHistory)
	router.HandleFunc("POST /chat/start", chatController.StartChatSession)
	router.HandleFunc("POST /chat/message", chatController.SendMessage)
	router.HandleFunc("POST /chat/end/{sessionID}", chatController.EndChatSession)
	router.HandleFunc("GET /chat/history/{sessionID}", chatController.ChatHistory)
	router.HandleFunc("GET /chat/sessions/{username}", chatController.ListSessions)
	return router
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	decoded := map[string]interface{}{}
	if recorder.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &decoded))
	}
	return recorder.Code, decoded
}

func surveyAnswers() map[string]string {
	answers := map[string]string{}
	for i := 1; i <= 10; i++ {
		answers[fmt.Sprintf("q%d", i)] = "A"
	}
	return answers
}

func TestSignupLoginAndCheckUser(t *testing.T) {
	router := newTestRouter(t, moodModelHandler("Neutral"))

	status, body := doRequest(t, router, http.MethodPost, "/signup", map[string]string{"username": " alice "})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "success", body["status"])

	status, _ = doRequest(t, router, http.MethodPost, "/signup", map[string]string{"username": "alice"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = doRequest(t, router, http.MethodPost, "/signup", map[string]string{"username": "   "})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = doRequest(t, router, http.MethodPost, "/login", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Login successful", body["message"])

	status, _ = doRequest(t, router, http.MethodPost, "/login", map[string]string{"username": "nobody"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doRequest(t, router, http.MethodPost, "/login", map[string]string{"username": ""})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = doRequest(t, router, http.MethodGet, "/check-user/alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["exists"])
	assert.Equal(t, "login", body["action"])

	status, body = doRequest(t, router, http.MethodGet, "/check-user/nobody", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["exists"])
	assert.Equal(t, "signup", body["action"])
}

func TestDetectMoodRoundTrip(t *testing.T) {
	router := newTestRouter(t, moodModelHandler("Stressed"))

	status, _ := doRequest(t, router, http.MethodPost, "/signup", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusOK, status)

	answers := surveyAnswers()
	status, body := doRequest(t, router, http.MethodPost, "/detect-mood", map[string]interface{}{
		"username": "alice",
		"answers":  answers,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Stressed", body["mood"])
	assert.Equal(t, "success", body["status"])
	assert.GreaterOrEqual(t, body["log_id"].(float64), float64(1))

	status, body = doRequest(t, router, http.MethodGet, "/mood-history/alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["total_entries"])

	history := body["history"].([]interface{})
	require.Len(t, history, 1)
	entry := history[0].(map[string]interface{})
	assert.Equal(t, "Stressed", entry["mood"])

	stored := entry["answers"].(map[string]interface{})
	require.Len(t, stored, len(answers))
	for key, value := range answers {
		assert.Equal(t, value, stored[key])
	}
}

func TestDetectMoodValidationAndFailures(t *testing.T) {
	router := newTestRouter(t, moodModelHandler("Stressed"))

	status, _ := doRequest(t, router, http.MethodPost, "/signup", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusOK, status)

	// Incomplete answer map is rejected before any model access.
	incomplete := surveyAnswers()
	delete(incomplete, "q4")
	status, _ = doRequest(t, router, http.MethodPost, "/detect-mood", map[string]interface{}{
		"username": "alice",
		"answers":  incomplete,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doRequest(t, router, http.MethodPost, "/detect-mood", map[string]interface{}{
		"username": "nobody",
		"answers":  surveyAnswers(),
	})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDetectMoodClassifierFailureLeavesNoLog(t *testing.T) {
	router := newTestRouter(t, moodModelHandler("Angry")) // not an allowed label

	status, _ := doRequest(t, router, http.MethodPost, "/signup", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusOK, status)

	status, _ = doRequest(t, router, http.MethodPost, "/detect-mood", map[string]interface{}{
		"username": "alice",
		"answers":  surveyAnswers(),
	})
	assert.Equal(t, http.StatusInternalServerError, status)

	status, body := doRequest(t, router, http.MethodGet, "/mood-history/alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["total_entries"])
}

func TestChatSessionLifecycle(t *testing.T) {
	router := newTestRouter(t, moodModelHandler("Tired/Exhausted"))

	status, _ := doRequest(t, router, http.MethodPost, "/signup", map[string]string{"username": "bob"})
	require.Equal(t, http.StatusOK, status)

	status, body := doRequest(t, router, http.MethodPost, "/detect-mood", map[string]interface{}{
		"username": "bob",
		"answers":  surveyAnswers(),
	})
	require.Equal(t, http.StatusOK, status)
	logID := int64(body["log_id"].(float64))

	status, body = doRequest(t, router, http.MethodPost, "/chat/start", map[string]interface{}{
		"username":    "bob",
		"mood_log_id": logID,
	})
	require.Equal(t, http.StatusOK, status)
	sessionID := int64(body["session_id"].(float64))
	assert.NotEmpty(t, body["greeting"])
	assert.Equal(t, "Tired/Exhausted", body["mood"])

	status, body = doRequest(t, router, http.MethodPost, "/chat/message", map[string]interface{}{
		"session_id": sessionID,
		"message":    "I feel okay",
	})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["response"])
	firstMessageID := body["message_id"].(float64)

	status, body = doRequest(t, router, http.MethodPost, "/chat/message", map[string]interface{}{
		"session_id": sessionID,
		"message":    "Still here",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Greater(t, body["message_id"].(float64), firstMessageID)

	// Transcript: greeting first, then alternating user/assistant turns.
	status, body = doRequest(t, router, http.MethodGet, fmt.Sprintf("/chat/history/%d", sessionID), nil)
	require.Equal(t, http.StatusOK, status)
	messages := body["messages"].([]interface{})
	require.Len(t, messages, 5)
	first := messages[0].(map[string]interface{})
	assert.Equal(t, "assistant", first["role"])
	second := messages[1].(map[string]interface{})
	assert.Equal(t, "user", second["role"])
	assert.Equal(t, "I feel okay", second["content"])

	status, body = doRequest(t, router, http.MethodGet, "/chat/sessions/bob", nil)
	require.Equal(t, http.StatusOK, status)
	sessions := body["sessions"].([]interface{})
	require.Len(t, sessions, 1)
	session := sessions[0].(map[string]interface{})
	assert.Equal(t, float64(logID), session["mood_log_id"])
	assert.Equal(t, "Tired/Exhausted", session["mood"])
	assert.Nil(t, session["ended_at"])

	status, body = doRequest(t, router, http.MethodPost, fmt.Sprintf("/chat/end/%d", sessionID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", body["status"])

	status, body = doRequest(t, router, http.MethodGet, "/chat/sessions/bob", nil)
	require.Equal(t, http.StatusOK, status)
	session = body["sessions"].([]interface{})[0].(map[string]interface{})
	endedAt := session["ended_at"]
	require.NotNil(t, endedAt)

	// Ending again is a no-op, not an error, and keeps the first timestamp.
	status, _ = doRequest(t, router, http.MethodPost, fmt.Sprintf("/chat/end/%d", sessionID), nil)
	require.Equal(t, http.StatusOK, status)

	status, body = doRequest(t, router, http.MethodGet, "/chat/sessions/bob", nil)
	require.Equal(t, http.StatusOK, status)
	session = body["sessions"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, endedAt, session["ended_at"])
}

func TestChatNotFoundAndValidation(t *testing.T) {
	router := newTestRouter(t, moodModelHandler("Neutral"))

	status, _ := doRequest(t, router, http.MethodPost, "/signup", map[string]string{"username": "carol"})
	require.Equal(t, http.StatusOK, status)

	status, _ = doRequest(t, router, http.MethodPost, "/chat/start", map[string]interface{}{
		"username":    "nobody",
		"mood_log_id": 1,
	})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doRequest(t, router, http.MethodPost, "/chat/start", map[string]interface{}{
		"username":    "carol",
		"mood_log_id": 99,
	})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doRequest(t, router, http.MethodPost, "/chat/message", map[string]interface{}{
		"session_id": 12345,
		"message":    "hello",
	})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doRequest(t, router, http.MethodPost, "/chat/message", map[string]interface{}{
		"session_id": 1,
		"message":    "   ",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestChatStartOwnershipIsScopedToUser(t *testing.T) {
	router := newTestRouter(t, moodModelHandler("Neutral"))

	for _, username := range []string{"dave", "erin"} {
		status, _ := doRequest(t, router, http.MethodPost, "/signup", map[string]string{"username": username})
		require.Equal(t, http.StatusOK, status)
	}

	status, body := doRequest(t, router, http.MethodPost, "/detect-mood", map[string]interface{}{
		"username": "dave",
		"answers":  surveyAnswers(),
	})
	require.Equal(t, http.StatusOK, status)
	daveLogID := int64(body["log_id"].(float64))

	// erin cannot anchor a session to dave's mood log.
	status, _ = doRequest(t, router, http.MethodPost, "/chat/start", map[string]interface{}{
		"username":    "erin",
		"mood_log_id": daveLogID,
	})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestChatFallbacksWhenModelUnavailable(t *testing.T) {
	// The model works for classification, then goes down before the chat.
	modelDown := false
	handler := func(w http.ResponseWriter, r *http.Request) {
		if modelDown {
			brokenModelHandler()(w, r)
			return
		}
		moodModelHandler("Depressed/Low")(w, r)
	}
	router := newTestRouter(t, http.HandlerFunc(handler))

	status, _ := doRequest(t, router, http.MethodPost, "/signup", map[string]string{"username": "frank"})
	require.Equal(t, http.StatusOK, status)

	status, body := doRequest(t, router, http.MethodPost, "/detect-mood", map[string]interface{}{
		"username": "frank",
		"answers":  surveyAnswers(),
	})
	require.Equal(t, http.StatusOK, status)
	logID := int64(body["log_id"].(float64))

	modelDown = true

	// The session still opens, with the deterministic fallback greeting.
	status, body = doRequest(t, router, http.MethodPost, "/chat/start", map[string]interface{}{
		"username":    "frank",
		"mood_log_id": logID,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["greeting"], "Depressed/Low")
	sessionID := int64(body["session_id"].(float64))

	// The conversation never dead-ends: the fixed apologetic reply comes back.
	status, body = doRequest(t, router, http.MethodPost, "/chat/message", map[string]interface{}{
		"session_id": sessionID,
		"message":    "are you there?",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["response"], "I apologize")
}
