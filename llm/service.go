package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zarkopopovski/mood-chat/models"
)

// ErrUnrecognizedMood means the classifier produced text outside the allowed
// label set. The caller must treat this as "mood detection failed", never
// default to a label.
var ErrUnrecognizedMood = errors.New("llm: model reply is not a recognized mood")

// moodLabels pairs each allowed label with the lower-case prefix a bare model
// reply may start with (the segment before the slash in compound labels).
// Matching walks this list in order and the first hit wins.
var moodLabels = []struct {
	prefix string
	label  string
}{
	{"happy", "Happy/Calm"},
	{"neutral", "Neutral"},
	{"stressed", "Stressed"},
	{"depressed", "Depressed/Low"},
	{"tired", "Tired/Exhausted"},
}

// MatchMood maps raw classifier output onto an allowed label. A reply matches
// when it equals a label case-insensitively or starts with the label's prefix
// segment, so a bare "tired" resolves to "Tired/Exhausted".
func MatchMood(raw string) (string, bool) {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	for _, candidate := range moodLabels {
		if lowered == strings.ToLower(candidate.label) || strings.HasPrefix(lowered, candidate.prefix) {
			return candidate.label, true
		}
	}
	return "", false
}

const greetingInstruction = `Say hi and ask how they're doing. 2-3 sentences MAX. One question only.`

const fallbackGreeting = "Hello! I'm Dr. Mira, your AI wellness companion. I see you're feeling %s today. I'm here to listen and support you. How are you doing right now?"

const fallbackReply = "I apologize, but I'm having a moment of difficulty. Could you please repeat what you said? I want to make sure I understand you correctly."

// Service is the orchestration layer over the model client: it classifies
// survey answers and produces persona-driven greetings and replies.
type Service struct {
	client          *Client
	logger          *zap.Logger
	chatTimeout     time.Duration
	classifyTimeout time.Duration
}

func NewService(client *Client, logger *zap.Logger, chatTimeout, classifyTimeout time.Duration) *Service {
	return &Service{
		client:          client,
		logger:          logger,
		chatTimeout:     chatTimeout,
		classifyTimeout: classifyTimeout,
	}
}

// DetectMood forwards the raw answer map to the model as the user turn of a
// two-message exchange and validates the accumulated reply against the allowed
// label set. Sampling is pinned (seed 42, temperature 0.1) so the same answers
// classify the same way.
func (s *Service) DetectMood(ctx context.Context, answers map[string]string) (string, error) {
	payload, err := json.Marshal(answers)
	if err != nil {
		return "", fmt.Errorf("marshal answers: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.classifyTimeout)
	defer cancel()

	reply, err := s.client.Chat(ctx, []Message{
		{Role: RoleSystem, Content: moodSystemPrompt},
		{Role: RoleUser, Content: string(payload)},
	}, WithSeed(42), WithTemperature(0.1), WithFragmentTrim())
	if err != nil {
		return "", err
	}

	mood, ok := MatchMood(reply)
	if !ok {
		s.logger.Warn("unexpected classifier reply", zap.String("reply", reply))
		return "", ErrUnrecognizedMood
	}
	return mood, nil
}

// Greeting opens a session with a short persona-driven greeting. A session
// must never fail to open for model-availability reasons alone, so any failure
// resolves to a deterministic fallback interpolating the current mood.
func (s *Service) Greeting(ctx context.Context, currentMood string, history []models.MoodLog) string {
	ctx, cancel := context.WithTimeout(ctx, s.chatTimeout)
	defer cancel()

	reply, err := s.client.Chat(ctx, []Message{
		{Role: RoleSystem, Content: PersonaPrompt(currentMood, history)},
		{Role: RoleUser, Content: greetingInstruction},
	}, WithTemperature(0.5), WithNumPredict(150))
	if err != nil {
		s.logger.Warn("greeting generation failed, using fallback", zap.Error(err))
		return fmt.Sprintf(fallbackGreeting, currentMood)
	}
	return reply
}

// Reply produces the next assistant turn. The message sequence sent to the
// model is exactly [system persona] + priorTurns + [user message]; priorTurns
// must not include the just-stored user message, the caller strips it. Any
// failure resolves to the fixed apologetic fallback so the conversation never
// dead-ends.
func (s *Service) Reply(ctx context.Context, userMessage, currentMood string, history []models.MoodLog, priorTurns []models.ChatMessage) string {
	messages := make([]Message, 0, len(priorTurns)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: PersonaPrompt(currentMood, history)})
	for _, turn := range priorTurns {
		messages = append(messages, Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, Message{Role: RoleUser, Content: userMessage})

	ctx, cancel := context.WithTimeout(ctx, s.chatTimeout)
	defer cancel()

	reply, err := s.client.Chat(ctx, messages, WithTemperature(0.5), WithNumPredict(150))
	if err != nil {
		s.logger.Warn("reply generation failed, using fallback", zap.Error(err))
		return fallbackReply
	}
	return reply
}
