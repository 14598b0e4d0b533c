package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNoReply means the stream finished without producing any content. Callers
// treat it the same as a transport failure.
var ErrNoReply = errors.New("llm: empty reply from model")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client talks to an Ollama-compatible chat endpoint. The endpoint responds
// with newline-delimited JSON records, each optionally carrying a content
// fragment and a done flag.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
	}
}

type callOptions struct {
	temperature   float64
	seed          *int
	numPredict    int
	trimFragments bool
}

type Option func(*callOptions)

func WithTemperature(temperature float64) Option {
	return func(o *callOptions) {
		o.temperature = temperature
	}
}

// WithSeed pins the sampling seed for deterministic output.
func WithSeed(seed int) Option {
	return func(o *callOptions) {
		o.seed = &seed
	}
}

// WithNumPredict caps the response length in tokens.
func WithNumPredict(numPredict int) Option {
	return func(o *callOptions) {
		o.numPredict = numPredict
	}
}

// WithFragmentTrim trims whitespace from each streamed fragment before it is
// concatenated. The classifier wants this; conversational replies keep their
// natural spacing.
func WithFragmentTrim() Option {
	return func(o *callOptions) {
		o.trimFragments = true
	}
}

type chatRequest struct {
	Model    string       `json:"model"`
	Messages []Message    `json:"messages"`
	Options  *chatOptions `json:"options,omitempty"`
}

type chatOptions struct {
	Seed        *int    `json:"seed,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Chat sends the message sequence and accumulates the streamed reply. Any
// transport error, non-200 status or empty accumulated result is returned as
// an error; there is no retry.
func (c *Client) Chat(ctx context.Context, messages []Message, opts ...Option) (string, error) {
	call := callOptions{}
	for _, opt := range opts {
		opt(&call)
	}

	payload, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Options: &chatOptions{
			Seed:        call.seed,
			Temperature: call.temperature,
			NumPredict:  call.numPredict,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("model error: status %d, body: %s", resp.StatusCode, string(body))
	}

	reply := accumulate(resp.Body, call.trimFragments)
	if reply == "" {
		return "", ErrNoReply
	}
	return reply, nil
}

// accumulate concatenates content fragments in arrival order, stopping at the
// first record with done set or when input is exhausted. Malformed records are
// skipped, not fatal.
func accumulate(r io.Reader, trimFragments bool) string {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var output strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			continue
		}

		content := chunk.Message.Content
		if trimFragments {
			content = strings.TrimSpace(content)
		}
		output.WriteString(content)

		if chunk.Done {
			break
		}
	}

	return strings.TrimSpace(output.String())
}
