// Package assistant answers free-form emergency questions through a hosted
// generative model, scoped by a system prompt to breakdown, medical, fuel and
// navigation topics.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// ErrUpstream signals a model-provider failure.
var ErrUpstream = errors.New("assistant: upstream model failure")

// Message is one turn of a conversation. Role is "user" or "model".
type Message struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part is a text fragment within a turn.
type Part struct {
	Text string `json:"text"`
}

// Reply carries the model's answer plus the turn to append to the client-held
// history.
type Reply struct {
	Response   string  `json:"response"`
	NewMessage Message `json:"newMessage"`
}

// ConversationalAgent answers a message in the context of prior turns and the
// caller's position.
type ConversationalAgent interface {
	Chat(ctx context.Context, message string, history []Message, latitude, longitude string) (Reply, error)
}

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com"
	defaultModel       = "gemini-2.0-flash"
	defaultHTTPTimeout = 30 * time.Second

	temperature     = 0.7
	maxOutputTokens = 800

	greeting = "Hello! I'm your emergency assistant. How can I help you today?"
)

// GeminiAgent implements ConversationalAgent against the Gemini REST API.
type GeminiAgent struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
}

// NewGeminiAgent creates an agent using the default model.
func NewGeminiAgent(apiKey string) *GeminiAgent {
	return &GeminiAgent{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
	}
}

// WithHTTPClient overrides the transport, for tests.
func (a *GeminiAgent) WithHTTPClient(hc *http.Client) *GeminiAgent {
	a.httpClient = hc
	return a
}

// WithBaseURL points the agent at an alternate endpoint, for tests.
func (a *GeminiAgent) WithBaseURL(base string) *GeminiAgent {
	a.baseURL = base
	return a
}

func systemPrompt(latitude, longitude string) string {
	return fmt.Sprintf("my current location is latitude:%s, longitude:%s. "+
		"answer questions related to vehicle breakdowns, medical emergencies, "+
		"hospital emergency, fuel shortages, emergency contacts, and GPS-based "+
		"assistance and if user want link then don't give dynamic link only give "+
		"original and valid link. Decline anything else politely.",
		latitude, longitude)
}

type generateRequest struct {
	Contents         []Message      `json:"contents"`
	GenerationConfig generateConfig `json:"generationConfig"`
}

type generateConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// Chat sends the message with the full conversation context. The system
// prompt and a canned greeting are prepended so the model stays on topic
// regardless of what history the client supplies.
func (a *GeminiAgent) Chat(ctx context.Context, message string, history []Message, latitude, longitude string) (Reply, error) {
	contents := make([]Message, 0, len(history)+3)
	contents = append(contents,
		Message{Role: "user", Parts: []Part{{Text: systemPrompt(latitude, longitude)}}},
		Message{Role: "model", Parts: []Part{{Text: greeting}}},
	)
	contents = append(contents, history...)
	contents = append(contents, Message{Role: "user", Parts: []Part{{Text: message}}})

	payload, err := json.Marshal(generateRequest{
		Contents: contents,
		GenerationConfig: generateConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxOutputTokens,
		},
	})
	if err != nil {
		return Reply{}, fmt.Errorf("assistant: marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/v1beta/models/%s:generateContent", a.baseURL, a.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return Reply{}, fmt.Errorf("assistant: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Reply{}, fmt.Errorf("%w: read response: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Reply{}, fmt.Errorf("%w: http %d", ErrUpstream, resp.StatusCode)
	}

	answer := gjson.GetBytes(body, "candidates.0.content.parts.0.text").String()
	if answer == "" {
		answer = "No response available"
	}

	return Reply{
		Response:   answer,
		NewMessage: Message{Role: "model", Parts: []Part{{Text: answer}}},
	}, nil
}
