// Package llm provides the advisory text-generation client consulted during
// meetings. Every agent may carry its own key; the client speaks the
// OpenAI-compatible chat-completions protocol.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1/chat/completions"
	DefaultModel   = "gpt-4.1-mini"

	temperature = 0.9
)

var (
	// ErrDisabled is returned when the client has no keys at all.
	ErrDisabled = errors.New("advisory client not configured")
	// ErrNoKey is returned when the requesting agent has no key.
	ErrNoKey = errors.New("no advisory key for agent")
	// ErrRateLimited is returned when the per-minute call budget is spent.
	ErrRateLimited = errors.New("advisory rate limit exceeded")
)

// Config holds advisory client settings.
type Config struct {
	BaseURL   string
	Model     string
	SharedKey string            // Used for any agent without its own key
	Keys      map[string]string // Agent name → key
	Timeout   time.Duration
	MaxPerMin int // 0 = unlimited
}

// Client wraps a chat-completions endpoint.
type Client struct {
	baseURL    string
	model      string
	keys       map[string]string
	sharedKey  string
	httpClient *http.Client

	// Rate limiting: max calls per minute.
	mu        sync.Mutex
	callCount int
	resetAt   time.Time
	maxPerMin int
}

// NewClient creates an advisory client.
// Returns nil if no key is configured (advisory input disabled).
func NewClient(cfg Config) *Client {
	if cfg.SharedKey == "" && len(cfg.Keys) == 0 {
		return nil
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	keys := make(map[string]string, len(cfg.Keys))
	for name, key := range cfg.Keys {
		if key != "" {
			keys[name] = key
		}
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		keys:       keys,
		sharedKey:  cfg.SharedKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxPerMin:  cfg.MaxPerMin,
	}
}

// Enabled returns true if the client has at least one key.
func (c *Client) Enabled() bool {
	return c != nil && (c.sharedKey != "" || len(c.keys) > 0)
}

// KeyFor returns the key an agent would use, or "" if it has none.
func (c *Client) KeyFor(agent string) string {
	if c == nil {
		return ""
	}
	if key, ok := c.keys[agent]; ok {
		return key
	}
	return c.sharedKey
}

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	Messages    []Message `json:"messages"`
}

type response struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete sends a system/user prompt pair on behalf of agent and returns
// the response text.
func (c *Client) Complete(ctx context.Context, agent, system, user string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	key := c.KeyFor(agent)
	if key == "" {
		return "", fmt.Errorf("%s: %w", agent, ErrNoKey)
	}

	if c.maxPerMin > 0 {
		c.mu.Lock()
		now := time.Now()
		if now.After(c.resetAt) {
			c.callCount = 0
			c.resetAt = now.Add(time.Minute)
		}
		if c.callCount >= c.maxPerMin {
			c.mu.Unlock()
			return "", fmt.Errorf("%d calls/min: %w", c.maxPerMin, ErrRateLimited)
		}
		c.callCount++
		c.mu.Unlock()
	}

	body, err := json.Marshal(request{
		Model:       c.model,
		Temperature: temperature,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("API call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(apiResp.Choices) == 0 || apiResp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response")
	}

	slog.Debug("advisory call",
		"agent", agent,
		"prompt_tokens", apiResp.Usage.PromptTokens,
		"completion_tokens", apiResp.Usage.CompletionTokens,
	)

	return apiResp.Choices[0].Message.Content, nil
}
