// Package ai is the transport to an OpenAI-compatible chat-completions
// endpoint. It does transport-level retry only; nothing here interprets
// the model's answer.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"peregrine/internal/logger"
)

const defaultBackoffStep = 2 * time.Second

type ClientConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// Timeout bounds a single attempt. The analyst judgment call is
	// slower than a data fetch, so this is configured independently.
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64
}

func (c ClientConfig) withDefaults() ClientConfig {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	// Tolerate a configured URL that already carries the path.
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/chat/completions")
	if c.Timeout <= 0 {
		c.Timeout = 90 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.3
	}
	return c
}

type Client struct {
	cfg  ClientConfig
	http *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	final := cfg.withDefaults()
	return &Client{
		cfg:  final,
		http: &http.Client{Timeout: final.Timeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends one system+user exchange and returns the raw text
// content. Retries with linear backoff on 429, 5xx, and structurally
// empty responses (zero choices or blank content are failures, not
// successes).
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})
	payload, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	url := c.cfg.BaseURL + "/chat/completions"
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * defaultBackoffStep
			logger.Debugf("ai: retry %d/%d in %s: %v", attempt, c.cfg.MaxRetries, wait, lastErr)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
		}
		content, retryable, err := c.attempt(ctx, url, payload)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", fmt.Errorf("chat completion failed after %d attempts: %w", c.cfg.MaxRetries+1, lastErr)
}

func (c *Client) attempt(ctx context.Context, url string, payload []byte) (content string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		// Network-level failures (incl. timeouts) are worth one more try.
		return "", true, err
	}
	defer resp.Body.Close()

	var parsed chatResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		msg := strings.TrimSpace(parsed.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		return "", true, fmt.Errorf("upstream %d: %s", resp.StatusCode, msg)
	case resp.StatusCode/100 != 2:
		msg := strings.TrimSpace(parsed.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		return "", false, fmt.Errorf("upstream %d: %s", resp.StatusCode, msg)
	case decodeErr != nil:
		return "", true, fmt.Errorf("decode chat response: %w", decodeErr)
	case len(parsed.Choices) == 0:
		return "", true, fmt.Errorf("chat response has no choices")
	}
	content = strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", true, fmt.Errorf("chat response content is empty")
	}
	return content, false, nil
}
