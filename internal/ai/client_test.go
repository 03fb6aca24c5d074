package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "test-key", Model: "test-model"}), srv
}

func completion(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(body)
}

func TestCompleteSuccess(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	c, _ := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(completion("  {\"direction\":\"flat\"}  ")))
	})

	out, err := c.Complete(context.Background(), "system rules", "user snapshot")
	require.NoError(t, err)
	assert.Equal(t, `{"direction":"flat"}`, out, "content is trimmed")
	assert.Equal(t, "Bearer test-key", gotAuth)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
	assert.Equal(t, "test-model", gotReq.Model)
}

func TestCompleteFatalStatusDoesNotRetry(t *testing.T) {
	calls := 0
	c, _ := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	})

	_, err := c.Complete(context.Background(), "", "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
	assert.Equal(t, 1, calls, "4xx other than 429 is final")
}

func TestAttemptClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
		wantErr   bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, true, true},
		{"server error", http.StatusBadGateway, `{}`, true, true},
		{"bad request is fatal", http.StatusBadRequest, `{"error":{"message":"nope"}}`, false, true},
		{"garbled body", http.StatusOK, `{not json`, true, true},
		{"zero choices", http.StatusOK, `{"choices":[]}`, true, true},
		{"blank content", http.StatusOK, completion("   "), true, true},
		{"clean response", http.StatusOK, completion("ok"), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, retryable, err := c.attempt(context.Background(), srv.URL+"/chat/completions", []byte(`{}`))
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.retryable, retryable)
		})
	}
}

func TestCompleteRetriesThenSucceeds(t *testing.T) {
	calls := 0
	c, _ := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(completion("second try")))
	})
	c.cfg.MaxRetries = 1

	out, err := c.Complete(context.Background(), "", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "second try", out)
	assert.Equal(t, 2, calls)
}

func TestClientConfigNormalizesBaseURL(t *testing.T) {
	cfg := ClientConfig{BaseURL: "https://example.com/v1/chat/completions/"}.withDefaults()
	assert.Equal(t, "https://example.com/v1", cfg.BaseURL)

	cfg = ClientConfig{}.withDefaults()
	assert.Equal(t, "https://api.openai.com/v1", cfg.BaseURL)
}
