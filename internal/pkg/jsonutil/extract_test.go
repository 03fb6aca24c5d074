package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"bare object", `{"direction":"long"}`, `{"direction":"long"}`, true},
		{"fenced with language tag", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"fenced without tag", "```\n{\"a\":1}\n```", `{"a":1}`, true},
		{"prose around object", `Here is my analysis: {"a":1} hope it helps`, `{"a":1}`, true},
		{"nested objects", `{"a":{"b":2},"c":3}`, `{"a":{"b":2},"c":3}`, true},
		{"braces inside strings", `{"note":"use { and } freely"}`, `{"note":"use { and } freely"}`, true},
		{"escaped quote in string", `{"note":"she said \"{\" loudly"}`, `{"note":"she said \"{\" loudly"}`, true},
		{"prose then fence", "thinking...\n```json\n{\"a\":1}\n```\ndone", `{"a":1}`, true},
		{"unterminated object", `{"a":1`, "", false},
		{"no object at all", "no json here", "", false},
		{"empty input", "   ", "", false},
		{"fence with prose falls back to raw scan", "```\njust words\n```\n{\"a\":1}", `{"a":1}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractObject(tt.raw)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
