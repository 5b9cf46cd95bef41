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

func TestCompleteReturnsFirstChoice(t *testing.T) {
	var got struct {
		Model    string        `json:"model"`
		Messages []ChatMessage `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello there"}}]}`))
	}))
	defer srv.Close()

	client := NewClient(ChatConfig{BaseURL: srv.URL + "/v1/", APIKey: "secret", Model: "m1"})
	reply, err := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})

	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)
	assert.Equal(t, "m1", got.Model)
	assert.Equal(t, []ChatMessage{{Role: "user", Content: "hi"}}, got.Messages)
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "upstream status", status: http.StatusInternalServerError, body: `{"error":"boom"}`},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`},
		{name: "invalid json", status: http.StatusOK, body: `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(ChatConfig{BaseURL: srv.URL, Model: "m"}).Complete(context.Background(), nil)
			assert.Error(t, err)
		})
	}
}

func TestCompleteNotConfigured(t *testing.T) {
	_, err := NewClient(ChatConfig{}).Complete(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
