package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/luchgpt/server/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model    string            `json:"model"`
	Messages []json.RawMessage `json:"messages"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.AIConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL + "/v1/",
		MaxRetries: 3,
		RateLimit:  1000,
		RateBurst:  100,
	}, WithBackoff(time.Millisecond))
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // test helper
		"id":    "cmpl-1",
		"model": "microsoft/phi-4",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]any{"prompt_tokens": 7, "completion_tokens": 5, "total_tokens": 12},
	})
}

func TestComplete(t *testing.T) {
	var got capturedRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(w, "hello there")
	})

	resp, err := client.Complete(context.Background(), Request{
		Model:        "microsoft/phi-4",
		SystemPrompt: "be brief",
		History: []Turn{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hey"},
		},
		Prompt: "how are you?",
	})
	require.NoError(t, err)

	assert.Equal(t, "hello there", resp.Text)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
	assert.Equal(t, "microsoft/phi-4", got.Model)
	assert.Len(t, got.Messages, 4)
}

func TestCompleteWithImage(t *testing.T) {
	var got struct {
		Messages []struct {
			Role    string `json:"role"`
			Content []struct {
				Type     string `json:"type"`
				ImageURL *struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"content"`
		} `json:"messages"`
	}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(w, "a cat")
	})

	_, err := client.Complete(context.Background(), Request{
		Model:    "vision-model",
		Prompt:   "what is this?",
		ImageURL: "https://img.example/cat.png",
	})
	require.NoError(t, err)

	require.Len(t, got.Messages, 1)
	parts := got.Messages[0].Content
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "image_url", parts[1].Type)
	assert.Equal(t, "https://img.example/cat.png", parts[1].ImageURL.URL)
}

func TestCompleteRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"message":"busy"}}`)) //nolint:errcheck // test handler
			return
		}
		writeCompletion(w, "finally")
	})

	resp, err := client.Complete(context.Background(), Request{Model: "m", Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "finally", resp.Text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad model"}}`)) //nolint:errcheck // test handler
	})

	_, err := client.Complete(context.Background(), Request{Model: "m", Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCompleteGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down"}}`)) //nolint:errcheck // test handler
	})

	_, err := client.Complete(context.Background(), Request{Model: "m", Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCompleteRequiresModel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.Complete(context.Background(), Request{Prompt: "x"})
	assert.Error(t, err)
}

func TestListModels(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[{"id":"microsoft/phi-4"},{"id":"deepseek-ai/DeepSeek-R1"}]}`)) //nolint:errcheck // test handler
	})

	ids, err := client.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"microsoft/phi-4", "deepseek-ai/DeepSeek-R1"}, ids)
}

func TestSplitReasoning(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		reasoning string
		answer    string
	}{
		{"no block", "  plain answer ", "", "plain answer"},
		{"leading block", "<think>\nstep one\n</think>\n\nThe answer.", "step one", "The answer."},
		{"unterminated", "<think>still thinking", "still thinking", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reasoning, answer := SplitReasoning(tt.input)
			assert.Equal(t, tt.reasoning, reasoning)
			assert.Equal(t, tt.answer, answer)
		})
	}
}
