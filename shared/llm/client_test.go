package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("http://llm.local/v1/", "key")

	assert.Equal(t, "http://llm.local/v1", c.BaseURL)
	assert.Equal(t, "gemma-3-27b-it", c.Model)
	assert.Equal(t, 1024, c.MaxTokens)
}

func TestNewClientOptions(t *testing.T) {
	c := NewClient("http://llm.local/v1", "key",
		WithModel("gemma-3-9b-it"),
		WithMaxTokens(256),
		WithTimeout(5*time.Second))

	assert.Equal(t, "gemma-3-9b-it", c.Model)
	assert.Equal(t, 256, c.MaxTokens)
}

func TestCreateChatCompletion(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		resp := openai.ChatCompletionResponse{
			ID:     "chatcmpl-1",
			Object: "chat.completion",
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: "assistant", Content: "你好"},
				FinishReason: openai.FinishReasonStop,
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1", "key", WithHTTPClient(srv.Client()))

	resp, err := c.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{
		Model:    c.Model,
		Messages: []openai.ChatCompletionMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "你好", resp.Choices[0].Message.Content)
	assert.Equal(t, "/v1/chat/completions", gotPath)
}
