package completion_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/readerspec/core/completion"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newServer(t *testing.T, content string, got *chatRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		if got != nil {
			assert.NoError(t, json.Unmarshal(body, got))
		}

		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1677652288,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func newClient(url string) *completion.Client {
	return completion.New(completion.Config{
		APIKey:  "test-key",
		BaseURL: url + "/v1",
	}, zerolog.Nop())
}

func TestTranslate_Success(t *testing.T) {
	var req chatRequest
	server := newServer(t, "Here you go:\n```json\n{\"resource\":\"todos\"}\n```\nEnjoy!", &req)

	result := newClient(server.URL).Translate(context.Background(), "the prompt")

	require.True(t, result.Success, result.Message())
	assert.Equal(t, `{"resource":"todos"}`, result.Block)
	assert.Equal(t, completion.Confidence, result.Confidence)
	assert.NoError(t, result.Err)

	assert.Equal(t, completion.DefaultModel, req.Model)
	assert.InDelta(t, 0.1, req.Temperature, 0.0001)
	assert.Equal(t, 1000, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, completion.SystemInstruction, req.Messages[0].Content)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "the prompt", req.Messages[1].Content)
}

func TestTranslate_ConfigOverrides(t *testing.T) {
	var req chatRequest
	server := newServer(t, `{"resource":"x"}`, &req)

	client := completion.New(completion.Config{
		APIKey:      "test-key",
		BaseURL:     server.URL + "/v1",
		Model:       "gpt-4o",
		Temperature: 0.5,
		MaxTokens:   200,
	}, zerolog.Nop())

	result := client.Translate(context.Background(), "p")

	require.True(t, result.Success)
	assert.Equal(t, "gpt-4o", client.Model())
	assert.Equal(t, "gpt-4o", req.Model)
	assert.InDelta(t, 0.5, req.Temperature, 0.0001)
	assert.Equal(t, 200, req.MaxTokens)
}

func TestTranslate_NoJSON(t *testing.T) {
	server := newServer(t, "I cannot help with that.", nil)

	result := newClient(server.URL).Translate(context.Background(), "p")

	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, completion.ErrNoJSON)
	assert.Empty(t, result.Block)
}

func TestTranslate_InvalidJSON(t *testing.T) {
	server := newServer(t, `{"resource": "todos",}`, nil)

	result := newClient(server.URL).Translate(context.Background(), "p")

	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, completion.ErrInvalidJSON)
}

func TestTranslate_EmptyReply(t *testing.T) {
	server := newServer(t, "", nil)

	result := newClient(server.URL).Translate(context.Background(), "p")

	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, completion.ErrNoResponse)
}

func TestTranslate_ServiceFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	result := newClient(server.URL).Translate(context.Background(), "p")

	assert.False(t, result.Success)
	assert.True(t, completion.IsServiceError(result.Err))
	assert.Contains(t, result.Message(), "Incorrect API key provided")
}

func TestTranslate_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	result := newClient(url).Translate(context.Background(), "p")

	assert.False(t, result.Success)
	assert.True(t, completion.IsServiceError(result.Err))
}

func TestExtractBlock(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    string
		wantErr error
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, nil},
		{"prose around", "Sure! {\"a\":{\"b\":2}} done", `{"a":{"b":2}}`, nil},
		{"outermost span", `{"a":1} and {"b":2}`, "", completion.ErrInvalidJSON},
		{"no braces", "nothing here", "", completion.ErrNoJSON},
		{"close before open", "} {", "", completion.ErrNoJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := completion.ExtractBlock(tt.reply)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateJSON(t *testing.T) {
	assert.True(t, completion.ValidateJSON(`{"resource":"todos"}`))
	assert.False(t, completion.ValidateJSON(`{"resource":`))
	assert.False(t, completion.ValidateJSON(""))
}
