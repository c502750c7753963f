package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-sorano/ai-cafe/internal/config"
)

func TestOpenAISummarize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "summarize this", body.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]string{"role": "assistant", "content": "  {\"title\":\"t\"}  "},
				},
			},
		})
	}))
	defer server.Close()

	client, err := NewOpenAI("test-key", "test-model", server.URL)
	require.NoError(t, err)

	text, err := client.Summarize(context.Background(), "summarize this")
	require.NoError(t, err)
	assert.Equal(t, `{"title":"t"}`, text)
	assert.Equal(t, "openai:test-model", client.Name())
}

func TestOpenAISummarizeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewOpenAI("test-key", "", server.URL)
	require.NoError(t, err)

	_, err = client.Summarize(context.Background(), "x")
	assert.Error(t, err)
}

func geminiServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/test-model:generateContent"), r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var body struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Contents, 1)
		require.Len(t, body.Contents[0].Parts, 1)
		assert.Equal(t, "summarize this", body.Contents[0].Parts[0].Text)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{
					"content": map[string]interface{}{
						"role":  "model",
						"parts": []map[string]string{{"text": reply}},
					},
					"finishReason": "STOP",
				},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGeminiSummarize(t *testing.T) {
	server := geminiServer(t, "  {\"title\":\"t\"}\n")

	client, err := NewGemini(context.Background(), "test-key", "test-model", server.URL)
	require.NoError(t, err)

	text, err := client.Summarize(context.Background(), "summarize this")
	require.NoError(t, err)
	assert.Equal(t, `{"title":"t"}`, text)
	assert.Equal(t, "gemini:test-model", client.Name())
}

func TestGeminiSummarizeEmptyResponse(t *testing.T) {
	server := geminiServer(t, "   ")

	client, err := NewGemini(context.Background(), "test-key", "test-model", server.URL)
	require.NoError(t, err)

	_, err = client.Summarize(context.Background(), "summarize this")
	assert.EqualError(t, err, "Gemini returned an empty response")
}

func TestGeminiSummarizeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"bad request","status":"INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	client, err := NewGemini(context.Background(), "test-key", "test-model", server.URL)
	require.NoError(t, err)

	_, err = client.Summarize(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Gemini generate failed")
}

func TestNewGeminiProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.Provider = ProviderGemini
	cfg.LLM.GeminiAPIKey = "k"

	client, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "gemini:"+DefaultGeminiModel, client.Name())
}

func TestNewWithoutKey(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.Provider = ProviderGemini
	client, err := New(context.Background(), cfg)
	assert.Nil(t, client)
	assert.ErrorIs(t, err, ErrNoAPIKey)

	cfg.LLM.Provider = ProviderNone
	client, err = New(context.Background(), cfg)
	assert.Nil(t, client)
	assert.ErrorIs(t, err, ErrNoAPIKey)

	cfg.LLM.Provider = "mystery"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewOpenAIProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.Provider = ProviderOpenAI
	cfg.LLM.OpenAIAPIKey = "k"
	cfg.LLM.OpenAIModel = "m"

	client, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai:m", client.Name())
}
