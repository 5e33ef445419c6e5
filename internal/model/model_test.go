package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitebuilder-backend/internal/config"
	"sitebuilder-backend/internal/generation"
)

func newOpenAIServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, config.OpenAIConfig) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, config.OpenAIConfig{
		APIKey:      "sk-test-key-1234567890",
		BaseURL:     srv.URL + "/v1",
		Model:       "gpt-test",
		MaxTokens:   256,
		Temperature: 0.2,
	}
}

func TestOpenAIChatModelGenerate(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	_, cfg := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test-key-1234567890", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","model":"gpt-test",
			"choices":[{"index":0,"message":{"role":"assistant","content":"{\"name\":\"x\"}"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":3,"completion_tokens":5,"total_tokens":8}}`)
	})

	m, err := newOpenAIChatModel(cfg, nil)
	require.NoError(t, err)

	msg, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("be terse"),
		{Role: schema.Assistant, Content: ""},
		schema.UserMessage("make a site"),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"x"}`, msg.Content)
	assert.Equal(t, schema.Assistant, msg.Role)

	assert.Equal(t, "gpt-test", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
}

func TestOpenAIChatModelStream(t *testing.T) {
	_, cfg := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, piece := range []string{"Hel", "lo"} {
			fmt.Fprintf(w, "data: {\"id\":\"s\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", piece)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	m, err := newOpenAIChatModel(cfg, nil)
	require.NoError(t, err)

	reader, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	defer reader.Close()

	var sb strings.Builder
	for {
		chunk, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sb.WriteString(chunk.Content)
	}
	assert.Equal(t, "Hello", sb.String())
}

func TestChatModelBackendWrapsAPIErrors(t *testing.T) {
	_, cfg := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	})

	m, err := newOpenAIChatModel(cfg, nil)
	require.NoError(t, err)
	b := NewChatModelBackend("openai", m)

	_, err = b.Complete(context.Background(), "sys", "prompt")
	require.ErrorIs(t, err, generation.ErrGenerationBackend)

	var be *generation.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "openai", be.Provider)
	assert.Equal(t, http.StatusUnauthorized, be.StatusCode)
	assert.Contains(t, be.Hint(), "API key")
}

type stubChatModel struct {
	reply *schema.Message
	err   error
	input []*schema.Message
}

func (s *stubChatModel) Generate(_ context.Context, in []*schema.Message, _ ...einoModel.Option) (*schema.Message, error) {
	s.input = in
	return s.reply, s.err
}

func (s *stubChatModel) Stream(context.Context, []*schema.Message, ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestChatModelBackendComplete(t *testing.T) {
	stub := &stubChatModel{reply: schema.AssistantMessage("  {}  ", nil)}
	b := NewChatModelBackend("qwen", stub)

	out, err := b.Complete(context.Background(), "system text", "user text")
	require.NoError(t, err)
	assert.Equal(t, "  {}  ", out)
	require.Len(t, stub.input, 2)
	assert.Equal(t, schema.System, stub.input[0].Role)
	assert.Equal(t, "user text", stub.input[1].Content)

	stub.reply = schema.AssistantMessage("   ", nil)
	_, err = b.Complete(context.Background(), "s", "p")
	require.ErrorIs(t, err, generation.ErrGenerationBackend)
}

func TestNewBackendValidation(t *testing.T) {
	ctx := context.Background()
	cfg := config.GenerationConfig{Timeout: time.Second}

	_, err := NewBackend(ctx, "mystery", cfg)
	require.ErrorIs(t, err, ErrUnsupportedProvider)

	for _, provider := range []string{"openai", "doubao", "qwen", "gemini"} {
		_, err := NewBackend(ctx, provider, cfg)
		require.ErrorIs(t, err, ErrMissingAPIKey, provider)
	}
}

func TestNewGenerationClientDisablesBrokenFallback(t *testing.T) {
	cfg := config.GenerationConfig{
		Provider:         "OpenAI",
		FallbackProvider: "gemini",
		Timeout:          time.Second,
		OpenAI:           config.OpenAIConfig{APIKey: "sk-abc", Model: "gpt-test"},
	}
	client, err := NewGenerationClient(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", client.Primary())

	cfg.OpenAI.APIKey = ""
	_, err = NewGenerationClient(context.Background(), cfg)
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestDebugTransportRedactsCredentials(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewDebugTransport(nil)}
	payload := `{"model":"qwen-plus","api_key":"secret-value"}`
	req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret-value")

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, payload, body, "request body must reach the server untouched")
	assert.Equal(t, `{"model":"qwen-plus","api_key":"[REDACTED]"}`, Redact(payload))
}
