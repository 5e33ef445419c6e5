package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"sitebuilder-backend/internal/config"
	"sitebuilder-backend/internal/generation"
	"sitebuilder-backend/internal/utils"
	"sitebuilder-backend/pkg/logger"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoModel "github.com/cloudwego/eino/components/model"
)

var (
	ErrMissingAPIKey       = errors.New("missing API key")
	ErrUnsupportedProvider = errors.New("unsupported model provider")
)

// NewBackend 根据供应商名称创建生成后端
func NewBackend(ctx context.Context, provider string, cfg config.GenerationConfig) (generation.Backend, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))

	switch provider {
	case "openai":
		m, err := newOpenAIChatModel(cfg.OpenAI, newHTTPClient(cfg, false))
		if err != nil {
			return nil, err
		}
		logger.Infof("Using OpenAI-compatible model: %s", cfg.OpenAI.Model)
		return NewChatModelBackend("openai", m), nil
	case "doubao":
		m, err := createDoubaoModel(ctx, cfg.Doubao)
		if err != nil {
			return nil, err
		}
		return NewChatModelBackend("doubao", m), nil
	case "qwen":
		m, err := createQwenModel(ctx, cfg.Qwen, cfg)
		if err != nil {
			return nil, err
		}
		return NewChatModelBackend("qwen", m), nil
	case "gemini":
		return NewGeminiBackend(ctx, cfg.Gemini, newHTTPClient(cfg, false))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
}

// NewGenerationClient builds the primary backend and, when configured and
// different, the fallback. A fallback that cannot be built is logged and left
// out.
func NewGenerationClient(ctx context.Context, cfg config.GenerationConfig) (*generation.Client, error) {
	primary, err := NewBackend(ctx, cfg.Provider, cfg)
	if err != nil {
		return nil, fmt.Errorf("primary backend %s: %w", cfg.Provider, err)
	}

	var fallback generation.Backend
	fb := strings.TrimSpace(cfg.FallbackProvider)
	if fb != "" && !strings.EqualFold(fb, cfg.Provider) {
		fallback, err = NewBackend(ctx, fb, cfg)
		if err != nil {
			logger.Warnf("Fallback backend %s disabled: %v", fb, err)
			fallback = nil
		}
	}

	return generation.NewClient(primary, fallback, generation.Options{Timeout: cfg.Timeout}), nil
}

func newHTTPClient(cfg config.GenerationConfig, debug bool) *http.Client {
	client := utils.NewHTTPClient(cfg.Timeout)
	if debug {
		client.Transport = NewDebugTransport(client.Transport)
	}
	return client
}

func maskKey(key string) string {
	if len(key) > 10 {
		return key[:10] + "..."
	}
	return "***"
}

func createDoubaoModel(ctx context.Context, cfg config.DoubaoConfig) (einoModel.BaseChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: doubao", ErrMissingAPIKey)
	}
	logger.Infof("Using Doubao API Key: %s, Model: %s", maskKey(cfg.APIKey), cfg.Model)

	arkConfig := &ark.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		CustomHeader: map[string]string{
			"X-Ark-Thinking-Mode": "disable",
		},
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		arkConfig.MaxTokens = &maxTokens
	}
	if cfg.Temperature > 0 {
		temperature := cfg.Temperature
		arkConfig.Temperature = &temperature
	}

	chatModel, err := ark.NewChatModel(ctx, arkConfig)
	if err != nil {
		return nil, fmt.Errorf("create doubao model: %w", err)
	}
	return chatModel, nil
}

func createQwenModel(ctx context.Context, cfg config.QwenConfig, gen config.GenerationConfig) (einoModel.BaseChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: qwen", ErrMissingAPIKey)
	}
	logger.Infof("Using Qwen API Key: %s, Model: %s, BaseURL: %s", maskKey(cfg.APIKey), cfg.Model, cfg.BaseURL)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = gen.Timeout
	}
	httpClient := newHTTPClient(gen, cfg.DebugRequest)
	httpClient.Timeout = timeout

	chatModel, err := qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   &cfg.MaxTokens,
		Temperature: &cfg.Temperature,
		TopP:        &cfg.TopP,
		Timeout:     timeout,
		HTTPClient:  httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create qwen model: %w", err)
	}
	return chatModel, nil
}
