package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"sitebuilder-backend/internal/config"
	"sitebuilder-backend/internal/generation"
	"sitebuilder-backend/pkg/logger"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiBackend calls the Gemini API directly and asks for a JSON reply.
type GeminiBackend struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewGeminiBackend(ctx context.Context, cfg config.GeminiConfig, httpClient *http.Client) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini", ErrMissingAPIKey)
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	logger.Infof("Using Gemini API Key: %s, Model: %s", maskKey(cfg.APIKey), model)
	return &GeminiBackend{client: cli, model: model, temperature: cfg.Temperature}, nil
}

func (g *GeminiBackend) Name() string {
	return "gemini"
}

func (g *GeminiBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	contents := []*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}}
	conf := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		Temperature:       genai.Ptr[float32](g.temperature),
		ResponseMIMEType:  "application/json",
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, conf)
	if err != nil {
		return "", &generation.BackendError{Provider: g.Name(), Err: err}
	}
	text := responseText(resp)
	if text == "" {
		return "", &generation.BackendError{Provider: g.Name(), Err: errors.New("empty completion")}
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}
