package model

import (
	"context"
	"errors"
	"strings"

	"sitebuilder-backend/internal/generation"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"
)

// ChatModelBackend turns an eino chat model into a generation backend.
type ChatModelBackend struct {
	name  string
	model einoModel.BaseChatModel
}

func NewChatModelBackend(name string, m einoModel.BaseChatModel) *ChatModelBackend {
	return &ChatModelBackend{name: name, model: m}
}

func (b *ChatModelBackend) Name() string {
	return b.name
}

func (b *ChatModelBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(prompt),
	}

	msg, err := b.model.Generate(ctx, messages)
	if err != nil {
		return "", &generation.BackendError{Provider: b.name, StatusCode: statusCode(err), Err: err}
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", &generation.BackendError{Provider: b.name, Err: errors.New("empty completion")}
	}
	return msg.Content, nil
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
