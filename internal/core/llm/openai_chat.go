package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/bookcast/ingest/internal/core"
)

// OpenAIChat generates section summaries via the chat completions API.
type OpenAIChat struct {
	client    openai.Client
	modelName string
}

func NewOpenAIChat(apiKey, modelName string) *OpenAIChat {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if modelName == "" {
		modelName = "gpt-3.5-turbo-16k"
	}
	return &OpenAIChat{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		modelName: modelName,
	}
}

func (o *OpenAIChat) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(0.7),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai chat: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

var _ core.Chat = (*OpenAIChat)(nil)
