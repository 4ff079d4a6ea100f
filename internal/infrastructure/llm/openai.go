package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"ScoutNewsletter/internal/config"
	"ScoutNewsletter/internal/ports"
)

// OpenAIClient implements ports.TextGenerator on the Chat Completions API.
type OpenAIClient struct {
	client *openai.Client
	model  openai.ChatModel
}

var _ ports.TextGenerator = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client from configuration. Extra options are
// appended after the defaults (tests use them to point at a local server).
func NewOpenAIClient(cfg config.ProviderConfig, opts ...option.RequestOption) *OpenAIClient {
	opts = append([]option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAIClient{
		client: &client,
		model:  openai.ChatModel(cfg.Model),
	}
}

// Name identifies the provider inside the registry.
func (c *OpenAIClient) Name() string {
	return config.ProviderOpenAI
}

// Generate sends the prompt as a single user message.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	return resp.Choices[0].Message.Content, nil
}
