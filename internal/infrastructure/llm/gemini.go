package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"ScoutNewsletter/internal/config"
	"ScoutNewsletter/internal/ports"
)

// GeminiClient implements ports.TextGenerator on the Gemini API.
type GeminiClient struct {
	client    *genai.Client
	model     string
	grounding bool
}

var _ ports.TextGenerator = (*GeminiClient)(nil)

// NewGeminiClient builds a client from configuration. Grounding enables the
// Google Search tool so the model can surface recent storylines.
func NewGeminiClient(ctx context.Context, cfg config.ProviderConfig, grounding bool) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("new gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: cfg.Model, grounding: grounding}, nil
}

// Name identifies the provider inside the registry.
func (c *GeminiClient) Name() string {
	return config.ProviderGemini
}

// Generate sends a single prompt and returns the concatenated text parts of the
// first candidate.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	var genCfg *genai.GenerateContentConfig
	if c.grounding {
		genCfg = &genai.GenerateContentConfig{
			Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), genCfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	return candidateText(resp), nil
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	first := resp.Candidates[0]
	if first == nil || first.Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range first.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
