package oracle

import (
	"context"
	"fmt"

	genai "google.golang.org/genai"

	"boardpilot/internal/config"
)

// GenaiCompleter is the production Completer, backed by the official genai
// client. Generation runs at low temperature with a JSON response MIME type
// so output stays machine-decodable.
type GenaiCompleter struct {
	cli         *genai.Client
	model       string
	temperature float32
}

// NewGenaiCompleter creates the production oracle backend. The genai client
// reads its API key from the environment (GEMINI_API_KEY / GOOGLE_API_KEY).
func NewGenaiCompleter(ctx context.Context, cfg config.OracleConfig) (*GenaiCompleter, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenaiCompleter{
		cli:         cli,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// Complete sends one system+user prompt pair and returns the raw text.
func (g *GenaiCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	temp := g.temperature
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: user}}}},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
			Temperature:       &temp,
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("generate content: empty response from model %s", g.model)
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
