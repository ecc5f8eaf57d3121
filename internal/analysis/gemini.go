package analysis

import (
	"context"
	"fmt"

	"github.com/Dan9191/money-dashboard/internal/config"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// Generator produces a JSON document for a prompt
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// GeminiGenerator calls a Gemini model constrained to the analysis schema
type GeminiGenerator struct {
	client *genai.Client
	model  string
	log    *logrus.Logger
}

// NewGeminiGenerator creates a Gemini client from config
func NewGeminiGenerator(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: cfg.GeminiModel, log: log}, nil
}

// Generate implements Generator
func (g *GeminiGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.1),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    responseSchema,
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	if resp.UsageMetadata != nil {
		g.log.Debugf("Gemini %s used %d prompt and %d output tokens", g.model,
			resp.UsageMetadata.PromptTokenCount, resp.UsageMetadata.CandidatesTokenCount)
	}
	return text, nil
}
