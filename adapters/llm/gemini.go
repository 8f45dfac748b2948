package llm

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/centomomd/dictation-server/domain/repositories"
)

// GeminiClient implements ChatCompleter using Google's Gemini API.
type GeminiClient struct {
	client *genai.Client
	logger *zap.Logger
}

func NewGeminiClient(logger *zap.Logger) (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client, logger: logger}, nil
}

func (g *GeminiClient) Complete(ctx context.Context, req repositories.CompletionRequest) (repositories.CompletionResult, error) {
	temperature := float32(req.Temperature)
	config := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Seed != nil {
		seed := int32(*req.Seed)
		config.Seed = &seed
	}

	contents := []*genai.Content{genai.NewContentFromText(req.UserContent, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return repositories.CompletionResult{}, fmt.Errorf("generate content failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return repositories.CompletionResult{}, fmt.Errorf("generate content returned no text")
	}

	result := repositories.CompletionResult{
		Text:  text,
		Model: req.Model,
	}
	if resp.UsageMetadata != nil {
		result.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		result.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	g.logger.Debug("gemini completion",
		zap.String("model", result.Model),
		zap.Int("tokens_in", result.TokensIn),
		zap.Int("tokens_out", result.TokensOut),
	)
	return result, nil
}
