package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/centomomd/dictation-server/domain/repositories"
)

// OpenAIClient implements ChatCompleter on the OpenAI chat completions API.
type OpenAIClient struct {
	client openai.Client
	logger *zap.Logger
}

func NewOpenAIClient(logger *zap.Logger) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}

	return &OpenAIClient{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		logger: logger,
	}, nil
}

func (o *OpenAIClient) Complete(ctx context.Context, req repositories.CompletionRequest) (repositories.CompletionResult, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserContent),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Seed != nil {
		params.Seed = openai.Int(*req.Seed)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return repositories.CompletionResult{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return repositories.CompletionResult{}, fmt.Errorf("chat completion returned no choices")
	}

	result := repositories.CompletionResult{
		Text:      resp.Choices[0].Message.Content,
		Model:     resp.Model,
		TokensIn:  int(resp.Usage.PromptTokens),
		TokensOut: int(resp.Usage.CompletionTokens),
	}

	o.logger.Debug("chat completion",
		zap.String("model", result.Model),
		zap.Int("tokens_in", result.TokensIn),
		zap.Int("tokens_out", result.TokensOut),
	)
	return result, nil
}
