package repositories

import "context"

// ChatCompleter abstracts chat-completion language models used for
// AI-assisted formatting.
type ChatCompleter interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}

// CompletionRequest carries one system+user exchange. Seed, when set, asks the
// provider for reproducible output; not all providers honor it.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserContent  string
	Temperature  float64
	MaxTokens    int
	Seed         *int64
}

// CompletionResult carries the model output plus usage accounting when the
// provider reports it.
type CompletionResult struct {
	Text      string
	Model     string
	TokensIn  int
	TokensOut int
}
