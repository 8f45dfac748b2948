package layers

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/centomomd/dictation-server/domain/repositories"
)

// ClinicalExtractionLayer extracts clinical entities without altering the
// text. It is used when a caller wants structured findings but the content
// has already been cleaned upstream.
type ClinicalExtractionLayer struct {
	completer repositories.ChatCompleter
	model     string
	logger    *zap.Logger
}

func NewClinicalExtractionLayer(completer repositories.ChatCompleter, model string, logger *zap.Logger) *ClinicalExtractionLayer {
	return &ClinicalExtractionLayer{completer: completer, model: model, logger: logger}
}

func (l *ClinicalExtractionLayer) Name() string { return ClinicalExtractionName }

func (l *ClinicalExtractionLayer) Process(ctx context.Context, text string, opts Options) Result {
	start := time.Now()

	prompt := clinicalPromptEN
	if opts.Language == "fr" {
		prompt = clinicalPromptFR
	}
	prompt = strings.Replace(prompt, "{{TRANSCRIPT}}", text, 1)

	resp, err := l.completer.Complete(ctx, repositories.CompletionRequest{
		Model:        l.model,
		SystemPrompt: prompt,
		UserContent:  text,
		Temperature:  0.1,
		MaxTokens:    800,
	})
	if err != nil {
		l.logger.Warn("clinical extraction failed", zap.Error(err))
		return Result{
			Success:     false,
			CleanedText: text,
			ClinicalEntities: sanitizeEntities(ClinicalEntities{
				Language: opts.Language,
				Issues:   []string{"Extraction failed: " + err.Error()},
			}),
			ProcessingMs: time.Since(start).Milliseconds(),
			Error:        err.Error(),
		}
	}

	var entities ClinicalEntities
	if err := json.Unmarshal([]byte(resp.Text), &entities); err != nil {
		entities = ClinicalEntities{}
	}
	entities.Language = opts.Language

	return Result{
		Success:          true,
		CleanedText:      text,
		ClinicalEntities: sanitizeEntities(entities),
		ProcessingMs:     time.Since(start).Milliseconds(),
	}
}
