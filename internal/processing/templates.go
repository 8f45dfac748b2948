package processing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/centomomd/dictation-server/domain/repositories"
	"github.com/centomomd/dictation-server/internal/formatter"
	"github.com/centomomd/dictation-server/internal/registry"
)

// TemplateID enumerates the known formatting templates. Dispatch is an
// exhaustive switch over these values; a typo in a template ID falls into
// the pass-through branch instead of silently matching nothing.
type TemplateID string

const (
	TemplateWordForWord        TemplateID = "word-for-word-formatter"
	TemplateWordForWordWithAI  TemplateID = "word-for-word-with-ai"
	TemplateSection7AI         TemplateID = "section7-ai-formatter"
	TemplateSection7V1         TemplateID = "section7-v1"
	TemplateSection7Rd         TemplateID = "section7-rd"
	TemplateSection8AI         TemplateID = "section8-ai-formatter"
	TemplateHistoryEvolutionAI TemplateID = "history-evolution-ai-formatter"
	TemplateSection7Only       TemplateID = "section-7-only"
	TemplateSection7Verbatim   TemplateID = "section-7-verbatim"
	TemplateSection7Full       TemplateID = "section-7-full"
)

// TemplateApplier transforms content under one template. Implementations
// absorb their own failures; the returned warnings describe degradations.
type TemplateApplier interface {
	Apply(ctx context.Context, content string, template registry.TemplateConfig, req Request) (string, []string)
}

// TemplateDispatcher is the production TemplateApplier wired to the
// formatter services.
type TemplateDispatcher struct {
	section7     *formatter.Section7AIFormatter
	section7Rd   *formatter.Section7RdService
	aiFormatting *formatter.AIFormattingService
	completer    repositories.ChatCompleter
	model        string
	logger       *zap.Logger
}

func NewTemplateDispatcher(
	section7 *formatter.Section7AIFormatter,
	section7Rd *formatter.Section7RdService,
	aiFormatting *formatter.AIFormattingService,
	completer repositories.ChatCompleter,
	model string,
	logger *zap.Logger,
) *TemplateDispatcher {
	return &TemplateDispatcher{
		section7:     section7,
		section7Rd:   section7Rd,
		aiFormatting: aiFormatting,
		completer:    completer,
		model:        model,
		logger:       logger,
	}
}

func (d *TemplateDispatcher) Apply(ctx context.Context, content string, template registry.TemplateConfig, req Request) (string, []string) {
	switch TemplateID(template.ID) {
	case TemplateWordForWord:
		return formatter.FormatWordForWord(content, formatter.DefaultWordForWordConfig()), nil

	case TemplateWordForWordWithAI:
		return d.applyWordForWordWithAI(ctx, content, template, req)

	case TemplateSection7AI, TemplateSection7V1:
		return d.applySection7(ctx, content, req)

	case TemplateSection7Rd:
		return d.applySection7Rd(ctx, content)

	case TemplateSection8AI:
		formatted, warnings, err := formatter.FormatWithGuardrails(ctx, d.completer, d.model, "8", content, req.Language)
		if err != nil {
			d.logger.Warn("section 8 template formatting failed", zap.Error(err))
			return content, []string{fmt.Sprintf("Template '%s' failed: %v", template.ID, err)}
		}
		return formatted, warnings

	case TemplateHistoryEvolutionAI:
		result := d.aiFormatting.FormatTemplateContent(ctx, content, formatter.FormattingOptions{
			Section:         "history_evolution",
			InputLanguage:   req.Language,
			Complexity:      "medium",
			FormattingLevel: "standard",
		})
		return result.Formatted, nil

	case TemplateSection7Only, TemplateSection7Verbatim, TemplateSection7Full:
		// All three run the same whitespace normalization today; verbatim
		// and voice-command handling live in the mode 1 formatter.
		return formatter.NormalizeWhitespace(content), nil

	default:
		d.logger.Info("unknown template, passing content through",
			zap.String("template_id", template.ID))
		return content, nil
	}
}

func (d *TemplateDispatcher) applyWordForWordWithAI(ctx context.Context, content string, template registry.TemplateConfig, req Request) (string, []string) {
	deterministic := formatter.FormatWordForWord(content, formatter.DefaultWordForWordConfig())
	if !template.Features.AIFormatting || d.completer == nil {
		return deterministic, nil
	}

	result, err := d.completer.Complete(ctx, repositories.CompletionRequest{
		Model:        d.requestModel(req),
		SystemPrompt: wordForWordAIPrompt,
		UserContent:  deterministic,
		Temperature:  0.1,
		MaxTokens:    4000,
		Seed:         req.Seed,
	})
	if err != nil || result.Text == "" {
		if err != nil {
			d.logger.Warn("word-for-word AI pass failed, keeping deterministic result", zap.Error(err))
		}
		return deterministic, []string{"AI refinement unavailable, deterministic formatting applied"}
	}
	return result.Text, nil
}

func (d *TemplateDispatcher) applySection7(ctx context.Context, content string, req Request) (string, []string) {
	result := d.section7.Format(ctx, content, req.Language, formatter.Section7Options{
		Model:           req.Model,
		Temperature:     req.Temperature,
		Seed:            req.Seed,
		TemplateVersion: req.TemplateVersion,
	})
	warnings := append([]string{}, result.Issues...)
	return result.Formatted, warnings
}

func (d *TemplateDispatcher) applySection7Rd(ctx context.Context, content string) (string, []string) {
	result := d.section7Rd.ProcessInput(ctx, content)
	if !result.Success {
		return content, []string{"Section 7 R&D pipeline failed, content unchanged"}
	}
	d.logger.Info("section 7 R&D compliance",
		zap.Float64("rules_score", result.Compliance.RulesScore),
		zap.Int("passed", len(result.Compliance.PassedRules)),
		zap.Int("failed", len(result.Compliance.FailedRules)),
	)
	return result.FormattedText, nil
}

func (d *TemplateDispatcher) requestModel(req Request) string {
	if req.Model != "" {
		return req.Model
	}
	return d.model
}

const wordForWordAIPrompt = `Tu corriges une dictée médicale mot à mot.
Corrige uniquement la ponctuation, les majuscules et l'espacement.
Ne reformule rien, n'ajoute rien, ne retire aucun mot dicté.`
