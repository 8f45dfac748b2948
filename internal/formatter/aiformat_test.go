package formatter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/centomomd/dictation-server/adapters/llm"
	"github.com/centomomd/dictation-server/domain/repositories"
)

func TestFormatTemplateContentSection7French(t *testing.T) {
	svc := NewAIFormattingService(nil, "test-model", zap.NewNop())

	result := svc.FormatTemplateContent(context.Background(), "Le patient a subi une blessure au dos.", FormattingOptions{
		Section:       "7",
		InputLanguage: "fr",
	})

	if !strings.HasPrefix(result.Formatted, "7. Historique de faits et évolution") {
		t.Errorf("header missing: %q", result.Formatted)
	}
	if strings.Contains(result.Formatted, "patient") {
		t.Errorf("worker terminology not applied: %q", result.Formatted)
	}
	if !strings.Contains(result.Formatted, "travailleur") {
		t.Errorf("expected travailleur in %q", result.Formatted)
	}
	if len(result.Changes) == 0 {
		t.Error("expected recorded changes")
	}
	if result.Original != "Le patient a subi une blessure au dos." {
		t.Errorf("original not preserved: %q", result.Original)
	}
}

func TestFormatTemplateContentSection8Structure(t *testing.T) {
	svc := NewAIFormattingService(nil, "test-model", zap.NewNop())

	result := svc.FormatTemplateContent(context.Background(), "Examen: amplitude réduite.", FormattingOptions{
		Section:       "8",
		InputLanguage: "fr",
	})

	if !strings.Contains(result.Formatted, "Examen clinique:") {
		t.Errorf("clinical structure not standardized: %q", result.Formatted)
	}
}

func TestFormatTemplateContentHistoryEvolutionUsesAI(t *testing.T) {
	mock := llm.NewMockCompleter()
	mock.Response = repositories.CompletionResult{Text: "Le travailleur consulte le 3 mai 2024."}
	svc := NewAIFormattingService(mock, "test-model", zap.NewNop())

	result := svc.FormatTemplateContent(context.Background(), "le 3 mai 2024 le travailleur consulte", FormattingOptions{
		Section:       "history_evolution",
		InputLanguage: "fr",
	})

	if mock.CallCount() != 1 {
		t.Fatalf("completer calls = %d", mock.CallCount())
	}
	if result.Formatted != "Le travailleur consulte le 3 mai 2024." {
		t.Errorf("formatted = %q", result.Formatted)
	}

	found := false
	for _, change := range result.Changes {
		if change == "Applied AI formatting" {
			found = true
		}
	}
	if !found {
		t.Errorf("AI change not recorded: %v", result.Changes)
	}
}

func TestFormatTemplateContentHistoryEvolutionFallsBack(t *testing.T) {
	mock := llm.NewMockCompleter()
	mock.Err = errors.New("model unavailable")
	svc := NewAIFormattingService(mock, "test-model", zap.NewNop())

	result := svc.FormatTemplateContent(context.Background(), "le patient consulte", FormattingOptions{
		Section:       "history_evolution",
		InputLanguage: "fr",
	})

	if !strings.Contains(result.Formatted, "Historique d'évolution") {
		t.Errorf("deterministic fallback header missing: %q", result.Formatted)
	}
	if strings.Contains(result.Formatted, "patient") {
		t.Errorf("fallback should still fix terminology: %q", result.Formatted)
	}
}

func TestGenerateSuggestions(t *testing.T) {
	suggestions := GenerateSuggestions("Le patient a mal.", FormattingOptions{Section: "7", InputLanguage: "fr"})

	var sawTerminology bool
	for _, s := range suggestions {
		if strings.Contains(s, "travailleur") {
			sawTerminology = true
		}
	}
	if !sawTerminology {
		t.Errorf("expected terminology suggestion, got %v", suggestions)
	}
}

func TestCalculateStatistics(t *testing.T) {
	stats := CalculateStatistics("Le travailleur a un diagnostic. Examen fait.")

	if stats.WordCount != 7 {
		t.Errorf("word count = %d", stats.WordCount)
	}
	if stats.SentenceCount != 2 {
		t.Errorf("sentence count = %d", stats.SentenceCount)
	}
	if stats.MedicalTermCount != 3 {
		t.Errorf("medical term count = %d", stats.MedicalTermCount)
	}
	if stats.ComplianceScore != 75 {
		t.Errorf("compliance score = %d", stats.ComplianceScore)
	}
}

func TestValidateComplianceFlags(t *testing.T) {
	content := "7. Historique de faits et évolution\n\nLe travailleur décrit une douleur depuis le 2 mai."
	compliance := validateCompliance(content, FormattingOptions{Section: "7", InputLanguage: "fr"})

	if !compliance.Structure || !compliance.MedicalTerms || !compliance.Terminology || !compliance.Chronology {
		t.Errorf("compliance = %+v", compliance)
	}
	if !compliance.CNESST {
		t.Error("CNESST flag should follow structure and medical terms")
	}
}
