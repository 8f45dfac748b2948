package formatter

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/centomomd/dictation-server/adapters/llm"
	"github.com/centomomd/dictation-server/domain/repositories"
)

func TestFormatWithGuardrailsRequiresCompleter(t *testing.T) {
	if _, _, err := FormatWithGuardrails(context.Background(), nil, "m", "8", "texte", "fr"); err == nil {
		t.Fatal("expected error without a completer")
	}
}

func TestFormatWithGuardrailsPreservedNumbers(t *testing.T) {
	mock := llm.NewMockCompleter() // echoes the transcript back
	transcript := "Douleur évaluée à 7 sur 10, flexion limitée à 45 degrés."

	formatted, issues, err := FormatWithGuardrails(context.Background(), mock, "m", "8", transcript, "fr")
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if formatted != transcript {
		t.Errorf("formatted = %q", formatted)
	}
	if len(issues) != 0 {
		t.Errorf("issues = %v", issues)
	}
}

func TestFormatWithGuardrailsFlagsMissingNumbers(t *testing.T) {
	mock := llm.NewMockCompleter()
	mock.Response = repositories.CompletionResult{Text: "Examen clinique: douleur présente."}

	_, issues, err := FormatWithGuardrails(context.Background(), mock, "m", "8", "douleur 8 sur 10", "fr")
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("issues = %v", issues)
	}
	if !strings.Contains(issues[0], `"8"`) {
		t.Errorf("issue = %q", issues[0])
	}
}

func TestMode2Section11NotImplemented(t *testing.T) {
	f := NewMode2Formatter(nil, nil, "m", zap.NewNop())
	result := f.Format(context.Background(), "texte", Mode2Options{Section: "11"})

	if result.Formatted != "texte" {
		t.Errorf("formatted = %q", result.Formatted)
	}
	if len(result.Issues) != 1 || !strings.Contains(result.Issues[0], "not yet implemented") {
		t.Errorf("issues = %v", result.Issues)
	}
}

func TestMode2UnsupportedSection(t *testing.T) {
	f := NewMode2Formatter(nil, nil, "m", zap.NewNop())
	result := f.Format(context.Background(), "texte", Mode2Options{Section: "9"})

	if result.Formatted != "texte" {
		t.Errorf("formatted = %q", result.Formatted)
	}
	if len(result.Issues) != 1 || !strings.HasPrefix(result.Issues[0], "Formatting error") {
		t.Errorf("issues = %v", result.Issues)
	}
}

func TestMode2Section8DegradesOnError(t *testing.T) {
	mock := llm.NewMockCompleter()
	mock.Response = repositories.CompletionResult{Text: "   "}
	f := NewMode2Formatter(nil, mock, "m", zap.NewNop())

	result := f.Format(context.Background(), "transcription brute", Mode2Options{Section: "8", Language: "fr"})

	if result.Formatted != "transcription brute" {
		t.Errorf("transcript not preserved: %q", result.Formatted)
	}
	if result.ConfidenceScore != 0.1 {
		t.Errorf("confidence = %v", result.ConfidenceScore)
	}
}
