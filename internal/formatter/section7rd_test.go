package formatter

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/centomomd/dictation-server/adapters/llm"
	"github.com/centomomd/dictation-server/domain/repositories"
)

const compliantSection7 = "7. Historique de faits et évolution\n\n" +
	"Le travailleur consulte le docteur Tremblay le 15 octobre 2023. " +
	"Il rapporte: «une douleur vive au dos»."

func TestEvaluateComplianceAllRulesPass(t *testing.T) {
	compliance := evaluateCompliance(compliantSection7)

	if compliance.RulesScore != 1.0 {
		t.Errorf("score = %v, failed = %v", compliance.RulesScore, compliance.FailedRules)
	}
	if len(compliance.FailedRules) != 0 {
		t.Errorf("failed rules = %v", compliance.FailedRules)
	}
	if len(compliance.Issues) != 4 {
		t.Errorf("issues = %+v", compliance.Issues)
	}
}

func TestEvaluateComplianceFailures(t *testing.T) {
	text := "Un résumé.\n\nIl consulte. «une» «deux»"
	compliance := evaluateCompliance(text)

	failed := map[string]bool{}
	for _, rule := range compliance.FailedRules {
		failed[rule] = true
	}
	for _, rule := range []string{"header", "parag_travailleur_premier", "titre_medecin_present", "une_seule_citation"} {
		if !failed[rule] {
			t.Errorf("rule %q should have failed, got %v", rule, compliance.FailedRules)
		}
	}
	if compliance.RulesScore != 0 {
		t.Errorf("score = %v", compliance.RulesScore)
	}
}

func TestProcessInputSuccess(t *testing.T) {
	mock := llm.NewMockCompleter()
	mock.Response = repositories.CompletionResult{Text: compliantSection7}
	svc := NewSection7RdService(mock, "test-model", zap.NewNop())

	result := svc.ProcessInput(context.Background(), "le patient consulte")

	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if result.FormattedText != compliantSection7 {
		t.Errorf("formatted = %q", result.FormattedText)
	}
	if result.Compliance.RulesScore != 1.0 {
		t.Errorf("score = %v", result.Compliance.RulesScore)
	}
	if result.Version == "" || result.Timestamp == "" {
		t.Errorf("metadata missing: %+v", result)
	}
}

func TestProcessInputFailureReturnsOriginal(t *testing.T) {
	mock := llm.NewMockCompleter()
	mock.Err = errors.New("upstream down")
	svc := NewSection7RdService(mock, "test-model", zap.NewNop())

	result := svc.ProcessInput(context.Background(), "texte original")

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.FormattedText != "texte original" {
		t.Errorf("original text not preserved: %q", result.FormattedText)
	}
}
