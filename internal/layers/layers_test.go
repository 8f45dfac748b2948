package layers

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/centomomd/dictation-server/adapters/llm"
	"github.com/centomomd/dictation-server/domain/repositories"
)

func TestUniversalCleanupStripsArtifacts(t *testing.T) {
	mock := llm.NewMockCompleter()
	layer := NewUniversalCleanupLayer(mock, "m", zap.NewNop())

	result := layer.Process(context.Background(), "[00:12] euh bonjour   docteur um oui", Options{Language: "fr"})

	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if result.CleanedText != "bonjour docteur oui" {
		t.Errorf("cleaned = %q", result.CleanedText)
	}
}

func TestUniversalCleanupEmptyTranscript(t *testing.T) {
	mock := llm.NewMockCompleter()
	layer := NewUniversalCleanupLayer(mock, "m", zap.NewNop())

	result := layer.Process(context.Background(), "[00:12] euh um", Options{Language: "fr"})

	if !result.Success || result.CleanedText != "" {
		t.Fatalf("result = %+v", result)
	}
	if mock.CallCount() != 0 {
		t.Error("empty transcript should not reach the model")
	}
	if len(result.ClinicalEntities.Issues) != 1 {
		t.Errorf("issues = %v", result.ClinicalEntities.Issues)
	}
}

func TestUniversalCleanupParsesEntities(t *testing.T) {
	mock := llm.NewMockCompleter()
	mock.Response = repositories.CompletionResult{
		Text: `{"injury_location":"épaule droite","pain_severity":"7/10","imaging_done":["radiographie"]}`,
	}
	layer := NewUniversalCleanupLayer(mock, "m", zap.NewNop())

	result := layer.Process(context.Background(), "douleur à l'épaule droite", Options{Language: "fr"})

	if result.ClinicalEntities.InjuryLocation != "épaule droite" {
		t.Errorf("entities = %+v", result.ClinicalEntities)
	}
	if result.ClinicalEntities.Language != "fr" {
		t.Errorf("language = %q", result.ClinicalEntities.Language)
	}
	if result.ClinicalEntities.FunctionalLimitations == nil || result.ClinicalEntities.Issues == nil {
		t.Error("slice fields must be non-nil")
	}
}

func TestUniversalCleanupCachesExtraction(t *testing.T) {
	mock := llm.NewMockCompleter()
	mock.Response = repositories.CompletionResult{Text: `{"injury_type":"entorse"}`}
	layer := NewUniversalCleanupLayer(mock, "m", zap.NewNop())

	first := layer.Process(context.Background(), "entorse lombaire", Options{Language: "fr"})
	second := layer.Process(context.Background(), "entorse lombaire", Options{Language: "fr"})

	if first.UsedCache {
		t.Error("first call should miss the cache")
	}
	if !second.UsedCache {
		t.Error("second call should hit the cache")
	}
	if mock.CallCount() != 1 {
		t.Errorf("model calls = %d", mock.CallCount())
	}
	if second.ClinicalEntities.InjuryType != "entorse" {
		t.Errorf("cached entities = %+v", second.ClinicalEntities)
	}
}

func TestUniversalCleanupFailsOpen(t *testing.T) {
	mock := llm.NewMockCompleter()
	mock.Err = errors.New("quota exceeded")
	layer := NewUniversalCleanupLayer(mock, "m", zap.NewNop())

	result := layer.Process(context.Background(), "bonjour docteur", Options{Language: "fr"})

	if result.Success {
		t.Error("extraction failure must be reported")
	}
	if result.CleanedText != "bonjour docteur" {
		t.Errorf("cleaned text must survive: %q", result.CleanedText)
	}
	if result.Error == "" {
		t.Error("error detail missing")
	}
}

func TestClinicalExtractionKeepsTextUntouched(t *testing.T) {
	mock := llm.NewMockCompleter()
	mock.Response = repositories.CompletionResult{Text: `{"onset":"2024-03-01"}`}
	layer := NewClinicalExtractionLayer(mock, "m", zap.NewNop())

	text := "Le travailleur décrit   une douleur."
	result := layer.Process(context.Background(), text, Options{Language: "fr"})

	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if result.CleanedText != text {
		t.Errorf("text altered: %q", result.CleanedText)
	}
	if result.ClinicalEntities.OnsetDate != "2024-03-01" {
		t.Errorf("entities = %+v", result.ClinicalEntities)
	}
}

func TestClinicalExtractionToleratesNonJSON(t *testing.T) {
	mock := llm.NewMockCompleter() // echo, not JSON
	layer := NewClinicalExtractionLayer(mock, "m", zap.NewNop())

	result := layer.Process(context.Background(), "du texte libre", Options{Language: "en"})

	if !result.Success {
		t.Fatalf("non-JSON output must not fail the layer: %+v", result)
	}
	if result.ClinicalEntities.Language != "en" {
		t.Errorf("language = %q", result.ClinicalEntities.Language)
	}
}
