package pipeline

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
)

const sampleTranscript = `{
	"speaker_labels": {"segments": [
		{"start_time": "0.0", "end_time": "4.0", "speaker_label": "spk_0", "items": []},
		{"start_time": "5.0", "end_time": "8.0", "speaker_label": "spk_1", "items": []}
	]},
	"results": {"items": [
		{"start_time": "0.1", "end_time": "0.5", "alternatives": [{"confidence": "0.95", "content": "J'ai"}], "type": "pronunciation"},
		{"start_time": "0.6", "end_time": "1.2", "alternatives": [{"confidence": "0.90", "content": "mal"}], "type": "pronunciation"},
		{"alternatives": [{"confidence": "0", "content": "."}], "type": "punctuation"},
		{"start_time": "5.2", "end_time": "5.9", "alternatives": [{"confidence": "0.90", "content": "Depuis"}], "type": "pronunciation"},
		{"start_time": "6.0", "end_time": "6.4", "alternatives": [{"confidence": "0.92", "content": "quand"}], "type": "pronunciation"},
		{"alternatives": [{"confidence": "0", "content": "?"}], "type": "punctuation"}
	]}
}`

func TestParseTranscriptRejectsMalformedJSON(t *testing.T) {
	if _, err := ParseTranscript([]byte(`{not json`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestParseTranscriptRejectsMissingSections(t *testing.T) {
	if _, err := ParseTranscript([]byte(`{"results": {"items": [{"type": "pronunciation", "alternatives": []}]}}`)); err == nil {
		t.Fatal("expected error when speaker_labels is missing")
	}
	if _, err := ParseTranscript([]byte(`{"speaker_labels": {"segments": [{"speaker_label": "spk_0"}]}}`)); err == nil {
		t.Fatal("expected error when results items are missing")
	}
}

func TestIngestBuildsTurnsWithPunctuation(t *testing.T) {
	result, err := ParseTranscript([]byte(sampleTranscript))
	if err != nil {
		t.Fatalf("ParseTranscript: %v", err)
	}

	dialog := Ingest(result, "fr-CA")
	if len(dialog.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(dialog.Turns))
	}
	if dialog.Turns[0].Text != "J'ai mal." {
		t.Errorf("turn 0 text = %q", dialog.Turns[0].Text)
	}
	if dialog.Turns[1].Text != "Depuis quand?" {
		t.Errorf("turn 1 text = %q", dialog.Turns[1].Text)
	}
	if dialog.Turns[0].EndTime != 1.2 {
		t.Errorf("turn 0 end time = %v, expected end of last word", dialog.Turns[0].EndTime)
	}
	if dialog.Metadata.SpeakerCount != 2 {
		t.Errorf("speaker count = %d", dialog.Metadata.SpeakerCount)
	}
	if dialog.Metadata.TotalDuration != 6.4 {
		t.Errorf("total duration = %v", dialog.Metadata.TotalDuration)
	}
}

func TestMergeTurnsConsolidatesSameSpeaker(t *testing.T) {
	dialog := Dialog{Turns: []Turn{
		{Speaker: "spk_0", StartTime: 0, EndTime: 2, Text: "Bonjour", Confidence: 0.8},
		{Speaker: "spk_0", StartTime: 2.5, EndTime: 4, Text: "docteur.", Confidence: 0.9},
		{Speaker: "spk_1", StartTime: 4.2, EndTime: 5, Text: "Bonjour.", Confidence: 0.9},
	}}

	merged := MergeTurns(dialog)
	if len(merged.Turns) != 2 {
		t.Fatalf("expected 2 turns after merge, got %d", len(merged.Turns))
	}
	if merged.Turns[0].Text != "Bonjour docteur." {
		t.Errorf("merged text = %q", merged.Turns[0].Text)
	}
	if merged.Turns[0].EndTime != 4 {
		t.Errorf("merged end time = %v", merged.Turns[0].EndTime)
	}
}

func TestMergeTurnsRespectsMaxDuration(t *testing.T) {
	dialog := Dialog{Turns: []Turn{
		{Speaker: "spk_0", StartTime: 0, EndTime: 14, Text: "Premier segment", Confidence: 0.8},
		{Speaker: "spk_0", StartTime: 14.5, EndTime: 20, Text: "second segment", Confidence: 0.8},
	}}

	merged := MergeTurns(dialog)
	if len(merged.Turns) != 2 {
		t.Fatalf("expected turns to stay separate past the duration cap, got %d", len(merged.Turns))
	}
}

func TestMergeTurnsSkipsLargeGaps(t *testing.T) {
	dialog := Dialog{Turns: []Turn{
		{Speaker: "spk_0", StartTime: 0, EndTime: 1, Text: "Un", Confidence: 0.8},
		{Speaker: "spk_0", StartTime: 3, EndTime: 4, Text: "deux", Confidence: 0.8},
	}}

	merged := MergeTurns(dialog)
	if len(merged.Turns) != 2 {
		t.Fatalf("expected no merge across a 2s gap, got %d turns", len(merged.Turns))
	}
}

func TestMapRolesSingleSpeakerIsPatient(t *testing.T) {
	dialog := Dialog{Turns: []Turn{{Speaker: "spk_0", Text: "Bonjour"}}}
	roleMap := MapRoles(dialog)
	if roleMap["spk_0"] != RolePatient {
		t.Errorf("single speaker role = %q", roleMap["spk_0"])
	}
}

func TestMapRolesFirstSpeakerIsPatient(t *testing.T) {
	dialog := Dialog{Turns: []Turn{
		{Speaker: "spk_1", Text: "J'ai mal au dos"},
		{Speaker: "spk_0", Text: "Depuis quand?"},
	}}
	roleMap := MapRoles(dialog)
	if roleMap["spk_1"] != RolePatient {
		t.Errorf("first speaker role = %q", roleMap["spk_1"])
	}
	if roleMap["spk_0"] != RoleClinician {
		t.Errorf("second speaker role = %q", roleMap["spk_0"])
	}
}

func TestSwapRolesInvertsAssignments(t *testing.T) {
	swapped := SwapRoles(RoleMap{"spk_0": RolePatient, "spk_1": RoleClinician})
	if swapped["spk_0"] != RoleClinician || swapped["spk_1"] != RolePatient {
		t.Errorf("swapped = %v", swapped)
	}
}

func TestCleanRemovesFillers(t *testing.T) {
	dialog := Dialog{Turns: []Turn{
		{Speaker: "spk_0", StartTime: 0, EndTime: 2, Text: "euh j'avais euh une douleur"},
	}}
	cleaned := Clean(dialog, RoleMap{"spk_0": RolePatient}, ProfileDefault)
	if len(cleaned.Turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(cleaned.Turns))
	}
	if cleaned.Turns[0].Text != "j'avais une douleur" {
		t.Errorf("cleaned text = %q", cleaned.Turns[0].Text)
	}
}

func TestCleanDropsEmptiedTurns(t *testing.T) {
	dialog := Dialog{Turns: []Turn{
		{Speaker: "spk_0", StartTime: 0, EndTime: 1, Text: "euh euh"},
		{Speaker: "spk_0", StartTime: 1, EndTime: 2, Text: "une douleur vive"},
	}}
	cleaned := Clean(dialog, RoleMap{"spk_0": RolePatient}, ProfileDefault)
	if len(cleaned.Turns) != 1 {
		t.Fatalf("expected filler-only turn to be dropped, got %d turns", len(cleaned.Turns))
	}
	if cleaned.Metadata.OriginalTurnCount != 2 || cleaned.Metadata.CleanedTurnCount != 1 {
		t.Errorf("metadata = %+v", cleaned.Metadata)
	}
}

func TestCleanRepetitionHandlingByProfile(t *testing.T) {
	dialog := Dialog{Turns: []Turn{
		{Speaker: "spk_0", StartTime: 0, EndTime: 2, Text: "une une douleur douleur vive"},
	}}

	def := Clean(dialog, RoleMap{"spk_0": RolePatient}, ProfileDefault)
	if def.Turns[0].Text != "une douleur vive" {
		t.Errorf("default profile text = %q", def.Turns[0].Text)
	}

	clinical := Clean(dialog, RoleMap{"spk_0": RolePatient}, ProfileClinicalLight)
	if clinical.Turns[0].Text != "une une douleur douleur vive" {
		t.Errorf("clinical_light profile text = %q", clinical.Turns[0].Text)
	}
}

func TestBuildNarrativeRolePrefixed(t *testing.T) {
	cleaned := CleanedDialog{Turns: []CleanedTurn{
		{Speaker: "spk_0", Role: RolePatient, StartTime: 0, EndTime: 2, Text: "j'ai mal au dos"},
		{Speaker: "spk_1", Role: RoleClinician, StartTime: 2, EndTime: 4, Text: "depuis quand?"},
	}}

	narrative := BuildNarrative(cleaned)
	if narrative.Format != FormatRolePrefixed {
		t.Fatalf("format = %q", narrative.Format)
	}
	want := "PATIENT: J'ai mal au dos.\nCLINICIAN: Depuis quand?"
	if narrative.Content != want {
		t.Errorf("content = %q, want %q", narrative.Content, want)
	}
	if narrative.Metadata.PatientTurns != 1 || narrative.Metadata.ClinicianTurns != 1 {
		t.Errorf("metadata = %+v", narrative.Metadata)
	}
}

func TestBuildNarrativeSingleBlock(t *testing.T) {
	cleaned := CleanedDialog{Turns: []CleanedTurn{
		{Speaker: "spk_0", Role: RolePatient, StartTime: 0, EndTime: 2, Text: "premier point."},
		{Speaker: "spk_0", Role: RolePatient, StartTime: 2, EndTime: 4, Text: "second point."},
	}}

	narrative := BuildNarrative(cleaned)
	if narrative.Format != FormatSingleBlock {
		t.Fatalf("format = %q", narrative.Format)
	}
	if strings.Contains(narrative.Content, "PATIENT:") {
		t.Errorf("single block content should not carry role prefixes: %q", narrative.Content)
	}
}

func TestBuildNarrativeParagraphBreakOnLongTurn(t *testing.T) {
	cleaned := CleanedDialog{Turns: []CleanedTurn{
		{Speaker: "spk_0", Role: RolePatient, StartTime: 0, EndTime: 13, Text: "un long passage."},
		{Speaker: "spk_0", Role: RolePatient, StartTime: 13, EndTime: 14, Text: "une suite."},
	}}

	narrative := BuildNarrative(cleaned)
	if !strings.Contains(narrative.Content, "\n\n") {
		t.Errorf("expected paragraph break after a 13s turn: %q", narrative.Content)
	}
}

func TestRunnerEndToEnd(t *testing.T) {
	runner := NewRunner(zap.NewNop())

	artifacts, err := runner.Run(context.Background(), []byte(sampleTranscript), Options{Language: "fr-CA"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if artifacts.Narrative.Format != FormatRolePrefixed {
		t.Errorf("format = %q", artifacts.Narrative.Format)
	}
	if artifacts.RoleMap["spk_0"] != RolePatient || artifacts.RoleMap["spk_1"] != RoleClinician {
		t.Errorf("role map = %v", artifacts.RoleMap)
	}
	if !strings.HasPrefix(artifacts.Narrative.Content, "PATIENT: J'ai mal.") {
		t.Errorf("content = %q", artifacts.Narrative.Content)
	}
}

func TestRunnerRaisesOnMalformedPayload(t *testing.T) {
	runner := NewRunner(zap.NewNop())
	if _, err := runner.Run(context.Background(), []byte("not a transcript"), Options{}); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
