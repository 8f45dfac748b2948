package registry

import (
	"strings"
	"testing"
)

func TestSectionManagerLookups(t *testing.T) {
	m := NewSectionManager()

	if _, ok := m.GetSection("section7"); !ok {
		t.Fatal("expected section7 to be registered")
	}
	if _, ok := m.GetSection("section_99"); ok {
		t.Fatal("expected section_99 to be unknown")
	}
	if !m.SupportsLanguage("section7", "fr") {
		t.Error("section7 should support fr")
	}
	if m.SupportsLanguage("section7", "de") {
		t.Error("section7 should not support de")
	}
}

func TestValidateContentLengthErrors(t *testing.T) {
	m := NewSectionManager()

	res := m.ValidateContent("section7", "court")
	if res.Valid {
		t.Error("short content should be invalid")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "too short") {
		t.Errorf("expected one too-short error, got %v", res.Errors)
	}

	res = m.ValidateContent("section7", strings.Repeat("x", 6000))
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "too long") {
		t.Errorf("expected one too-long error, got %v", res.Errors)
	}
}

func TestValidateContentRequiredFieldsAreWarnings(t *testing.T) {
	m := NewSectionManager()

	content := strings.Repeat("le travailleur décrit les faits. ", 5)
	res := m.ValidateContent("section7", content)
	if !res.Valid {
		t.Errorf("missing required fields must not invalidate content: %v", res.Errors)
	}
	if len(res.Warnings) != 2 {
		t.Errorf("expected 2 required-field warnings, got %v", res.Warnings)
	}
}

func TestValidateContentUnknownSectionIsValid(t *testing.T) {
	m := NewSectionManager()
	res := m.ValidateContent("nope", "anything")
	if !res.Valid || len(res.Errors) != 0 || len(res.Warnings) != 0 {
		t.Errorf("unknown section should validate clean, got %+v", res)
	}
}

func TestModeManagerSupport(t *testing.T) {
	m := NewModeManager()

	if !m.SupportsSection("mode1", "section_custom") {
		t.Error("mode1 should support section_custom")
	}
	if m.SupportsSection("mode3", "section_custom") {
		t.Error("mode3 should not support section_custom")
	}
	if got := m.ModesForSection("section_custom"); len(got) != 2 {
		t.Errorf("expected 2 modes for section_custom, got %v", got)
	}
}

func TestTemplateManagerCompatibility(t *testing.T) {
	m := NewTemplateManager()

	if got := len(m.AllTemplateIDs()); got != 10 {
		t.Fatalf("expected 10 registered templates, got %d", got)
	}
	if !m.SupportsSection("section7-rd", "section7") {
		t.Error("section7-rd should be compatible with section7")
	}
	if m.SupportsMode("section7-rd", "mode1") {
		t.Error("section7-rd should not be compatible with mode1")
	}
	if !m.SupportsLanguage("word-for-word-formatter", "en") {
		t.Error("word-for-word-formatter should support en")
	}

	forSection8 := m.TemplatesForSection("section8")
	for _, id := range forSection8 {
		if id == "section-7-only" {
			t.Error("section-7-only must not be listed for section8")
		}
	}
}
