package registry

import (
	"fmt"
	"sort"
	"strings"
)

// SectionConfig describes one report section independent of modes and
// templates.
type SectionConfig struct {
	ID                 string
	Name               string
	NameEn             string
	Order              float64
	AudioRequired      bool
	SupportedModes     []string
	SupportedLanguages []string
	Validation         *ValidationRules
}

// ValidationRules are the soft content rules for a section. Length bounds
// produce errors, missing required fields produce warnings only.
type ValidationRules struct {
	MinLength      int
	MaxLength      int
	RequiredFields []string
}

// ValidationResult accumulates the outcome of validating section content.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// SectionManager answers queries against the static section registry.
type SectionManager struct {
	sections map[string]SectionConfig
}

func NewSectionManager() *SectionManager {
	return &SectionManager{sections: sectionRegistry()}
}

func sectionRegistry() map[string]SectionConfig {
	return map[string]SectionConfig{
		"section7": {
			ID:                 "section7",
			Name:               "7. Historique de faits et évolution",
			NameEn:             "7. Fact History and Evolution",
			Order:              7,
			AudioRequired:      true,
			SupportedModes:     []string{"mode1", "mode2", "mode3"},
			SupportedLanguages: []string{"fr", "en"},
			Validation: &ValidationRules{
				MinLength:      50,
				MaxLength:      5000,
				RequiredFields: []string{"incident_description", "medical_evolution"},
			},
		},
		"section8": {
			ID:                 "section8",
			Name:               "8. Questionnaire subjectif",
			NameEn:             "8. Subjective Questionnaire",
			Order:              8,
			AudioRequired:      true,
			SupportedModes:     []string{"mode1", "mode2", "mode3"},
			SupportedLanguages: []string{"fr", "en"},
			Validation: &ValidationRules{
				MinLength:      30,
				MaxLength:      3000,
				RequiredFields: []string{"pain_scale", "adl_impact"},
			},
		},
		"section11": {
			ID:                 "section11",
			Name:               "11. Conclusion médicale",
			NameEn:             "11. Medical Conclusion",
			Order:              11,
			AudioRequired:      true,
			SupportedModes:     []string{"mode1", "mode2", "mode3"},
			SupportedLanguages: []string{"fr", "en"},
			Validation: &ValidationRules{
				MinLength:      100,
				MaxLength:      4000,
				RequiredFields: []string{"physical_findings", "clinical_assessment"},
			},
		},
		"section_custom": {
			ID:                 "section_custom",
			Name:               "Section personnalisée",
			NameEn:             "Custom Section",
			Order:              99,
			AudioRequired:      false,
			SupportedModes:     []string{"mode1", "mode2"},
			SupportedLanguages: []string{"fr", "en"},
			Validation: &ValidationRules{
				MinLength: 10,
				MaxLength: 1000,
			},
		},
	}
}

// GetSection returns the section config, or false when the ID is unknown.
func (m *SectionManager) GetSection(id string) (SectionConfig, bool) {
	s, ok := m.sections[id]
	return s, ok
}

// AllSectionIDs returns every registered section ID in display order.
func (m *SectionManager) AllSectionIDs() []string {
	ids := make([]string, 0, len(m.sections))
	for id := range m.sections {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.sections[ids[i]].Order < m.sections[ids[j]].Order
	})
	return ids
}

// SupportsLanguage reports whether the section declares the language.
func (m *SectionManager) SupportsLanguage(sectionID, language string) bool {
	s, ok := m.sections[sectionID]
	return ok && contains(s.SupportedLanguages, language)
}

// ValidateContent checks content against the section's soft rules.
func (m *SectionManager) ValidateContent(sectionID, content string) ValidationResult {
	s, ok := m.sections[sectionID]
	if !ok || s.Validation == nil {
		return ValidationResult{Valid: true}
	}

	var result ValidationResult
	rules := s.Validation
	if rules.MinLength > 0 && len(content) < rules.MinLength {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Content too short. Minimum %d characters required.", rules.MinLength))
	}
	if rules.MaxLength > 0 && len(content) > rules.MaxLength {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Content too long. Maximum %d characters allowed.", rules.MaxLength))
	}

	lower := strings.ToLower(content)
	for _, field := range rules.RequiredFields {
		if !strings.Contains(lower, strings.ToLower(field)) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Required field '%s' not found in content.", field))
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
