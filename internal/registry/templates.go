package registry

import "sort"

// TemplateFeatures describes what a formatting template supports.
type TemplateFeatures struct {
	VerbatimSupport      bool
	VoiceCommandsSupport bool
	AIFormatting         bool
	PostProcessing       bool
}

// TemplateConfig describes one formatting template.
type TemplateConfig struct {
	ID                 string
	Name               string
	NameEn             string
	Type               string // "content", "formatting", "processing" or "combination"
	CompatibleSections []string
	CompatibleModes    []string
	SupportedLanguages []string
	Features           TemplateFeatures
	FallbackTemplate   string
}

// TemplateManager answers queries against the static template registry.
type TemplateManager struct {
	templates map[string]TemplateConfig
}

func NewTemplateManager() *TemplateManager {
	return &TemplateManager{templates: templateRegistry()}
}

func templateRegistry() map[string]TemplateConfig {
	allSections := []string{"section7", "section8", "section11", "section_custom"}
	return map[string]TemplateConfig{
		"word-for-word-formatter": {
			ID:                 "word-for-word-formatter",
			Name:               "Formateur mot-à-mot",
			NameEn:             "Word-for-Word Formatter",
			Type:               "processing",
			CompatibleSections: allSections,
			CompatibleModes:    []string{"mode1", "mode2"},
			SupportedLanguages: []string{"fr", "en"},
			Features: TemplateFeatures{
				VoiceCommandsSupport: true,
				PostProcessing:       true,
			},
		},
		"word-for-word-with-ai": {
			ID:                 "word-for-word-with-ai",
			Name:               "Mot-à-mot (avec IA)",
			NameEn:             "Word-for-Word (with AI)",
			Type:               "formatting",
			CompatibleSections: allSections,
			CompatibleModes:    []string{"mode1", "mode2"},
			SupportedLanguages: []string{"fr", "en"},
			Features: TemplateFeatures{
				VoiceCommandsSupport: true,
				AIFormatting:         true,
				PostProcessing:       true,
			},
			FallbackTemplate: "word-for-word-formatter",
		},
		"section7-ai-formatter": {
			ID:                 "section7-ai-formatter",
			Name:               "Formateur IA Section 7",
			NameEn:             "Section 7 AI Formatter",
			Type:               "formatting",
			CompatibleSections: []string{"section7"},
			CompatibleModes:    []string{"mode1", "mode2"},
			SupportedLanguages: []string{"fr", "en"},
			Features: TemplateFeatures{
				AIFormatting:   true,
				PostProcessing: true,
			},
		},
		"section7-v1": {
			ID:                 "section7-v1",
			Name:               "Section 7 v1",
			NameEn:             "Section 7 v1",
			Type:               "formatting",
			CompatibleSections: []string{"section7"},
			CompatibleModes:    []string{"mode1", "mode2"},
			SupportedLanguages: []string{"fr", "en"},
			Features: TemplateFeatures{
				AIFormatting: true,
			},
		},
		"section7-rd": {
			ID:                 "section7-rd",
			Name:               "Section 7 R&D",
			NameEn:             "Section 7 R&D",
			Type:               "processing",
			CompatibleSections: []string{"section7"},
			CompatibleModes:    []string{"mode2"},
			SupportedLanguages: []string{"fr", "en"},
			Features: TemplateFeatures{
				AIFormatting:   true,
				PostProcessing: true,
			},
		},
		"section8-ai-formatter": {
			ID:                 "section8-ai-formatter",
			Name:               "Formateur IA Section 8",
			NameEn:             "Section 8 AI Formatter",
			Type:               "formatting",
			CompatibleSections: []string{"section8"},
			CompatibleModes:    []string{"mode2"},
			SupportedLanguages: []string{"fr", "en"},
			Features: TemplateFeatures{
				AIFormatting: true,
			},
		},
		"history-evolution-ai-formatter": {
			ID:                 "history-evolution-ai-formatter",
			Name:               "Formateur IA historique-évolution",
			NameEn:             "History-Evolution AI Formatter",
			Type:               "formatting",
			CompatibleSections: []string{"section7", "section8"},
			CompatibleModes:    []string{"mode2", "mode3"},
			SupportedLanguages: []string{"fr", "en"},
			Features: TemplateFeatures{
				AIFormatting: true,
			},
		},
		"section-7-only": {
			ID:                 "section-7-only",
			Name:               "Section 7 seulement",
			NameEn:             "Section 7 Only",
			Type:               "content",
			CompatibleSections: []string{"section7"},
			CompatibleModes:    []string{"mode1", "mode2"},
			SupportedLanguages: []string{"fr", "en"},
		},
		"section-7-verbatim": {
			ID:                 "section-7-verbatim",
			Name:               "Section 7 verbatim",
			NameEn:             "Section 7 Verbatim",
			Type:               "content",
			CompatibleSections: []string{"section7"},
			CompatibleModes:    []string{"mode1", "mode2"},
			SupportedLanguages: []string{"fr", "en"},
			Features: TemplateFeatures{
				VerbatimSupport: true,
			},
		},
		"section-7-full": {
			ID:                 "section-7-full",
			Name:               "Section 7 complet",
			NameEn:             "Section 7 Full",
			Type:               "combination",
			CompatibleSections: []string{"section7"},
			CompatibleModes:    []string{"mode1", "mode2"},
			SupportedLanguages: []string{"fr", "en"},
			Features: TemplateFeatures{
				VerbatimSupport:      true,
				VoiceCommandsSupport: true,
			},
		},
	}
}

// GetTemplate returns the template config, or false when the ID is unknown.
func (m *TemplateManager) GetTemplate(id string) (TemplateConfig, bool) {
	t, ok := m.templates[id]
	return t, ok
}

// AllTemplateIDs returns every registered template ID.
func (m *TemplateManager) AllTemplateIDs() []string {
	return sortedKeys(m.templates)
}

// SupportsSection reports whether the template declares the section.
func (m *TemplateManager) SupportsSection(templateID, sectionID string) bool {
	t, ok := m.templates[templateID]
	return ok && contains(t.CompatibleSections, sectionID)
}

// SupportsMode reports whether the template declares the mode.
func (m *TemplateManager) SupportsMode(templateID, modeID string) bool {
	t, ok := m.templates[templateID]
	return ok && contains(t.CompatibleModes, modeID)
}

// SupportsLanguage reports whether the template declares the language.
func (m *TemplateManager) SupportsLanguage(templateID, language string) bool {
	t, ok := m.templates[templateID]
	return ok && contains(t.SupportedLanguages, language)
}

// TemplatesForSection lists template IDs compatible with the section.
func (m *TemplateManager) TemplatesForSection(sectionID string) []string {
	var ids []string
	for _, id := range m.AllTemplateIDs() {
		if contains(m.templates[id].CompatibleSections, sectionID) {
			ids = append(ids, id)
		}
	}
	return ids
}

// TemplatesForMode lists template IDs compatible with the mode.
func (m *TemplateManager) TemplatesForMode(modeID string) []string {
	var ids []string
	for _, id := range m.AllTemplateIDs() {
		if contains(m.templates[id].CompatibleModes, modeID) {
			ids = append(ids, id)
		}
	}
	return ids
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
