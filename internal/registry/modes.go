package registry

// ModeCapabilities describes what a dictation mode can do.
type ModeCapabilities struct {
	VoiceCommands      bool
	VerbatimSupport    bool
	AIFormatting       bool
	PostProcessing     bool
	RealtimeProcessing bool
}

// ModeConfig describes one dictation mode.
type ModeConfig struct {
	ID                 string
	Name               string
	NameEn             string
	ProcessingType     string // "realtime", "batch" or "hybrid"
	SupportedSections  []string
	SupportedLanguages []string
	Capabilities       ModeCapabilities
	FallbackMode       string
}

// ModeManager answers queries against the static mode registry.
type ModeManager struct {
	modes map[string]ModeConfig
}

func NewModeManager() *ModeManager {
	return &ModeManager{modes: modeRegistry()}
}

func modeRegistry() map[string]ModeConfig {
	return map[string]ModeConfig{
		"mode1": {
			ID:                 "mode1",
			Name:               "Mot-à-mot",
			NameEn:             "Word-for-Word",
			ProcessingType:     "realtime",
			SupportedSections:  []string{"section7", "section8", "section11", "section_custom"},
			SupportedLanguages: []string{"fr", "en"},
			Capabilities: ModeCapabilities{
				VoiceCommands:      true,
				PostProcessing:     true,
				RealtimeProcessing: true,
			},
			FallbackMode: "mode2",
		},
		"mode2": {
			ID:                 "mode2",
			Name:               "Dictée intelligente",
			NameEn:             "Smart Dictation",
			ProcessingType:     "hybrid",
			SupportedSections:  []string{"section7", "section8", "section11", "section_custom"},
			SupportedLanguages: []string{"fr", "en"},
			Capabilities: ModeCapabilities{
				VoiceCommands:   true,
				VerbatimSupport: true,
				AIFormatting:    true,
				PostProcessing:  true,
			},
			FallbackMode: "mode1",
		},
		"mode3": {
			ID:                 "mode3",
			Name:               "Ambiant",
			NameEn:             "Ambient",
			ProcessingType:     "batch",
			SupportedSections:  []string{"section7", "section8", "section11"},
			SupportedLanguages: []string{"fr", "en"},
			Capabilities: ModeCapabilities{
				AIFormatting:   true,
				PostProcessing: true,
			},
			FallbackMode: "mode2",
		},
	}
}

// GetMode returns the mode config, or false when the ID is unknown.
func (m *ModeManager) GetMode(id string) (ModeConfig, bool) {
	mode, ok := m.modes[id]
	return mode, ok
}

// AllModeIDs returns every registered mode ID.
func (m *ModeManager) AllModeIDs() []string {
	return sortedKeys(m.modes)
}

// SupportsSection reports whether the mode declares the section.
func (m *ModeManager) SupportsSection(modeID, sectionID string) bool {
	mode, ok := m.modes[modeID]
	return ok && contains(mode.SupportedSections, sectionID)
}

// SupportsLanguage reports whether the mode declares the language.
func (m *ModeManager) SupportsLanguage(modeID, language string) bool {
	mode, ok := m.modes[modeID]
	return ok && contains(mode.SupportedLanguages, language)
}

// ModesForSection lists mode IDs that can process the section.
func (m *ModeManager) ModesForSection(sectionID string) []string {
	var ids []string
	for _, id := range sortedKeys(m.modes) {
		if contains(m.modes[id].SupportedSections, sectionID) {
			ids = append(ids, id)
		}
	}
	return ids
}
