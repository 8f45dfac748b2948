package ws

import "github.com/centomomd/dictation-server/domain/repositories"

// Dictation mode identifiers as sent by clients.
const (
	ModeWordForWord    = "word_for_word"
	ModeSmartDictation = "smart_dictation"
	ModeAmbient        = "ambient"
)

const medicalVocabularyFR = "medical_terms_fr"

const defaultSampleRate = 48000

var supportedSampleRates = map[int]bool{
	16000: true,
	44100: true,
	48000: true,
}

var supportedLanguageCodes = map[string]bool{
	"fr-CA": true,
	"en-US": true,
}

// ValidLanguageCode reports whether the code is one the upstream
// transcription service accepts.
func ValidLanguageCode(code string) bool {
	return supportedLanguageCodes[code]
}

// NegotiateSampleRate clamps a requested rate to a supported one.
func NegotiateSampleRate(requested int) int {
	if supportedSampleRates[requested] {
		return requested
	}
	return defaultSampleRate
}

// ResolveModeConfig maps a dictation mode to an upstream stream
// configuration. Pure function of its inputs; unknown modes take the
// word-for-word row rather than erroring.
func ResolveModeConfig(mode, languageCode string, sampleRate int) repositories.StreamConfig {
	config := repositories.StreamConfig{
		LanguageCode:            languageCode,
		MediaSampleRateHz:       NegotiateSampleRate(sampleRate),
		ShowSpeakerLabels:       false,
		PartialResultsStability: "high",
	}

	switch mode {
	case ModeSmartDictation:
		config.ShowSpeakerLabels = true
		config.VocabularyName = medicalVocabularyFR
	case ModeAmbient:
		config.ShowSpeakerLabels = true
		config.PartialResultsStability = "medium"
	}

	return config
}
