package formatter

import (
	"regexp"
	"strings"
	"unicode"
)

// WordForWordConfig controls the deterministic word-for-word passes.
type WordForWordConfig struct {
	RemoveSpeakerPrefixes  bool
	ConvertSpokenCommands  bool
	ApplyMedicalFormatting bool
	CapitalizeSentences    bool
	CleanSpacing           bool
}

// DefaultWordForWordConfig enables every pass.
func DefaultWordForWordConfig() WordForWordConfig {
	return WordForWordConfig{
		RemoveSpeakerPrefixes:  true,
		ConvertSpokenCommands:  true,
		ApplyMedicalFormatting: true,
		CapitalizeSentences:    true,
		CleanSpacing:           true,
	}
}

var (
	speakerPrefixRe = regexp.MustCompile(`\b(Pt|Dr|Dre):\s*`)

	// Spoken commands converted to punctuation and layout. Order matters:
	// multi-word commands run before their single-word prefixes.
	spokenCommands = []struct {
		re          *regexp.Regexp
		replacement string
	}{
		{regexp.MustCompile(`(?i)\bnew line\b`), "\n"},
		{regexp.MustCompile(`(?i)\bnew paragraph\b`), "\n\n"},
		{regexp.MustCompile(`(?i)\bperiod\b`), "."},
		{regexp.MustCompile(`(?i)\bcomma\b`), ","},
		{regexp.MustCompile(`(?i)\bcolon\b`), ":"},
		{regexp.MustCompile(`(?i)\bsemicolon\b`), ";"},
		{regexp.MustCompile(`(?i)\bexclamation\b`), "!"},
		{regexp.MustCompile(`(?i)\bquestion mark\b`), "?"},
		{regexp.MustCompile(`(?i)\bopen parenthesis\b`), "("},
		{regexp.MustCompile(`(?i)\bclose parenthesis\b`), ")"},
		{regexp.MustCompile(`(?i)\bopen quotation marks\b`), "\""},
		{regexp.MustCompile(`(?i)\bclose quotation marks\b`), "\""},
	}

	// Common recognizer misrenderings of cervical levels.
	medicalFixes = []struct {
		re          *regexp.Regexp
		replacement string
	}{
		{regexp.MustCompile(`(?i)\bsea 5 C 6\b`), "C5-C6"},
		{regexp.MustCompile(`(?i)\bC 5 C 6\b`), "C5-C6"},
		{regexp.MustCompile(`(?i)\bC 6\b`), "C6"},
		{regexp.MustCompile(`(?i)\bC 5\b`), "C5"},
		{regexp.MustCompile(`(?i)\bDoctor\b`), "Dr."},
	}

	spaceBeforePunctRe = regexp.MustCompile(`\s+([.,:;!?])`)
	multiSpaceRe       = regexp.MustCompile(`\s{2,}`)
	spaceAfterNLRe     = regexp.MustCompile(`\n[ \t]+`)
	spaceBeforeNLRe    = regexp.MustCompile(`[ \t]+\n`)
	blankRunRe         = regexp.MustCompile(`\n{3,}`)
	sentenceStartRe    = regexp.MustCompile(`(^|\.\s+)([a-z])`)
	spaceTabRunRe      = regexp.MustCompile(`[ \t]{2,}`)
)

// FormatWordForWord converts raw recognizer output into clean medical text:
// speaker prefixes stripped, spoken commands rendered as punctuation, then
// spacing and sentence capitalization normalized.
func FormatWordForWord(rawText string, cfg WordForWordConfig) string {
	formatted := rawText

	if cfg.RemoveSpeakerPrefixes {
		formatted = speakerPrefixRe.ReplaceAllString(formatted, "")
	}
	if cfg.ConvertSpokenCommands {
		for _, cmd := range spokenCommands {
			formatted = cmd.re.ReplaceAllString(formatted, cmd.replacement)
		}
	}
	if cfg.ApplyMedicalFormatting {
		for _, fix := range medicalFixes {
			formatted = fix.re.ReplaceAllString(formatted, fix.replacement)
		}
	}
	if cfg.CleanSpacing {
		formatted = cleanSpacing(formatted)
	}
	if cfg.CapitalizeSentences {
		formatted = capitalizeSentences(formatted)
	}

	return formatted
}

func cleanSpacing(text string) string {
	cleaned := spaceBeforePunctRe.ReplaceAllString(text, "$1")
	cleaned = multiSpaceRe.ReplaceAllString(cleaned, " ")
	cleaned = spaceAfterNLRe.ReplaceAllString(cleaned, "\n")
	cleaned = spaceBeforeNLRe.ReplaceAllString(cleaned, "\n")
	cleaned = blankRunRe.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

func capitalizeSentences(text string) string {
	capitalized := sentenceStartRe.ReplaceAllStringFunc(text, func(match string) string {
		runes := []rune(match)
		runes[len(runes)-1] = unicode.ToUpper(runes[len(runes)-1])
		return string(runes)
	})

	if capitalized != "" {
		runes := []rune(capitalized)
		runes[0] = unicode.ToUpper(runes[0])
		capitalized = string(runes)
	}
	return capitalized
}

// NormalizeWhitespace is the plain whitespace cleanup used by the section 7
// content templates: blank-line runs collapse to one blank line, runs of
// spaces and tabs collapse to single spaces, edges are trimmed.
func NormalizeWhitespace(text string) string {
	normalized := blankRunRe.ReplaceAllString(text, "\n\n")
	normalized = spaceTabRunRe.ReplaceAllString(normalized, " ")
	lines := strings.Split(normalized, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
