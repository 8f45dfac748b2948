package formatter

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Markers protecting verbatim spans from later formatting passes.
const (
	VerbatimStart = "___VERBATIM_START___"
	VerbatimEnd   = "___VERBATIM_END___"
)

// Mode1Options controls deterministic word-for-word formatting with voice
// commands and verbatim protection.
type Mode1Options struct {
	Language         string // "fr" or "en"
	QuoteStyle       string // "smart" or "straight"
	RadiologyMode    bool
	PreserveVerbatim bool
}

// VerbatimBlock records one protected span in the formatted output.
type VerbatimBlock struct {
	Content string `json:"content"`
	Type    string `json:"type"` // basic, radiology, quotes, technical, lab, diagnosis, prescription
}

// Mode1Result is the outcome of a Mode 1 formatting pass.
type Mode1Result struct {
	Formatted      string          `json:"formatted"`
	Issues         []string        `json:"issues"`
	VerbatimBlocks []VerbatimBlock `json:"verbatim_blocks"`
}

type verbatimCommand struct {
	kind string // "open", "close", "customOpen", "customClose"
	key  string
}

type customVerbatim struct {
	trigger string
	end     string
	key     string
}

var (
	frOpen  = []string{"ouvrir parenthèse", "ouvrir parenthese", "début verbatim", "debut verbatim", "commencer verbatim"}
	frClose = []string{"fermer parenthèse", "fermer parenthese", "fin verbatim", "terminer verbatim"}
	enOpen  = []string{"open parenthesis", "start verbatim"}
	enClose = []string{"close parenthesis", "end verbatim"}

	frCustom = []customVerbatim{
		{"rapport radiologique", "fin rapport", "radiology"},
		{"citation patient", "fin citation", "quotes"},
		{"spécifications techniques", "fin spécifications", "technical"},
		{"résultats laboratoire", "fin résultats", "lab"},
		{"diagnostic médical", "fin diagnostic", "diagnosis"},
		{"prescription exacte", "fin prescription", "prescription"},
	}
	enCustom = []customVerbatim{
		{"radiology report", "end report", "radiology"},
		{"patient quote", "end quote", "quotes"},
		{"lab results", "end results", "lab"},
	}

	frCoreCommands = map[string][]string{
		"paragraph.break":   {"nouveau paragraphe", "paragraphe"},
		"stream.pause":      {"pause", "pause transcription"},
		"stream.resume":     {"reprendre", "reprendre transcription", "continuer"},
		"buffer.clear":      {"effacer", "vider"},
		"doc.save":          {"sauvegarder", "enregistrer"},
		"doc.export":        {"export", "exporter"},
		"undo":              {"annuler", "retour"},
		"format.cnesst":     {"formatage médical", "formatage cnesst", "format cnesst"},
		"validation":        {"validation", "valider", "vérifier"},
		"custom.vocabulary": {"vocabulaire personnalisé", "vocabulaire médical"},
		"template.load":     {"charger template", "template"},
	}
	enCoreCommands = map[string][]string{
		"paragraph.break":   {"new paragraph", "paragraph"},
		"stream.pause":      {"pause", "pause transcription"},
		"stream.resume":     {"resume", "resume transcription", "continue"},
		"buffer.clear":      {"clear", "erase"},
		"doc.save":          {"save"},
		"doc.export":        {"export"},
		"undo":              {"undo", "go back"},
		"format.cnesst":     {"medical formatting", "cnesst formatting", "format cnesst"},
		"validation":        {"validation", "validate", "verify"},
		"custom.vocabulary": {"custom vocabulary", "medical vocabulary"},
		"template.load":     {"load template", "template"},
	}

	commandMarkers = map[string]string{
		"stream.pause":      "[PAUSE]",
		"stream.resume":     "[RESUME]",
		"buffer.clear":      "[CLEAR]",
		"doc.save":          "[SAVE]",
		"doc.export":        "[EXPORT]",
		"undo":              "[UNDO]",
		"format.cnesst":     "[CNESST_FORMAT]",
		"validation":        "[VALIDATION]",
		"custom.vocabulary": "[CUSTOM_VOCABULARY]",
		"template.load":     "[LOAD_TEMPLATE]",
	}

	sectionSwitchRe  = regexp.MustCompile(`^section\s+(\d{1,2})$`)
	nonAlnumRe       = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	whitespaceRunRe  = regexp.MustCompile(`\s+`)
	tripleBlankRe    = regexp.MustCompile(`\n\s*\n\s*\n`)
	markerCleanupRe  = regexp.MustCompile(`\[(PAUSE|RESUME|CLEAR|SAVE|EXPORT|UNDO|CNESST_FORMAT|VALIDATION|CUSTOM_VOCABULARY|LOAD_TEMPLATE|SECTION_\d+)\]`)
	radiologyBlockRe = regexp.MustCompile(`(?is)rapport radiologique.*?fin rapport`)
	punctSpacingRe   = regexp.MustCompile(`\s*([,.!?;:])\s*`)
	straightQuoteRe  = regexp.MustCompile(`"([^"]*)"`)
	singleQuoteRe    = regexp.MustCompile(`'([^']*)'`)

	spokenPunctuation = []struct {
		re   *regexp.Regexp
		mark string
	}{
		{regexp.MustCompile(`\bcomma\b`), ","},
		{regexp.MustCompile(`\bperiod\b`), "."},
		{regexp.MustCompile(`\bcolon\b`), ":"},
		{regexp.MustCompile(`\bsemicolon\b`), ";"},
		{regexp.MustCompile(`\bexclamation\b`), "!"},
		{regexp.MustCompile(`\bquestion\b`), "?"},
	}
)

// Mode1Formatter turns raw dictation into punctuated text while protecting
// spans the clinician flagged as verbatim. A single instance is safe for
// concurrent use; parsing state lives in the per-call run.
type Mode1Formatter struct{}

func NewMode1Formatter() *Mode1Formatter {
	return &Mode1Formatter{}
}

// mode1Run holds the parsing state of one Format call.
type mode1Run struct {
	verbatimOpen bool
	customOpen   string
	blocks       []VerbatimBlock
}

// Format runs the four deterministic passes: verbatim and voice command
// handling, punctuation, radiology protection, cleanup.
func (f *Mode1Formatter) Format(transcript string, opts Mode1Options) Mode1Result {
	run := &mode1Run{}

	formatted := run.processVerbatimBlocks(transcript, opts)
	formatted = applyPunctuationRules(formatted, opts)
	if opts.RadiologyMode {
		formatted = applyRadiologyFormatting(formatted)
	}
	formatted = finalizeFormatting(formatted)

	return Mode1Result{
		Formatted:      formatted,
		Issues:         []string{},
		VerbatimBlocks: run.blocks,
	}
}

func (f *mode1Run) processVerbatimBlocks(text string, opts Mode1Options) string {
	lines := strings.Split(text, "\n")
	processed := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if cmd := detectVerbatimCommand(trimmed, opts.Language); cmd != nil {
			switch cmd.kind {
			case "open":
				f.verbatimOpen = true
			case "close":
				f.verbatimOpen = false
			case "customOpen":
				f.customOpen = cmd.key
			case "customClose":
				f.customOpen = ""
			}
			// The command itself never reaches the output.
			processed = append(processed, "")
			continue
		}

		if intent, arg, ok := detectCoreCommand(trimmed, opts.Language); ok {
			processed = append(processed, renderCoreCommand(intent, arg))
			continue
		}

		if f.verbatimOpen || f.customOpen != "" {
			processed = append(processed, f.protectVerbatim(trimmed))
		} else {
			processed = append(processed, trimmed)
		}
	}

	return strings.Join(processed, "\n")
}

func (f *mode1Run) protectVerbatim(text string) string {
	if text == "" {
		return text
	}
	blockType := f.customOpen
	if blockType == "" {
		blockType = "basic"
	}
	f.blocks = append(f.blocks, VerbatimBlock{Content: text, Type: blockType})
	return VerbatimStart + " " + text + " " + VerbatimEnd
}

func detectVerbatimCommand(text, language string) *verbatimCommand {
	normalized := normalizeForCommands(text)

	open, closing, custom := enOpen, enClose, enCustom
	if language == "fr" {
		open, closing, custom = frOpen, frClose, frCustom
	}

	for _, cmd := range open {
		if normalized == normalizeForCommands(cmd) {
			return &verbatimCommand{kind: "open"}
		}
	}
	for _, cmd := range closing {
		if normalized == normalizeForCommands(cmd) {
			return &verbatimCommand{kind: "close"}
		}
	}
	for _, c := range custom {
		if normalized == normalizeForCommands(c.trigger) {
			return &verbatimCommand{kind: "customOpen", key: c.key}
		}
		if normalized == normalizeForCommands(c.end) {
			return &verbatimCommand{kind: "customClose", key: c.key}
		}
	}
	return nil
}

func detectCoreCommand(text, language string) (intent, arg string, ok bool) {
	normalized := normalizeForCommands(text)

	commands := enCoreCommands
	if language == "fr" {
		commands = frCoreCommands
	}

	// Stable intent order so overlapping phrases resolve predictably.
	for _, candidate := range []string{
		"paragraph.break", "stream.pause", "stream.resume", "buffer.clear",
		"doc.save", "doc.export", "undo", "format.cnesst", "validation",
		"custom.vocabulary", "template.load",
	} {
		for _, phrase := range commands[candidate] {
			if normalized == normalizeForCommands(phrase) {
				return candidate, "", true
			}
		}
	}

	if m := sectionSwitchRe.FindStringSubmatch(normalized); m != nil {
		return "section.switch", m[1], true
	}
	return "", "", false
}

func renderCoreCommand(intent, arg string) string {
	if intent == "paragraph.break" {
		return "\n\n"
	}
	if intent == "section.switch" {
		return "[SECTION_" + arg + "]"
	}
	if marker, ok := commandMarkers[intent]; ok {
		return marker
	}
	return ""
}

func applyPunctuationRules(text string, opts Mode1Options) string {
	formatted := text

	for _, cmd := range spokenPunctuation {
		formatted = cmd.re.ReplaceAllString(formatted, cmd.mark)
	}

	if opts.QuoteStyle == "smart" {
		formatted = straightQuoteRe.ReplaceAllString(formatted, "“$1”")
		formatted = singleQuoteRe.ReplaceAllString(formatted, "‘$1’")
	}

	formatted = punctSpacingRe.ReplaceAllString(formatted, "$1 ")
	formatted = whitespaceRunRe.ReplaceAllString(formatted, " ")
	return strings.TrimSpace(formatted)
}

func applyRadiologyFormatting(text string) string {
	return radiologyBlockRe.ReplaceAllStringFunc(text, func(match string) string {
		return VerbatimStart + " " + match + " " + VerbatimEnd
	})
}

func finalizeFormatting(text string) string {
	formatted := tripleBlankRe.ReplaceAllString(text, "\n\n")
	formatted = markerCleanupRe.ReplaceAllString(formatted, "")
	return strings.TrimSpace(formatted)
}

// normalizeForCommands lowercases, strips accents and punctuation, and
// collapses whitespace so command detection tolerates recognizer variance.
func normalizeForCommands(text string) string {
	lowered := strings.ToLower(text)
	decomposed := norm.NFD.String(lowered)
	stripped := strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, decomposed)
	cleaned := nonAlnumRe.ReplaceAllString(stripped, " ")
	cleaned = whitespaceRunRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
