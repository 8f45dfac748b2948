package formatter

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/centomomd/dictation-server/domain/repositories"
)

// FormattingOptions parameterizes section-aware CNESST formatting.
type FormattingOptions struct {
	Section            string // "7", "8", "11" or "history_evolution"
	InputLanguage      string // "fr" or "en"
	Complexity         string // "low", "medium" or "high"
	FormattingLevel    string // "basic", "standard" or "advanced"
	IncludeSuggestions bool
}

// Compliance reports which CNESST drafting conventions the output meets.
type Compliance struct {
	CNESST       bool `json:"cnesst"`
	MedicalTerms bool `json:"medical_terms"`
	Structure    bool `json:"structure"`
	Terminology  bool `json:"terminology"`
	Chronology   bool `json:"chronology"`
}

// Statistics summarizes the formatted output.
type Statistics struct {
	WordCount        int `json:"wordCount"`
	SentenceCount    int `json:"sentenceCount"`
	MedicalTermCount int `json:"medicalTermsCount"`
	ComplianceScore  int `json:"complianceScore"`
}

// FormattedContent is the full outcome of a formatting call.
type FormattedContent struct {
	Original    string     `json:"original"`
	Formatted   string     `json:"formatted"`
	Changes     []string   `json:"changes"`
	Suggestions []string   `json:"suggestions"`
	Compliance  Compliance `json:"compliance"`
	Statistics  Statistics `json:"statistics"`
}

var sectionHeaders = map[string]string{
	"7":                 "7. Historique de faits et évolution",
	"8":                 "8. Questionnaire subjectif",
	"11":                "11. Conclusion médicale",
	"history_evolution": "Historique d'évolution",
}

type termReplacement struct {
	re          *regexp.Regexp
	replacement string
	change      string
}

func replacements(pairs [][2]string, changePrefix string) []termReplacement {
	out := make([]termReplacement, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, termReplacement{
			re:          regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p[0]) + `\b`),
			replacement: p[1],
			change:      fmt.Sprintf("%s: %s → %s", changePrefix, p[0], p[1]),
		})
	}
	return out
}

var (
	frenchWorkerTerms = replacements([][2]string{
		{"patiente", "travailleuse"},
		{"patient", "travailleur"},
		{"cliente", "travailleuse"},
		{"client", "travailleur"},
		{"usagère", "travailleuse"},
		{"usager", "travailleur"},
	}, "Standardized French terminology")

	englishWorkerTerms = replacements([][2]string{
		{"client", "worker"},
		{"user", "worker"},
	}, "Standardized English terminology")

	frenchAdvancedTerms = replacements([][2]string{
		{"douleur", "symptomatologie douloureuse"},
		{"mobilité", "amplitude articulaire"},
		{"force", "force musculaire"},
		{"sensibilité", "sensibilité cutanée"},
		{"réflexes", "réflexes ostéotendineux"},
	}, "Enhanced medical terminology")

	medicalLegalTerms = replacements([][2]string{
		{"diagnostic", "diagnostic médical"},
		{"pronostic", "pronostic fonctionnel"},
		{"incapacité", "incapacité fonctionnelle"},
		{"handicap", "limitation fonctionnelle"},
		{"invalidité", "invalidité permanente"},
	}, "Enhanced medical-legal terminology")

	frenchDateRes = []*regexp.Regexp{
		regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`),
		regexp.MustCompile(`(\d{1,2})-(\d{1,2})-(\d{4})`),
		regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})`),
	}

	// Worker-first rewrites: "Le 15 octobre 2023, le travailleur ..."
	// becomes "travailleur le 15 octobre 2023 ...".
	frDateFirstRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(Le|La)\s+(\d{1,2}\s+\p{L}+\s+\d{4}),?\s+(le|la)\s+(travailleur|travailleuse)`),
		regexp.MustCompile(`(?i)(Le|La)\s+(\d{1,2}\s+\p{L}+),?\s+(le|la)\s+(travailleur|travailleuse)`),
		regexp.MustCompile(`(?i)(Le|La)\s+(\d{1,2}),?\s+(le|la)\s+(travailleur|travailleuse)`),
	}
	enDateFirstRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(On|The)\s+(\p{L}+\s+\d{1,2},?\s+\d{4}),?\s+(the)\s+(worker)`),
		regexp.MustCompile(`(?i)(On|The)\s+(\p{L}+\s+\d{1,2}),?\s+(the)\s+(worker)`),
	}

	spaceBeforeSentencePunctRe = regexp.MustCompile(`\s+([.!?])`)
	sentenceBoundaryRe         = regexp.MustCompile(`([.!?])\s*(\p{Lu})`)
	sentenceSplitRe            = regexp.MustCompile(`[.!?]+`)
	medicalVocabularyRe        = regexp.MustCompile(`(?i)\b(diagnostic|traitement|examen|symptôme)\b`)

	degreeRe     = regexp.MustCompile(`(?i)(\d+)\s*degrés?`)
	centimeterRe = regexp.MustCompile(`(?i)(\d+)\s*centimètres?`)
	kilogramRe   = regexp.MustCompile(`(?i)(\d+)\s*kilogrammes?`)
	percentRe    = regexp.MustCompile(`(?i)(\d+)\s*pour\s*cent`)

	statisticsMedicalTerms = []string{
		"travailleur", "travailleuse", "accident", "blessure", "douleur",
		"diagnostic", "traitement", "médical", "clinique", "examen",
		"symptôme", "pronostic", "incapacité", "handicap", "invalidité",
	}
	frenchValidationTerms = []string{
		"travailleur", "travailleuse", "accident", "blessure", "douleur",
		"diagnostic", "traitement", "médical", "clinique", "examen",
	}
	englishValidationTerms = []string{
		"worker", "accident", "injury", "pain", "diagnosis",
		"treatment", "medical", "clinical", "examination",
	}
)

// AIFormattingService applies deterministic CNESST drafting rules per
// section, with an AI pass for the history-evolution pseudo-section.
type AIFormattingService struct {
	completer repositories.ChatCompleter
	model     string
	logger    *zap.Logger
}

func NewAIFormattingService(completer repositories.ChatCompleter, model string, logger *zap.Logger) *AIFormattingService {
	return &AIFormattingService{completer: completer, model: model, logger: logger}
}

// FormatTemplateContent runs the section-specific rules, the French output
// pass, optional advanced formatting, then computes statistics and
// compliance. It never fails; AI errors fall back to deterministic rules.
func (s *AIFormattingService) FormatTemplateContent(ctx context.Context, content string, opts FormattingOptions) FormattedContent {
	var changes, suggestions []string
	formatted := content

	switch opts.Section {
	case "7":
		formatted = s.formatSection7(formatted, &changes, opts)
	case "8":
		formatted = s.formatSection8(formatted, &changes, opts)
	case "11":
		formatted = s.formatSection11(formatted, &changes, opts)
	case "history_evolution":
		formatted = s.formatHistoryEvolution(ctx, formatted, &changes, opts)
	default:
		s.logger.Warn("unknown formatting section", zap.String("section", opts.Section))
	}

	// Output is always French regardless of input language.
	formatted = s.formatFrenchContent(formatted, &changes, opts)

	if opts.FormattingLevel == "advanced" {
		formatted = applyAdvancedFormatting(formatted, &changes, opts)
	}
	if opts.IncludeSuggestions {
		suggestions = append(suggestions, GenerateSuggestions(formatted, opts)...)
	}

	return FormattedContent{
		Original:    content,
		Formatted:   formatted,
		Changes:     changes,
		Suggestions: suggestions,
		Compliance:  validateCompliance(formatted, opts),
		Statistics:  CalculateStatistics(formatted),
	}
}

func (s *AIFormattingService) formatSection7(content string, changes *[]string, opts FormattingOptions) string {
	formatted := content

	if opts.InputLanguage == "fr" {
		if !strings.Contains(formatted, sectionHeaders["7"]) {
			formatted = sectionHeaders["7"] + "\n\n" + formatted
			*changes = append(*changes, "Added Section 7 header (French)")
		}
		formatted = applyReplacements(formatted, frenchWorkerTerms, changes)
		formatted = applyFrenchDates(formatted, changes)
	} else {
		if !strings.Contains(formatted, "7. History of Facts and Evolution") {
			formatted = "7. History of Facts and Evolution\n\n" + formatted
			*changes = append(*changes, "Added Section 7 header (English)")
		}
		formatted = applyReplacements(formatted, englishWorkerTerms, changes)
	}

	if opts.FormattingLevel == "advanced" && opts.InputLanguage == "fr" {
		formatted = applyReplacements(formatted, replacements([][2]string{
			{"blessure", "lésion"},
			{"douleur", "symptomatologie douloureuse"},
			{"accident", "événement traumatique"},
			{"traitement", "prise en charge thérapeutique"},
		}, "Enhanced French medical terminology"), changes)
	}

	return formatted
}

func (s *AIFormattingService) formatSection8(content string, changes *[]string, opts FormattingOptions) string {
	formatted := content

	if !strings.Contains(formatted, sectionHeaders["8"]) {
		formatted = sectionHeaders["8"] + "\n\n" + formatted
		*changes = append(*changes, "Added Section 8 header")
	}

	if strings.Contains(formatted, "Examen:") {
		formatted = strings.ReplaceAll(formatted, "Examen:", "Examen clinique:")
		*changes = append(*changes, "Standardized clinical structure: Examen: → Examen clinique:")
	}
	if strings.Contains(formatted, "Examens:") {
		formatted = strings.ReplaceAll(formatted, "Examens:", "Examens paracliniques:")
		*changes = append(*changes, "Standardized clinical structure: Examens: → Examens paracliniques:")
	}

	if opts.FormattingLevel == "advanced" {
		formatted = applyReplacements(formatted, frenchAdvancedTerms, changes)

		before := formatted
		formatted = degreeRe.ReplaceAllString(formatted, "$1°")
		formatted = centimeterRe.ReplaceAllString(formatted, "$1 cm")
		formatted = kilogramRe.ReplaceAllString(formatted, "$1 kg")
		if formatted != before {
			*changes = append(*changes, "Standardized measurement units")
		}
	}

	return formatted
}

func (s *AIFormattingService) formatSection11(content string, changes *[]string, opts FormattingOptions) string {
	formatted := content

	if !strings.Contains(formatted, sectionHeaders["11"]) {
		formatted = sectionHeaders["11"] + "\n\n" + formatted
		*changes = append(*changes, "Added Section 11 header")
	}

	for _, old := range []string{"Conclusion:", "Résumé:"} {
		if strings.Contains(formatted, old) {
			formatted = strings.ReplaceAll(formatted, old, "Résumé et conclusion:")
			*changes = append(*changes, "Standardized conclusion structure: "+old+" → Résumé et conclusion:")
		}
	}

	if opts.FormattingLevel == "advanced" {
		formatted = applyReplacements(formatted, medicalLegalTerms, changes)

		before := formatted
		formatted = percentRe.ReplaceAllString(formatted, "$1%")
		if formatted != before {
			*changes = append(*changes, "Standardized percentage format")
		}
	}

	return formatted
}

const historyEvolutionPrompt = `Tu es un assistant de rédaction médicale pour des rapports CNESST.
Reformate le texte dicté en un historique d'évolution conforme:
le travailleur d'abord, puis la date; terminologie médicale préservée;
citations conservées mot à mot; aucune information ajoutée ni retirée.`

func (s *AIFormattingService) formatHistoryEvolution(ctx context.Context, content string, changes *[]string, opts FormattingOptions) string {
	if s.completer != nil {
		result, err := s.completer.Complete(ctx, repositories.CompletionRequest{
			Model:        s.model,
			SystemPrompt: historyEvolutionPrompt,
			UserContent:  content,
			Temperature:  0.2,
			MaxTokens:    4000,
		})
		if err == nil && result.Text != "" {
			*changes = append(*changes,
				"Applied AI formatting",
				"Applied worker-first rule via AI",
				"Applied chronological structure via AI",
			)
			return result.Text
		}
		if err != nil {
			s.logger.Warn("history evolution AI formatting failed, using deterministic fallback", zap.Error(err))
		}
	}

	formatted := content
	if opts.InputLanguage == "fr" {
		if !strings.Contains(formatted, sectionHeaders["history_evolution"]) {
			formatted = sectionHeaders["history_evolution"] + "\n\n" + formatted
			*changes = append(*changes, "Added History of Evolution header (French)")
		}
		formatted = applyReplacements(formatted, frenchWorkerTerms, changes)
		formatted = applyWorkerFirst(formatted, frDateFirstRes, changes)
	} else {
		if !strings.Contains(formatted, "History of Evolution") {
			formatted = "History of Evolution\n\n" + formatted
			*changes = append(*changes, "Added History of Evolution header (English)")
		}
		formatted = applyReplacements(formatted, englishWorkerTerms, changes)
		formatted = applyWorkerFirst(formatted, enDateFirstRes, changes)
	}

	if !strings.Contains(formatted, "\n\n") {
		formatted = strings.ReplaceAll(formatted, "\n", "\n\n")
		*changes = append(*changes, "Applied proper paragraph spacing")
	}
	return formatted
}

func (s *AIFormattingService) formatFrenchContent(content string, changes *[]string, opts FormattingOptions) string {
	formatted := applyReplacements(content, frenchWorkerTerms, changes)
	return applyFrenchDates(formatted, changes)
}

func applyReplacements(content string, terms []termReplacement, changes *[]string) string {
	for _, t := range terms {
		if t.re.MatchString(content) {
			content = t.re.ReplaceAllString(content, t.replacement)
			*changes = append(*changes, t.change)
		}
	}
	return content
}

func applyFrenchDates(content string, changes *[]string) string {
	for _, re := range frenchDateRes {
		if re.MatchString(content) {
			content = re.ReplaceAllString(content, "le $1 $2 $3")
			*changes = append(*changes, "Applied French date format")
		}
	}
	return content
}

func applyWorkerFirst(content string, patterns []*regexp.Regexp, changes *[]string) string {
	for i, re := range patterns {
		if re.MatchString(content) {
			content = re.ReplaceAllString(content, "$4 $3 $2")
			*changes = append(*changes, fmt.Sprintf("Applied chronological structure (pattern %d): worker-first, then date", i+1))
		}
	}
	return content
}

func applyAdvancedFormatting(content string, changes *[]string, opts FormattingOptions) string {
	formatted := whitespaceRunRe.ReplaceAllString(content, " ")
	formatted = spaceBeforeSentencePunctRe.ReplaceAllString(formatted, "$1")
	formatted = sentenceBoundaryRe.ReplaceAllString(formatted, "$1 $2")

	if opts.InputLanguage == "fr" {
		formatted = applyReplacements(formatted, frenchAdvancedTerms, changes)
	}
	*changes = append(*changes, "Applied advanced formatting rules")
	return formatted
}

// GenerateSuggestions lists drafting improvements without applying them.
func GenerateSuggestions(content string, opts FormattingOptions) []string {
	var suggestions []string

	if header, ok := sectionHeaders[opts.Section]; ok && !strings.Contains(content, header) {
		suggestions = append(suggestions, fmt.Sprintf("Add section header: %q", header))
	}
	if strings.Contains(content, "patient") {
		suggestions = append(suggestions, "Replace 'patient' with 'travailleur/travailleuse'")
	}
	if opts.Section == "7" && !strings.Contains(content, "le ") {
		suggestions = append(suggestions, "Add chronological indicators (le + date)")
	}
	if !medicalVocabularyRe.MatchString(content) {
		suggestions = append(suggestions, "Consider adding medical terminology")
	}
	if opts.Section == "8" && !strings.Contains(content, "Examen clinique") {
		suggestions = append(suggestions, "Add 'Examen clinique' section")
	}
	return suggestions
}

// CalculateStatistics computes word, sentence and medical term counts plus
// a 0-100 compliance score.
func CalculateStatistics(content string) Statistics {
	words := strings.Fields(content)

	sentenceCount := 0
	for _, s := range sentenceSplitRe.Split(content, -1) {
		if strings.TrimSpace(s) != "" {
			sentenceCount++
		}
	}

	lower := strings.ToLower(content)
	medicalTermCount := 0
	for _, term := range statisticsMedicalTerms {
		if strings.Contains(lower, term) {
			medicalTermCount++
		}
	}

	score := 0
	if strings.Contains(content, sectionHeaders["7"]) ||
		strings.Contains(content, sectionHeaders["8"]) ||
		strings.Contains(content, sectionHeaders["11"]) {
		score += 25
	}
	if medicalTermCount > 0 {
		score += 25
	}
	if strings.Contains(content, "travailleur") || strings.Contains(content, "travailleuse") {
		score += 25
	}
	if strings.Contains(content, "le ") || strings.Contains(content, "Le ") {
		score += 25
	}

	return Statistics{
		WordCount:        len(words),
		SentenceCount:    sentenceCount,
		MedicalTermCount: medicalTermCount,
		ComplianceScore:  score,
	}
}

func validateCompliance(content string, opts FormattingOptions) Compliance {
	hasStructure := strings.Contains(content, sectionHeaders[opts.Section])
	hasMedicalTerms := validateMedicalTerms(content, opts.InputLanguage)
	hasProperTerminology := !strings.Contains(content, "patient") && !strings.Contains(content, "patiente")
	hasChronology := strings.Contains(content, "le ") || strings.Contains(content, "Le ")

	return Compliance{
		CNESST:       hasStructure && hasMedicalTerms,
		MedicalTerms: hasMedicalTerms,
		Structure:    hasStructure,
		Terminology:  hasProperTerminology,
		Chronology:   hasChronology,
	}
}

func validateMedicalTerms(content, language string) bool {
	terms := englishValidationTerms
	if language == "fr" {
		terms = frenchValidationTerms
	}
	lower := strings.ToLower(content)
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
