package pipeline

import (
	"regexp"
	"strings"
)

// CleanupProfile controls which cleanup passes run on the dialog text.
type CleanupProfile struct {
	Name                 string
	RemoveFillers        bool
	NormalizeSpacing     bool
	RemoveRepetitions    bool
	PreserveMedicalTerms bool
}

// ProfileDefault scrubs fillers and repetitions aggressively.
var ProfileDefault = CleanupProfile{
	Name:              "default",
	RemoveFillers:     true,
	NormalizeSpacing:  true,
	RemoveRepetitions: true,
}

// ProfileClinicalLight keeps repetitions and guards medical terms; intended
// for clinical review where repeated findings can be meaningful.
var ProfileClinicalLight = CleanupProfile{
	Name:                 "clinical_light",
	RemoveFillers:        true,
	NormalizeSpacing:     true,
	RemoveRepetitions:    false,
	PreserveMedicalTerms: true,
}

// ProfileByName resolves a profile identifier, defaulting to the default
// profile for unknown names.
func ProfileByName(name string) CleanupProfile {
	if name == ProfileClinicalLight.Name {
		return ProfileClinicalLight
	}
	return ProfileDefault
}

var fillerWords = []string{
	"euh", "ah", "oh", "ben", "alors", "donc", "voilà", "enfin", "bref",
	"hein", "quoi", "tu vois", "tu sais", "je veux dire", "genre",
	"um", "uh", "well", "so", "like", "you know", "i mean",
	"basically", "actually", "literally", "obviously", "clearly",
}

var medicalTermHints = []string{
	"douleur", "symptôme", "diagnostic", "traitement", "médicament",
	"pain", "symptom", "diagnosis", "treatment", "medication",
	"mg", "ml", "cc", "mg/kg", "bpm", "mmhg",
}

var (
	fillerRes = func() []*regexp.Regexp {
		res := make([]*regexp.Regexp, 0, len(fillerWords))
		for _, filler := range fillerWords {
			res = append(res, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(filler)+`\b`))
		}
		return res
	}()
	repeatedFillerRe  = regexp.MustCompile(`(?i)\b(euh|um|uh)\s+(euh|um|uh)+`)
	multiSpaceRe      = regexp.MustCompile(`\s+`)
	spaceBeforePunct  = regexp.MustCompile(`\s+([,.!?;:])`)
	spaceBetweenPunct = regexp.MustCompile(`([,.!?;:])\s*([,.!?;:])`)
)

// Clean applies the profile's cleanup passes to each turn and annotates it
// with the mapped role. Turns whose text empties out are dropped.
func Clean(dialog Dialog, roleMap RoleMap, profile CleanupProfile) CleanedDialog {
	var cleaned []CleanedTurn
	for _, turn := range dialog.Turns {
		text := turn.Text
		if profile.RemoveFillers {
			text = removeFillers(text)
		}
		if profile.NormalizeSpacing {
			text = normalizeSpacing(text)
		}
		if profile.RemoveRepetitions {
			text = removeRepetitions(text, profile)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		role := roleMap[turn.Speaker]
		if role == "" {
			role = RolePatient
		}
		cleaned = append(cleaned, CleanedTurn{
			Speaker:    turn.Speaker,
			Role:       role,
			StartTime:  turn.StartTime,
			EndTime:    turn.EndTime,
			Text:       text,
			Confidence: turn.Confidence,
			IsPartial:  turn.IsPartial,
		})
	}

	return CleanedDialog{
		Turns:   cleaned,
		Profile: profile.Name,
		Metadata: CleanupMetadata{
			OriginalTurnCount:  len(dialog.Turns),
			CleanedTurnCount:   len(cleaned),
			RemovedFillers:     countRemovedFillers(dialog.Turns, cleaned),
			RemovedRepetitions: countRepetitions(dialog.Turns),
		},
	}
}

func removeFillers(text string) string {
	cleaned := text
	for _, re := range fillerRes {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	return repeatedFillerRe.ReplaceAllString(cleaned, "")
}

func normalizeSpacing(text string) string {
	text = multiSpaceRe.ReplaceAllString(text, " ")
	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	text = spaceBetweenPunct.ReplaceAllString(text, "$1$2")
	return strings.TrimSpace(text)
}

// removeRepetitions collapses immediately repeated words, keeping the
// duplicate when the profile guards medical terms and the word looks
// medical.
func removeRepetitions(text string, profile CleanupProfile) string {
	words := strings.Fields(text)
	var kept []string
	for i := 0; i < len(words); i++ {
		if i+1 < len(words) && words[i] == words[i+1] {
			if profile.PreserveMedicalTerms && isMedicalTerm(words[i]) {
				kept = append(kept, words[i])
			}
			continue
		}
		kept = append(kept, words[i])
	}
	return strings.Join(kept, " ")
}

func isMedicalTerm(word string) bool {
	lower := strings.ToLower(word)
	for _, term := range medicalTermHints {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// countRemovedFillers estimates filler removal from the text length delta.
func countRemovedFillers(original []Turn, cleaned []CleanedTurn) int {
	var before, after int
	for _, turn := range original {
		before += len(turn.Text)
	}
	for _, turn := range cleaned {
		after += len(turn.Text)
	}
	if before < after {
		return 0
	}
	return before - after
}

func countRepetitions(turns []Turn) int {
	count := 0
	for _, turn := range turns {
		words := strings.Fields(turn.Text)
		for i := 0; i+1 < len(words); i++ {
			if words[i] == words[i+1] {
				count++
			}
		}
	}
	return count
}
