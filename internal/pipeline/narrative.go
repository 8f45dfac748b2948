package pipeline

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// Turns at or above this duration end their paragraph.
	paragraphBreakSeconds = 12.0
	maxLineLength         = 80
)

var sentenceEndRe = regexp.MustCompile(`[.!?]$`)

// BuildNarrative renders the cleaned dialog as text. Dialogs with both
// roles present use role-prefixed lines; single-role dialogs render as one
// block.
func BuildNarrative(cleaned CleanedDialog) Narrative {
	format := FormatSingleBlock
	if len(uniqueRoles(cleaned)) == 2 {
		format = FormatRolePrefixed
	}

	var lines []string
	for _, turn := range cleaned.Turns {
		text := formatTurnText(turn.Text)
		if format == FormatRolePrefixed {
			lines = append(lines, turn.Role+": "+text)
		} else {
			lines = append(lines, text)
		}
		if turn.EndTime-turn.StartTime >= paragraphBreakSeconds {
			lines = append(lines, "")
		}
	}

	content := strings.TrimRight(strings.Join(lines, "\n"), "\n")

	return Narrative{
		Format:   format,
		Content:  content,
		Metadata: narrativeMetadata(cleaned),
	}
}

func uniqueRoles(cleaned CleanedDialog) []string {
	seen := make(map[string]struct{})
	var roles []string
	for _, turn := range cleaned.Turns {
		if _, ok := seen[turn.Role]; ok {
			continue
		}
		seen[turn.Role] = struct{}{}
		roles = append(roles, turn.Role)
	}
	return roles
}

func formatTurnText(text string) string {
	formatted := strings.TrimSpace(text)
	if formatted == "" {
		return formatted
	}

	runes := []rune(formatted)
	runes[0] = unicode.ToUpper(runes[0])
	formatted = string(runes)

	if !sentenceEndRe.MatchString(formatted) {
		formatted += "."
	}

	if maxLineLength > 0 && len(formatted) > maxLineLength {
		formatted = wrapText(formatted, maxLineLength)
	}
	return formatted
}

func wrapText(text string, maxLength int) string {
	words := strings.Split(text, " ")
	var lines []string
	var current string

	for _, word := range words {
		if len(current)+len(word)+1 <= maxLength {
			if current != "" {
				current += " "
			}
			current += word
			continue
		}
		if current != "" {
			lines = append(lines, current)
		}
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return strings.Join(lines, "\n")
}

func narrativeMetadata(cleaned CleanedDialog) NarrativeMetadata {
	speakers := make(map[string]struct{})
	var patientTurns, clinicianTurns, wordCount int
	var duration float64

	for _, turn := range cleaned.Turns {
		speakers[turn.Speaker] = struct{}{}
		switch turn.Role {
		case RolePatient:
			patientTurns++
		case RoleClinician:
			clinicianTurns++
		}
		wordCount += len(strings.Fields(turn.Text))
		duration = turn.EndTime
	}

	return NarrativeMetadata{
		TotalSpeakers:  len(speakers),
		PatientTurns:   patientTurns,
		ClinicianTurns: clinicianTurns,
		TotalDuration:  duration,
		WordCount:      wordCount,
	}
}
