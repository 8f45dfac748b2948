package pipeline

import "strings"

// Merge consolidation thresholds.
const (
	maxGapSeconds   = 1.0
	maxTurnDuration = 15.0
)

// MergeTurns consolidates adjacent turns from the same speaker. Two turns
// merge when the gap between them is within maxGapSeconds and the combined
// turn stays under maxTurnDuration.
func MergeTurns(dialog Dialog) Dialog {
	if len(dialog.Turns) == 0 {
		return dialog
	}

	var merged []Turn
	current := dialog.Turns[0]

	for _, turn := range dialog.Turns[1:] {
		if canMerge(current, turn) && turn.EndTime-current.StartTime <= maxTurnDuration {
			current = mergeTwo(current, turn)
			continue
		}
		merged = append(merged, current)
		current = turn
	}
	merged = append(merged, current)

	dialog.Turns = merged
	return dialog
}

func canMerge(a, b Turn) bool {
	if a.Speaker != b.Speaker {
		return false
	}
	return b.StartTime-a.EndTime <= maxGapSeconds
}

func mergeTwo(a, b Turn) Turn {
	textA := strings.TrimSpace(a.Text)
	textB := strings.TrimSpace(b.Text)

	tokensA := len(strings.Fields(textA))
	tokensB := len(strings.Fields(textB))
	total := tokensA + tokensB
	confidence := a.Confidence
	if total > 0 {
		confidence = (a.Confidence*float64(tokensA) + b.Confidence*float64(tokensB)) / float64(total)
	}

	return Turn{
		Speaker:    a.Speaker,
		StartTime:  a.StartTime,
		EndTime:    b.EndTime,
		Text:       textA + " " + textB,
		Confidence: confidence,
		IsPartial:  a.IsPartial || b.IsPartial,
	}
}
