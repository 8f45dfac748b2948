package pipeline

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	itemPronunciation = "pronunciation"
	itemPunctuation   = "punctuation"
)

// directAttachPunct attaches to the preceding word without a space.
var directAttachPunct = map[string]bool{
	".": true, ",": true, "?": true, "!": true, ";": true, ":": true,
}

// Ingest converts a diarized transcript into a dialog of speaker turns.
// Each diarization segment is matched against the pronunciation items it
// overlaps in time; punctuation items between words are folded into the
// segment text. Segments that yield no text are dropped.
func Ingest(result *TranscribeResult, language string) Dialog {
	var turns []Turn

	for _, segment := range result.SpeakerLabels.Segments {
		segStart := parseSeconds(segment.StartTime)
		text, endTime := extractSegmentText(segment, result.Results.Items)
		if strings.TrimSpace(text) == "" {
			continue
		}

		turns = append(turns, Turn{
			Speaker:    segment.SpeakerLabel,
			StartTime:  segStart,
			EndTime:    endTime,
			Text:       text,
			Confidence: segmentConfidence(segment, result.Results.Items),
		})
	}

	sort.SliceStable(turns, func(i, j int) bool {
		return turns[i].StartTime < turns[j].StartTime
	})

	return Dialog{
		Turns: turns,
		Metadata: DialogMetadata{
			Source:        "aws_transcribe",
			Language:      language,
			TotalDuration: totalDuration(turns),
			SpeakerCount:  countDistinctSpeakers(turns),
			CreatedAt:     time.Now().UTC(),
		},
	}
}

type segmentWord struct {
	content   string
	startTime float64
	endTime   float64
	index     int
}

func extractSegmentText(segment SpeakerSegment, items []TranscriptItem) (string, float64) {
	segStart := parseSeconds(segment.StartTime)
	segEnd := parseSeconds(segment.EndTime)

	var words []segmentWord
	for i, item := range items {
		if item.Type != itemPronunciation || len(item.Alternatives) == 0 || item.Alternatives[0].Content == "" {
			continue
		}
		itemStart := parseSeconds(item.StartTime)
		itemEnd := parseSeconds(item.EndTime)
		if itemStart < segEnd && itemEnd > segStart {
			words = append(words, segmentWord{
				content:   item.Alternatives[0].Content,
				startTime: itemStart,
				endTime:   itemEnd,
				index:     i,
			})
		}
	}

	if len(words) == 0 {
		return "", segStart
	}

	sort.SliceStable(words, func(i, j int) bool {
		return words[i].startTime < words[j].startTime
	})

	var text string
	lastEnd := segStart
	for _, word := range words {
		if text != "" {
			text += " "
		}
		text += word.content
		lastEnd = word.endTime

		// Attach punctuation items that follow this word, stopping at the
		// next pronunciation.
		for j := word.index + 1; j < len(items); j++ {
			next := items[j]
			if next.Type == itemPronunciation {
				break
			}
			if next.Type != itemPunctuation || len(next.Alternatives) == 0 {
				continue
			}
			punct := next.Alternatives[0].Content
			if strings.TrimSpace(punct) == "" {
				continue
			}
			if !strings.HasSuffix(text, punct) {
				text = joinWordAndPunct(text, punct)
			}
		}
	}

	return strings.TrimSpace(text), lastEnd
}

func joinWordAndPunct(prev, punct string) string {
	if prev == "" {
		return punct
	}
	trimmed := strings.TrimRight(prev, " ")
	if directAttachPunct[punct] {
		return trimmed + punct
	}
	return trimmed + " " + punct
}

// segmentConfidence is the duration-weighted average confidence of the
// pronunciation items overlapping the segment.
func segmentConfidence(segment SpeakerSegment, items []TranscriptItem) float64 {
	segStart := parseSeconds(segment.StartTime)
	segEnd := parseSeconds(segment.EndTime)

	var totalConfidence, total float64
	for _, item := range items {
		if item.Type != itemPronunciation {
			continue
		}
		itemStart := parseSeconds(item.StartTime)
		itemEnd := parseSeconds(item.EndTime)
		if itemStart >= segEnd || itemEnd <= segStart {
			continue
		}
		duration := itemEnd - itemStart
		confidence := 0.0
		if len(item.Alternatives) > 0 {
			confidence = parseSeconds(item.Alternatives[0].Confidence)
		}
		totalConfidence += confidence * duration
		total += duration
	}

	if total <= 0 {
		return 0
	}
	return totalConfidence / total
}

func totalDuration(turns []Turn) float64 {
	if len(turns) == 0 {
		return 0
	}
	return turns[len(turns)-1].EndTime
}

func countDistinctSpeakers(turns []Turn) int {
	speakers := make(map[string]struct{})
	for _, turn := range turns {
		speakers[turn.Speaker] = struct{}{}
	}
	return len(speakers)
}

func parseSeconds(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
