package pipeline

import (
	"encoding/json"
	"fmt"
	"time"
)

// Speaker roles assigned by the role-mapping stage.
const (
	RolePatient   = "PATIENT"
	RoleClinician = "CLINICIAN"
)

// Turn is one speaker turn in the intermediate dialog representation.
type Turn struct {
	Speaker    string  `json:"speaker"`
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	IsPartial  bool    `json:"isPartial,omitempty"`
}

// Dialog is the structured form of a diarized transcript.
type Dialog struct {
	Turns    []Turn         `json:"turns"`
	Metadata DialogMetadata `json:"metadata"`
}

type DialogMetadata struct {
	Source        string    `json:"source"`
	Language      string    `json:"language"`
	TotalDuration float64   `json:"totalDuration"`
	SpeakerCount  int       `json:"speakerCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// RoleMap assigns a role to each diarized speaker label.
type RoleMap map[string]string

// CleanedTurn is a role-annotated turn after text cleanup.
type CleanedTurn struct {
	Speaker    string  `json:"speaker"`
	Role       string  `json:"role"`
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	IsPartial  bool    `json:"isPartial,omitempty"`
}

type CleanedDialog struct {
	Turns    []CleanedTurn   `json:"turns"`
	Profile  string          `json:"profile"`
	Metadata CleanupMetadata `json:"metadata"`
}

type CleanupMetadata struct {
	OriginalTurnCount  int `json:"originalTurnCount"`
	CleanedTurnCount   int `json:"cleanedTurnCount"`
	RemovedFillers     int `json:"removedFillers"`
	RemovedRepetitions int `json:"removedRepetitions"`
}

// Narrative format identifiers.
const (
	FormatSingleBlock  = "single_block"
	FormatRolePrefixed = "role_prefixed"
)

// Narrative is the final textual output of the batch pipeline.
type Narrative struct {
	Format   string            `json:"format"`
	Content  string            `json:"content"`
	Metadata NarrativeMetadata `json:"metadata"`
}

type NarrativeMetadata struct {
	TotalSpeakers  int     `json:"totalSpeakers"`
	PatientTurns   int     `json:"patientTurns"`
	ClinicianTurns int     `json:"clinicianTurns"`
	TotalDuration  float64 `json:"totalDuration"`
	WordCount      int     `json:"wordCount"`
}

// TranscribeResult is the diarized transcript JSON produced by AWS
// Transcribe batch jobs.
type TranscribeResult struct {
	SpeakerLabels *SpeakerLabels `json:"speaker_labels"`
	Results       *ResultItems   `json:"results"`
}

type SpeakerLabels struct {
	Segments []SpeakerSegment `json:"segments"`
}

type SpeakerSegment struct {
	StartTime    string        `json:"start_time"`
	EndTime      string        `json:"end_time"`
	SpeakerLabel string        `json:"speaker_label"`
	Items        []SegmentItem `json:"items"`
}

type SegmentItem struct {
	StartTime    string `json:"start_time,omitempty"`
	EndTime      string `json:"end_time,omitempty"`
	SpeakerLabel string `json:"speaker_label"`
}

type ResultItems struct {
	Items []TranscriptItem `json:"items"`
}

type TranscriptItem struct {
	StartTime    string            `json:"start_time,omitempty"`
	EndTime      string            `json:"end_time,omitempty"`
	Alternatives []ItemAlternative `json:"alternatives"`
	Type         string            `json:"type"` // "pronunciation" or "punctuation"
}

type ItemAlternative struct {
	Confidence string `json:"confidence"`
	Content    string `json:"content"`
}

// ParseTranscript decodes a raw diarized transcript payload. Malformed JSON
// and payloads missing diarization or item data are hard errors; the batch
// pipeline cannot proceed without them.
func ParseTranscript(raw []byte) (*TranscribeResult, error) {
	var result TranscribeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("invalid transcript JSON: %w", err)
	}
	if result.SpeakerLabels == nil || len(result.SpeakerLabels.Segments) == 0 {
		return nil, fmt.Errorf("invalid transcript: missing speaker_labels")
	}
	if result.Results == nil || len(result.Results.Items) == 0 {
		return nil, fmt.Errorf("invalid transcript: missing results items")
	}
	return &result, nil
}

// StageTimings records per-stage latency for one pipeline run.
type StageTimings struct {
	IngestMs    int64 `json:"s1_ingest"`
	MergeMs     int64 `json:"s2_merge"`
	RoleMapMs   int64 `json:"s3_role_map"`
	CleanupMs   int64 `json:"s4_cleanup"`
	NarrativeMs int64 `json:"s5_narrative"`
	TotalMs     int64 `json:"total"`
}

// Artifacts bundles the intermediate products of one pipeline run.
type Artifacts struct {
	Dialog    Dialog        `json:"ir"`
	RoleMap   RoleMap       `json:"roleMap"`
	Cleaned   CleanedDialog `json:"cleaned"`
	Narrative Narrative     `json:"narrative"`
	Timings   StageTimings  `json:"processingTime"`
}
