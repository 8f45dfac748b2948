package repositories

import "context"

// SpeechToText abstracts streaming speech recognition services
type SpeechToText interface {
	// StartStream opens a streaming transcription session for one dictation.
	// Recognition events are delivered through onResult in upstream order;
	// onError fires at most once per fatal stream error.
	StartStream(ctx context.Context, sessionID string, config StreamConfig, onResult func(TranscriptEvent), onError func(error)) (StreamSession, error)
	// Status returns provider identity for startup logging and health checks.
	Status() ServiceStatus
}

// StreamConfig represents the upstream session configuration resolved from a
// dictation mode.
type StreamConfig struct {
	LanguageCode            string `json:"language_code"`
	MediaSampleRateHz       int    `json:"media_sample_rate_hz"`
	ShowSpeakerLabels       bool   `json:"show_speaker_labels"`
	PartialResultsStability string `json:"partial_results_stability"` // "low", "medium", "high"
	VocabularyName          string `json:"vocabulary_name,omitempty"`
}

// TranscriptEvent is one recognition event relayed from the upstream service.
// ResultID is stable across partial→final revisions of the same utterance.
type TranscriptEvent struct {
	ResultID         string
	StartTime        *float64
	EndTime          *float64
	Transcript       string
	IsPartial        bool
	LanguageDetected string
	Confidence       *float64
	Speaker          string // populated only when speaker labels are enabled
}

// StreamSession is a handle on one live upstream stream.
// Lifecycle: streaming → ended, no transition back. PushAudio after EndAudio
// is a no-op; EndAudio is idempotent so it may be called from both a stop
// message and the connection close path.
type StreamSession interface {
	PushAudio(chunk []byte) error
	EndAudio()
}

// ServiceStatus reports provider identity for health endpoints and logs.
type ServiceStatus struct {
	Provider string `json:"provider"`
	Region   string `json:"region"`
}
