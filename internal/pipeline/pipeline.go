package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Options parameterizes one batch pipeline run.
type Options struct {
	Language       string // BCP-47 tag recorded in dialog metadata
	CleanupProfile string // "default" or "clinical_light"
	RoleSwap       bool   // swap PATIENT/CLINICIAN for support use
}

// Runner executes the batch transcript pipeline: ingest, merge, role
// mapping, cleanup, narrative.
type Runner struct {
	logger *zap.Logger
}

func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run processes a raw diarized transcript payload into a narrative plus the
// intermediate artifacts. Malformed or incomplete payloads are returned as
// errors; everything downstream of parsing is deterministic and total.
func (r *Runner) Run(ctx context.Context, raw []byte, opts Options) (*Artifacts, error) {
	total := time.Now()

	result, err := ParseTranscript(raw)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	language := opts.Language
	if language == "" {
		language = "fr-CA"
	}

	var timings StageTimings

	stage := time.Now()
	dialog := Ingest(result, language)
	timings.IngestMs = time.Since(stage).Milliseconds()

	stage = time.Now()
	dialog = MergeTurns(dialog)
	timings.MergeMs = time.Since(stage).Milliseconds()

	stage = time.Now()
	roleMap := MapRoles(dialog)
	if opts.RoleSwap {
		roleMap = SwapRoles(roleMap)
	}
	timings.RoleMapMs = time.Since(stage).Milliseconds()

	stage = time.Now()
	cleaned := Clean(dialog, roleMap, ProfileByName(opts.CleanupProfile))
	timings.CleanupMs = time.Since(stage).Milliseconds()

	stage = time.Now()
	narrative := BuildNarrative(cleaned)
	timings.NarrativeMs = time.Since(stage).Milliseconds()

	timings.TotalMs = time.Since(total).Milliseconds()

	r.logger.Info("batch pipeline completed",
		zap.Int("turns", len(dialog.Turns)),
		zap.Int("speakers", dialog.Metadata.SpeakerCount),
		zap.String("format", narrative.Format),
		zap.Int64("duration_ms", timings.TotalMs),
	)

	return &Artifacts{
		Dialog:    dialog,
		RoleMap:   roleMap,
		Cleaned:   cleaned,
		Narrative: narrative,
		Timings:   timings,
	}, nil
}
