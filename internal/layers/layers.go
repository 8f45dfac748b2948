package layers

import "context"

// Layer name constants. Names are what processing requests reference in
// their layer stacks.
const (
	UniversalCleanupName   = "universal-cleanup-layer"
	ClinicalExtractionName = "clinical-extraction-layer"
)

// Options carries per-request context into a layer.
type Options struct {
	Language string // "fr" or "en"
	Source   string // "ambient" or "smart_dictation"
}

// ClinicalEntities is the structured extraction a layer may produce
// alongside the cleaned text. Slice fields are always non-nil.
type ClinicalEntities struct {
	InjuryLocation        string   `json:"injury_location,omitempty"`
	InjuryType            string   `json:"injury_type,omitempty"`
	OnsetDate             string   `json:"onset,omitempty"`
	PainSeverity          string   `json:"pain_severity,omitempty"`
	FunctionalLimitations []string `json:"functional_limitations"`
	PreviousInjuries      []string `json:"previous_injuries"`
	TreatmentToDate       []string `json:"treatment_to_date"`
	ImagingDone           []string `json:"imaging_done"`
	Language              string   `json:"language"`
	Confidence            *float64 `json:"confidence,omitempty"`
	Issues                []string `json:"issues"`
}

// Result is the uniform layer outcome: cleaned text plus optional entities.
// Success false means the layer's internal enrichment failed; CleanedText is
// still usable (fail-open).
type Result struct {
	Success          bool
	CleanedText      string
	ClinicalEntities ClinicalEntities
	ProcessingMs     int64
	UsedCache        bool
	Error            string
}

// Processor is one text-transform unit in a layer stack.
type Processor interface {
	Name() string
	Process(ctx context.Context, text string, opts Options) Result
}

func sanitizeEntities(e ClinicalEntities) ClinicalEntities {
	if e.FunctionalLimitations == nil {
		e.FunctionalLimitations = []string{}
	}
	if e.PreviousInjuries == nil {
		e.PreviousInjuries = []string{}
	}
	if e.TreatmentToDate == nil {
		e.TreatmentToDate = []string{}
	}
	if e.ImagingDone == nil {
		e.ImagingDone = []string{}
	}
	if e.Issues == nil {
		e.Issues = []string{}
	}
	return e
}
