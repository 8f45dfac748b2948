package processing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/centomomd/dictation-server/internal/layers"
	"github.com/centomomd/dictation-server/internal/pipeline"
	"github.com/centomomd/dictation-server/internal/registry"
)

const defaultCorrelationID = "no-correlation-id"

// RequestOptions carries fallback hints that ride along with a request.
type RequestOptions struct {
	FallbackMode     string `json:"fallbackMode,omitempty"`
	FallbackTemplate string `json:"fallbackTemplate,omitempty"`
	PromptHash       string `json:"prompt_hash,omitempty"`
}

// Request is one orchestration call.
type Request struct {
	SectionID       string         `json:"sectionId"`
	ModeID          string         `json:"modeId"`
	Language        string         `json:"language"`
	Content         string         `json:"content"`
	TemplateID      string         `json:"templateId,omitempty"`
	TemplateVersion string         `json:"templateVersion,omitempty"`
	LayerStack      []string       `json:"layerStack,omitempty"`
	Model           string         `json:"model,omitempty"`
	Seed            *int64         `json:"seed,omitempty"`
	Temperature     *float64       `json:"temperature,omitempty"`
	CorrelationID   string         `json:"correlationId,omitempty"`
	Options         RequestOptions `json:"options,omitempty"`
}

// Metadata describes what happened during processing.
type Metadata struct {
	SectionID        string   `json:"sectionId"`
	ModeID           string   `json:"modeId"`
	TemplateID       string   `json:"templateId,omitempty"`
	Language         string   `json:"language"`
	ProcessingTimeMs int64    `json:"processingTime"`
	Warnings         []string `json:"warnings"`
	Errors           []string `json:"errors"`
}

// Operational carries latency and determinism details. Token and cost
// fields stay nil until a stage reports usage.
type Operational struct {
	LatencyMs     int64    `json:"latencyMs"`
	Deterministic bool     `json:"deterministic"`
	Model         string   `json:"model,omitempty"`
	TokensIn      *int     `json:"tokensIn,omitempty"`
	TokensOut     *int     `json:"tokensOut,omitempty"`
	CostUSD       *float64 `json:"costUsd,omitempty"`
}

// Result is the orchestration outcome. ProcessedContent falls back to the
// request content on every failure path.
type Result struct {
	Success          bool        `json:"success"`
	ProcessedContent string      `json:"processedContent"`
	Metadata         Metadata    `json:"metadata"`
	Operational      Operational `json:"operational"`
}

// Mode3Runner executes the batch transcript pipeline.
type Mode3Runner interface {
	Run(ctx context.Context, raw []byte, opts pipeline.Options) (*pipeline.Artifacts, error)
}

// preLayerNames is the fixed allow-list of layers that run before the
// template stage; everything else in a stack runs after it.
var preLayerNames = map[string]bool{
	layers.UniversalCleanupName:   true,
	layers.ClinicalExtractionName: true,
}

// Params wires an Orchestrator.
type Params struct {
	Sections        *registry.SectionManager
	Modes           *registry.ModeManager
	Templates       *registry.TemplateManager
	TemplateApplier TemplateApplier
	Layers          []layers.Processor
	Mode3           Mode3Runner
	LayerProcessing bool
	Strict          bool
	Logger          *zap.Logger
}

// Orchestrator routes content through compatibility checks, layers, a
// template handler and a mode handler. It never returns an error: failures
// surface in the result, and the content degrades to the original input.
type Orchestrator struct {
	checker         *CompatibilityChecker
	sections        *registry.SectionManager
	modes           *registry.ModeManager
	templates       *registry.TemplateManager
	applier         TemplateApplier
	layers          map[string]layers.Processor
	mode3           Mode3Runner
	layerProcessing bool
	strict          bool
	logger          *zap.Logger
}

func NewOrchestrator(p Params) *Orchestrator {
	layerMap := make(map[string]layers.Processor, len(p.Layers))
	for _, l := range p.Layers {
		layerMap[l.Name()] = l
	}
	return &Orchestrator{
		checker:         NewCompatibilityChecker(p.Sections, p.Modes, p.Templates),
		sections:        p.Sections,
		modes:           p.Modes,
		templates:       p.Templates,
		applier:         p.TemplateApplier,
		layers:          layerMap,
		mode3:           p.Mode3,
		layerProcessing: p.LayerProcessing,
		strict:          p.Strict,
		logger:          p.Logger,
	}
}

// Checker exposes the compatibility checker for direct pre-flight calls.
func (o *Orchestrator) Checker() *CompatibilityChecker { return o.checker }

func (o *Orchestrator) Process(ctx context.Context, req Request) Result {
	start := time.Now()
	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = defaultCorrelationID
	}

	warnings := []string{}
	errors := []string{}

	compat := o.checker.Check(req)
	if !compat.Compatible {
		o.logger.Info("processing rejected as incompatible",
			zap.String("correlation_id", correlationID),
			zap.Strings("issues", compat.Issues),
		)
		return o.finish(req, start, req.Content, warnings, compat.Issues)
	}

	section, sectionOK := o.sections.GetSection(req.SectionID)
	mode, modeOK := o.modes.GetMode(req.ModeID)
	if !sectionOK || !modeOK {
		errors = append(errors, "Internal error: section or mode vanished after compatibility check")
		return o.finish(req, start, req.Content, warnings, errors)
	}
	template, templateOK := registry.TemplateConfig{}, false
	if req.TemplateID != "" {
		template, templateOK = o.templates.GetTemplate(req.TemplateID)
	}

	// Validation errors mark the result failed but never stop processing.
	validation := o.sections.ValidateContent(section.ID, req.Content)
	warnings = append(warnings, validation.Warnings...)
	errors = append(errors, validation.Errors...)

	content := req.Content
	var preLayers, postLayers []string
	if o.layerProcessing && len(req.LayerStack) > 0 {
		for _, name := range req.LayerStack {
			if preLayerNames[name] {
				preLayers = append(preLayers, name)
			} else {
				postLayers = append(postLayers, name)
			}
		}
	}

	content = o.runLayers(ctx, preLayers, content, req, &warnings, &errors)

	if templateOK {
		var templateWarnings []string
		content, templateWarnings = o.applier.Apply(ctx, content, template, req)
		warnings = append(warnings, templateWarnings...)
	}

	content = o.runLayers(ctx, postLayers, content, req, &warnings, &errors)

	content = o.runModeHandler(ctx, mode, content, req, &errors)

	o.logger.Debug("processing completed",
		zap.String("correlation_id", correlationID),
		zap.String("section_id", req.SectionID),
		zap.String("mode_id", req.ModeID),
		zap.Int("warnings", len(warnings)),
		zap.Int("errors", len(errors)),
	)

	return o.finish(req, start, content, warnings, errors)
}

// runLayers executes the named layers sequentially, each consuming the
// previous output. A failing or unknown layer contributes one warning (one
// error under strict policy) and leaves the content as it stood.
func (o *Orchestrator) runLayers(ctx context.Context, names []string, content string, req Request, warnings, errors *[]string) string {
	for _, name := range names {
		processor, ok := o.layers[name]
		if !ok {
			o.noteLayerFailure(name, "unknown layer", warnings, errors)
			continue
		}
		result := processor.Process(ctx, content, layers.Options{
			Language: req.Language,
			Source:   req.ModeID,
		})
		if !result.Success {
			o.noteLayerFailure(name, result.Error, warnings, errors)
			continue
		}
		content = result.CleanedText
	}
	return content
}

func (o *Orchestrator) noteLayerFailure(name, reason string, warnings, errors *[]string) {
	msg := fmt.Sprintf("Layer '%s' failed: %s", name, reason)
	if o.strict {
		*errors = append(*errors, msg)
	} else {
		*warnings = append(*warnings, msg)
	}
}

// runModeHandler dispatches on mode ID. Modes 1 and 2 pass content through
// untouched here; their formatting runs via templates or the dedicated REST
// endpoints. Mode 3 parses the content as a diarized transcript and its
// failures are real errors, not warnings.
func (o *Orchestrator) runModeHandler(ctx context.Context, mode registry.ModeConfig, content string, req Request, errors *[]string) string {
	switch mode.ID {
	case "mode1", "mode2":
		return content
	case "mode3":
		artifacts, err := o.mode3.Run(ctx, []byte(content), pipeline.Options{
			Language: transcribeLanguage(req.Language),
		})
		if err != nil {
			*errors = append(*errors, fmt.Sprintf("Mode 3 pipeline failed: %v", err))
			return content
		}
		return artifacts.Narrative.Content
	default:
		o.logger.Info("unknown mode, passing content through", zap.String("mode_id", mode.ID))
		return content
	}
}

func (o *Orchestrator) finish(req Request, start time.Time, content string, warnings, errors []string) Result {
	elapsed := time.Since(start).Milliseconds()
	return Result{
		Success:          len(errors) == 0,
		ProcessedContent: content,
		Metadata: Metadata{
			SectionID:        req.SectionID,
			ModeID:           req.ModeID,
			TemplateID:       req.TemplateID,
			Language:         req.Language,
			ProcessingTimeMs: elapsed,
			Warnings:         warnings,
			Errors:           errors,
		},
		Operational: Operational{
			LatencyMs:     elapsed,
			Deterministic: req.Seed != nil,
			Model:         req.Model,
		},
	}
}

func transcribeLanguage(language string) string {
	if language == "en" {
		return "en-US"
	}
	return "fr-CA"
}
