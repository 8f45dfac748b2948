package formatter

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/centomomd/dictation-server/domain/repositories"
)

const section7RdVersion = "1.1.0"

// RuleIssue records one compliance rule outcome.
type RuleIssue struct {
	Rule    string `json:"rule"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// RdCompliance aggregates the rule outcomes of one R&D pipeline run.
type RdCompliance struct {
	RulesScore  float64     `json:"rulesScore"`
	PassedRules []string    `json:"passedRules"`
	FailedRules []string    `json:"failedRules"`
	Issues      []RuleIssue `json:"issues"`
}

// Section7RdResult is the outcome of the Section 7 R&D pipeline.
type Section7RdResult struct {
	Success        bool         `json:"success"`
	FormattedText  string       `json:"formattedText"`
	Compliance     RdCompliance `json:"compliance"`
	ProcessingTime int64        `json:"processingTime"`
	Version        string       `json:"version"`
	Timestamp      string       `json:"timestamp"`
}

var (
	doctorTitleRe = regexp.MustCompile(`(?i)\b(docteur|docteure|Dr\.|Dre\.)`)
	citationRe    = regexp.MustCompile(`«[^»]*»`)
)

// Section7RdService runs the experimental multi-rule formatting pipeline:
// an AI formatting pass followed by per-rule compliance evaluation.
type Section7RdService struct {
	completer repositories.ChatCompleter
	model     string
	logger    *zap.Logger
}

func NewSection7RdService(completer repositories.ChatCompleter, model string, logger *zap.Logger) *Section7RdService {
	return &Section7RdService{completer: completer, model: model, logger: logger}
}

// ProcessInput formats the text and evaluates compliance. On any pipeline
// failure the original text is returned with Success false.
func (s *Section7RdService) ProcessInput(ctx context.Context, inputText string) Section7RdResult {
	start := time.Now()
	timestamp := start.UTC().Format(time.RFC3339)

	formatted, err := s.formatText(ctx, inputText)
	if err != nil {
		s.logger.Error("section 7 R&D pipeline failed", zap.Error(err))
		return Section7RdResult{
			Success:        false,
			FormattedText:  inputText,
			Compliance:     RdCompliance{PassedRules: []string{}, FailedRules: []string{}, Issues: []RuleIssue{}},
			ProcessingTime: time.Since(start).Milliseconds(),
			Version:        section7RdVersion,
			Timestamp:      timestamp,
		}
	}

	compliance := evaluateCompliance(formatted)

	s.logger.Info("section 7 R&D pipeline completed",
		zap.Float64("rules_score", compliance.RulesScore),
		zap.Int("passed_rules", len(compliance.PassedRules)),
		zap.Int("failed_rules", len(compliance.FailedRules)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return Section7RdResult{
		Success:        true,
		FormattedText:  formatted,
		Compliance:     compliance,
		ProcessingTime: time.Since(start).Milliseconds(),
		Version:        section7RdVersion,
		Timestamp:      timestamp,
	}
}

func (s *Section7RdService) formatText(ctx context.Context, inputText string) (string, error) {
	if s.completer == nil {
		return "", fmt.Errorf("no completion model configured")
	}

	result, err := s.completer.Complete(ctx, repositories.CompletionRequest{
		Model:        s.model,
		SystemPrompt: section7DefaultPromptFR,
		UserContent:  inputText,
		Temperature:  0.1,
		MaxTokens:    4000,
	})
	if err != nil {
		return "", fmt.Errorf("formatting call failed: %w", err)
	}
	if result.Text == "" {
		return "", fmt.Errorf("formatting call returned empty text")
	}
	return result.Text, nil
}

// evaluateCompliance checks the four drafting rules: correct header, every
// paragraph opens with a worker reference, a physician title appears, and at
// most one guillemet citation.
func evaluateCompliance(text string) RdCompliance {
	var issues []RuleIssue

	if strings.HasPrefix(text, "7. Historique de faits et évolution") {
		issues = append(issues, RuleIssue{Rule: "header", OK: true})
	} else {
		issues = append(issues, RuleIssue{Rule: "header", OK: false, Message: "Missing or incorrect header"})
	}

	workerFirst := true
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "7. Historique de faits et évolution") {
			continue
		}
		if !strings.HasPrefix(p, "Le travailleur") && !strings.HasPrefix(p, "La travailleuse") {
			workerFirst = false
			break
		}
	}
	if workerFirst {
		issues = append(issues, RuleIssue{Rule: "parag_travailleur_premier", OK: true})
	} else {
		issues = append(issues, RuleIssue{Rule: "parag_travailleur_premier", OK: false, Message: "Some paragraphs do not start with worker reference"})
	}

	if doctorTitleRe.MatchString(text) {
		issues = append(issues, RuleIssue{Rule: "titre_medecin_present", OK: true})
	} else {
		issues = append(issues, RuleIssue{Rule: "titre_medecin_present", OK: false, Message: "No doctor titles found"})
	}

	citations := len(citationRe.FindAllString(text, -1))
	if citations <= 1 {
		issues = append(issues, RuleIssue{Rule: "une_seule_citation", OK: true})
	} else {
		issues = append(issues, RuleIssue{Rule: "une_seule_citation", OK: false, Message: fmt.Sprintf("Too many citations: %d", citations)})
	}

	var passed, failed []string
	for _, issue := range issues {
		if issue.OK {
			passed = append(passed, issue.Rule)
		} else {
			failed = append(failed, issue.Rule)
		}
	}

	return RdCompliance{
		RulesScore:  float64(len(passed)) / float64(len(issues)),
		PassedRules: passed,
		FailedRules: failed,
		Issues:      issues,
	}
}
