package formatter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/centomomd/dictation-server/domain/repositories"
)

// Embedded fallback used when the prompt file is missing on disk.
const section7DefaultPromptFR = `Tu es un rédacteur médical spécialisé dans les rapports CNESST.
Reformate le texte en Section 7 (Historique de faits et évolution):
chaque paragraphe commence par "Le travailleur" ou "La travailleuse",
suivi de la date; la terminologie médicale et les citations sont
préservées mot à mot; aucune information n'est ajoutée ni retirée.`

const section7DefaultPromptEN = `You are a medical writer specialized in CNESST reports.
Reformat the text as Section 7 (History of Facts and Evolution):
each paragraph starts with "The worker" followed by the date; medical
terminology and quotes are preserved verbatim; no information is added
or removed.`

// Section7Options carries the determinism controls a caller may pin.
type Section7Options struct {
	Model           string
	Temperature     *float64
	Seed            *int64
	TemplateVersion string
}

// Section7Result is the outcome of a Section 7 AI formatting pass.
type Section7Result struct {
	Formatted   string
	Issues      []string
	Suggestions []string
	Model       string
	TokensIn    int
	TokensOut   int
	UsedAI      bool
}

// Section7AIFormatter assembles the section 7 system prompt and delegates to
// a chat-completion model, with a deterministic fallback.
type Section7AIFormatter struct {
	completer    repositories.ChatCompleter
	defaultModel string
	promptDir    string
	logger       *zap.Logger
}

func NewSection7AIFormatter(completer repositories.ChatCompleter, defaultModel, promptDir string, logger *zap.Logger) *Section7AIFormatter {
	return &Section7AIFormatter{
		completer:    completer,
		defaultModel: defaultModel,
		promptDir:    promptDir,
		logger:       logger,
	}
}

// Format runs the AI pass. Any AI failure degrades to the deterministic
// fallback with the failure recorded as an issue.
func (f *Section7AIFormatter) Format(ctx context.Context, content, language string, opts Section7Options) Section7Result {
	systemPrompt := f.loadSystemPrompt(language, opts.TemplateVersion)

	model := opts.Model
	if model == "" {
		model = f.defaultModel
	}
	temperature := 0.2
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	if f.completer != nil {
		result, err := f.completer.Complete(ctx, repositories.CompletionRequest{
			Model:        model,
			SystemPrompt: systemPrompt,
			UserContent:  content,
			Temperature:  temperature,
			MaxTokens:    4000,
			Seed:         opts.Seed,
		})
		if err == nil && result.Text != "" {
			return Section7Result{
				Formatted: result.Text,
				Model:     result.Model,
				TokensIn:  result.TokensIn,
				TokensOut: result.TokensOut,
				UsedAI:    true,
			}
		}
		if err != nil {
			f.logger.Warn("section 7 AI formatting failed, using deterministic fallback", zap.Error(err))
		}
	}

	fallback := f.fallbackFormatting(content, language)
	fallback.Issues = append(fallback.Issues, "AI formatting unavailable, deterministic fallback applied")
	return fallback
}

func (f *Section7AIFormatter) loadSystemPrompt(language, templateVersion string) string {
	name := "section7_master.md"
	if templateVersion != "" {
		name = fmt.Sprintf("section7_%s_master.md", templateVersion)
	}
	if language == "en" {
		name = strings.TrimSuffix(name, ".md") + "_en.md"
	}

	data, err := os.ReadFile(filepath.Join(f.promptDir, name))
	if err != nil {
		f.logger.Debug("prompt file missing, using embedded default",
			zap.String("file", name), zap.Error(err))
		if language == "en" {
			return section7DefaultPromptEN
		}
		return section7DefaultPromptFR
	}
	return string(data)
}

func (f *Section7AIFormatter) fallbackFormatting(content, language string) Section7Result {
	formatted := content

	header := sectionHeaders["7"]
	if language == "en" {
		header = "7. History of Facts and Evolution"
	}
	if !strings.Contains(formatted, header) {
		formatted = header + "\n\n" + formatted
	}

	var changes []string
	if language == "fr" {
		formatted = applyReplacements(formatted, frenchWorkerTerms, &changes)
	} else {
		formatted = applyReplacements(formatted, englishWorkerTerms, &changes)
	}

	return Section7Result{Formatted: formatted}
}
