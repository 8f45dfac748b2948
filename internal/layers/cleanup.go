package layers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/centomomd/dictation-server/domain/repositories"
)

const cleanupCacheTTL = 30 * time.Minute

const clinicalPromptFR = `Tu extrais des entités cliniques d'une transcription médicale.
Réponds uniquement en JSON avec les champs: injury_location, injury_type,
onset, pain_severity, functional_limitations (liste), previous_injuries
(liste), treatment_to_date (liste), imaging_done (liste).
Transcription:
{{TRANSCRIPT}}`

const clinicalPromptEN = `You extract clinical entities from a medical transcript.
Reply only in JSON with fields: injury_location, injury_type, onset,
pain_severity, functional_limitations (list), previous_injuries (list),
treatment_to_date (list), imaging_done (list).
Transcript:
{{TRANSCRIPT}}`

var (
	timestampRe  = regexp.MustCompile(`\[(\d{2}:){1,2}\d{2}\]`)
	hesitationRe = regexp.MustCompile(`(?i)\b(uh|um|euh|hm)+\b`)
	wsRunRe      = regexp.MustCompile(`\s+`)
)

type cacheEntry struct {
	entities ClinicalEntities
	expires  time.Time
}

// UniversalCleanupLayer strips recognizer artifacts from a transcript and
// enriches it with LLM-extracted clinical entities. Extraction failures are
// fail-open: the cleaned text survives, entities carry the issue.
type UniversalCleanupLayer struct {
	completer repositories.ChatCompleter
	model     string
	logger    *zap.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func NewUniversalCleanupLayer(completer repositories.ChatCompleter, model string, logger *zap.Logger) *UniversalCleanupLayer {
	return &UniversalCleanupLayer{
		completer: completer,
		model:     model,
		logger:    logger,
		cache:     make(map[string]cacheEntry),
	}
}

func (l *UniversalCleanupLayer) Name() string { return UniversalCleanupName }

func (l *UniversalCleanupLayer) Process(ctx context.Context, text string, opts Options) Result {
	start := time.Now()

	cleaned := timestampRe.ReplaceAllString(text, "")
	cleaned = hesitationRe.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(wsRunRe.ReplaceAllString(cleaned, " "))

	if cleaned == "" {
		return Result{
			Success:     true,
			CleanedText: "",
			ClinicalEntities: sanitizeEntities(ClinicalEntities{
				Language: opts.Language,
				Issues:   []string{"Empty transcript provided"},
			}),
			ProcessingMs: time.Since(start).Milliseconds(),
		}
	}

	key := cacheKey(cleaned + "|" + opts.Language)
	if entities, ok := l.cachedEntities(key); ok {
		return Result{
			Success:          true,
			CleanedText:      cleaned,
			ClinicalEntities: entities,
			ProcessingMs:     time.Since(start).Milliseconds(),
			UsedCache:        true,
		}
	}

	entities, err := l.extractEntities(ctx, cleaned, opts.Language)
	if err != nil {
		l.logger.Warn("clinical entity extraction failed", zap.Error(err))
		return Result{
			Success:     false,
			CleanedText: cleaned,
			ClinicalEntities: sanitizeEntities(ClinicalEntities{
				Language: opts.Language,
				Issues:   []string{"Extraction failed: " + err.Error()},
			}),
			ProcessingMs: time.Since(start).Milliseconds(),
			Error:        err.Error(),
		}
	}

	l.storeEntities(key, entities)
	return Result{
		Success:          true,
		CleanedText:      cleaned,
		ClinicalEntities: entities,
		ProcessingMs:     time.Since(start).Milliseconds(),
	}
}

func (l *UniversalCleanupLayer) extractEntities(ctx context.Context, cleaned, language string) (ClinicalEntities, error) {
	prompt := clinicalPromptEN
	if language == "fr" {
		prompt = clinicalPromptFR
	}
	prompt = strings.Replace(prompt, "{{TRANSCRIPT}}", cleaned, 1)

	resp, err := l.completer.Complete(ctx, repositories.CompletionRequest{
		Model:        l.model,
		SystemPrompt: prompt,
		UserContent:  cleaned,
		Temperature:  0.1,
		MaxTokens:    800,
	})
	if err != nil {
		return ClinicalEntities{}, err
	}

	var entities ClinicalEntities
	// Malformed model output degrades to empty entities, not an error.
	if err := json.Unmarshal([]byte(resp.Text), &entities); err != nil {
		l.logger.Debug("clinical extraction returned non-JSON output", zap.Error(err))
		entities = ClinicalEntities{}
	}
	entities.Language = language
	return sanitizeEntities(entities), nil
}

func (l *UniversalCleanupLayer) cachedEntities(key string) (ClinicalEntities, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.cache[key]
	if !ok || time.Now().After(entry.expires) {
		delete(l.cache, key)
		return ClinicalEntities{}, false
	}
	return entry.entities, true
}

func (l *UniversalCleanupLayer) storeEntities(key string, entities ClinicalEntities) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[key] = cacheEntry{entities: entities, expires: time.Now().Add(cleanupCacheTTL)}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
