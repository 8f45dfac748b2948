package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/centomomd/dictation-server/domain/repositories"
	"github.com/centomomd/dictation-server/internal/auth"
	"github.com/centomomd/dictation-server/internal/config"
	"github.com/centomomd/dictation-server/internal/formatter"
	"github.com/centomomd/dictation-server/internal/processing"
	"github.com/centomomd/dictation-server/internal/registry"
	"github.com/centomomd/dictation-server/internal/ws"
)

// Handlers bundles everything the REST surface needs.
type Handlers struct {
	cfg          *config.Config
	auth         *auth.Service
	stt          repositories.SpeechToText
	mode1        *formatter.Mode1Formatter
	mode2        *formatter.Mode2Formatter
	aiFormatting *formatter.AIFormattingService
	orchestrator *processing.Orchestrator
	sections     *registry.SectionManager
	modes        *registry.ModeManager
	templates    *registry.TemplateManager
	sessions     *ws.SessionManager
	wsHandler    *ws.Handler
	logger       *zap.Logger
}

func NewHandlers(
	cfg *config.Config,
	authSvc *auth.Service,
	stt repositories.SpeechToText,
	mode1 *formatter.Mode1Formatter,
	mode2 *formatter.Mode2Formatter,
	aiFormatting *formatter.AIFormattingService,
	orchestrator *processing.Orchestrator,
	sections *registry.SectionManager,
	modes *registry.ModeManager,
	templates *registry.TemplateManager,
	sessions *ws.SessionManager,
	wsHandler *ws.Handler,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		cfg:          cfg,
		auth:         authSvc,
		stt:          stt,
		mode1:        mode1,
		mode2:        mode2,
		aiFormatting: aiFormatting,
		orchestrator: orchestrator,
		sections:     sections,
		modes:        modes,
		templates:    templates,
		sessions:     sessions,
		wsHandler:    wsHandler,
		logger:       logger,
	}
}

// InitRoutes registers every route on the echo instance.
func (h *Handlers) InitRoutes(e *echo.Echo) {
	e.GET("/healthz", h.health)
	e.GET("/readyz", h.ready)

	api := e.Group("/api")
	if h.cfg.Flags.RateLimitPerSec > 0 {
		api.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(
			rate.Limit(h.cfg.Flags.RateLimitPerSec))))
	}
	api.Use(auth.BearerMiddleware(h.auth, h.cfg.Flags.RequireRESTAuth))

	api.GET("/config", h.getConfig)
	api.POST("/auth/ws-token", h.issueWSToken)
	api.POST("/format/mode1", h.formatMode1)
	api.POST("/format/mode2", h.formatMode2)
	api.POST("/templates/format", h.formatTemplate)
	api.POST("/process", h.process)

	e.GET("/ws/transcription", h.wsHandler.ServeWS)
}

func (h *Handlers) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "dictation-server",
	})
}

func (h *Handlers) ready(c echo.Context) error {
	status := h.stt.Status()
	return c.JSON(http.StatusOK, map[string]any{
		"status":          "ok",
		"stt_provider":    status.Provider,
		"stt_region":      status.Region,
		"active_sessions": h.sessions.Count(),
	})
}

func (h *Handlers) getConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"sections":  h.sections.AllSectionIDs(),
		"modes":     h.modes.AllModeIDs(),
		"templates": h.templates.AllTemplateIDs(),
		"features": map[string]bool{
			"layer_processing":  h.cfg.Flags.LayerProcessing,
			"strict_processing": h.cfg.Flags.StrictProcessing,
			"ws_auth":           h.cfg.Flags.RequireWSAuth,
		},
	})
}

func (h *Handlers) issueWSToken(c echo.Context) error {
	userID := "anonymous"
	if claims, ok := auth.ClaimsFrom(c); ok {
		userID = claims.UserID
	}
	token, err := h.auth.GenerateWSToken(userID)
	if err != nil {
		h.logger.Error("failed to issue ws token", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue token")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": time.Now().Add(h.cfg.WSTokenTTL).UTC().Format(time.RFC3339),
	})
}

type mode1Request struct {
	Transcript    string `json:"transcript"`
	Language      string `json:"language"`
	QuoteStyle    string `json:"quote_style,omitempty"`
	RadiologyMode bool   `json:"radiology_mode,omitempty"`
	Section       string `json:"section,omitempty"`
}

func (h *Handlers) formatMode1(c echo.Context) error {
	var req mode1Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Transcript == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "transcript is required")
	}

	result := h.mode1.Format(req.Transcript, formatter.Mode1Options{
		Language:         req.Language,
		QuoteStyle:       req.QuoteStyle,
		RadiologyMode:    req.RadiologyMode,
		PreserveVerbatim: true,
	})

	response := map[string]any{
		"success":         true,
		"formatted":       result.Formatted,
		"issues":          result.Issues,
		"verbatim_blocks": result.VerbatimBlocks,
	}
	if req.Section != "" {
		response["validation"] = h.sections.ValidateContent(sectionID(req.Section), result.Formatted)
	}
	return c.JSON(http.StatusOK, response)
}

type mode2Request struct {
	Transcript     string `json:"transcript"`
	Section        string `json:"section"`
	Language       string `json:"language"`
	CaseID         string `json:"case_id,omitempty"`
	TemplateID     string `json:"template_id,omitempty"`
	ExtraDictation string `json:"extra_dictation,omitempty"`
}

func (h *Handlers) formatMode2(c echo.Context) error {
	var req mode2Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Transcript == "" || req.Section == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "transcript and section are required")
	}

	result := h.mode2.Format(c.Request().Context(), req.Transcript, formatter.Mode2Options{
		Language:       req.Language,
		Section:        req.Section,
		CaseID:         req.CaseID,
		TemplateID:     req.TemplateID,
		ExtraDictation: req.ExtraDictation,
	})

	// Formatting failures stay HTTP 200 with success false; the issue list
	// carries the detail.
	success := true
	for _, issue := range result.Issues {
		if strings.HasPrefix(issue, "Formatting error") {
			success = false
		}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":          success,
		"formatted":        result.Formatted,
		"issues":           result.Issues,
		"sources_used":     result.SourcesUsed,
		"confidence_score": result.ConfidenceScore,
	})
}

type templateFormatRequest struct {
	Content            string `json:"content"`
	Section            string `json:"section"`
	Language           string `json:"language"`
	Complexity         string `json:"complexity,omitempty"`
	FormattingLevel    string `json:"formattingLevel,omitempty"`
	IncludeSuggestions bool   `json:"includeSuggestions,omitempty"`
}

func (h *Handlers) formatTemplate(c echo.Context) error {
	var req templateFormatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Content == "" || req.Section == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content and section are required")
	}

	complexity := req.Complexity
	if complexity == "" {
		complexity = "medium"
	}
	level := req.FormattingLevel
	if level == "" {
		level = "standard"
	}

	result := h.aiFormatting.FormatTemplateContent(c.Request().Context(), req.Content, formatter.FormattingOptions{
		Section:            req.Section,
		InputLanguage:      req.Language,
		Complexity:         complexity,
		FormattingLevel:    level,
		IncludeSuggestions: req.IncludeSuggestions,
	})

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    result,
	})
}

func (h *Handlers) process(c echo.Context) error {
	var req processing.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SectionID == "" || req.ModeID == "" || req.Language == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "sectionId, modeId and language are required")
	}

	result := h.orchestrator.Process(c.Request().Context(), req)
	return c.JSON(http.StatusOK, result)
}

// sectionID maps the short section numbers used by the formatting endpoints
// onto registry IDs.
func sectionID(section string) string {
	switch section {
	case "7":
		return "section7"
	case "8":
		return "section8"
	case "11":
		return "section11"
	default:
		return section
	}
}
