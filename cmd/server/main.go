package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/centomomd/dictation-server/adapters/llm"
	"github.com/centomomd/dictation-server/adapters/stt"
	"github.com/centomomd/dictation-server/domain/repositories"
	"github.com/centomomd/dictation-server/internal/api"
	"github.com/centomomd/dictation-server/internal/auth"
	"github.com/centomomd/dictation-server/internal/config"
	"github.com/centomomd/dictation-server/internal/formatter"
	"github.com/centomomd/dictation-server/internal/layers"
	"github.com/centomomd/dictation-server/internal/pipeline"
	"github.com/centomomd/dictation-server/internal/processing"
	"github.com/centomomd/dictation-server/internal/registry"
	"github.com/centomomd/dictation-server/internal/ws"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize adapters
	speechToText := buildSpeechToText(cfg, logger)
	completer := buildCompleter(cfg, logger)

	authService := auth.NewService(cfg.JWTSecret, cfg.BearerTTL, cfg.WSTokenTTL)

	// Registries
	sections := registry.NewSectionManager()
	modes := registry.NewModeManager()
	templates := registry.NewTemplateManager()

	// Formatters
	mode1 := formatter.NewMode1Formatter()
	section7 := formatter.NewSection7AIFormatter(completer, cfg.DefaultModel, cfg.PromptDir, logger)
	section7Rd := formatter.NewSection7RdService(completer, cfg.DefaultModel, logger)
	mode2 := formatter.NewMode2Formatter(section7, completer, cfg.DefaultModel, logger)
	aiFormatting := formatter.NewAIFormattingService(completer, cfg.DefaultModel, logger)

	// Processing stack
	dispatcher := processing.NewTemplateDispatcher(section7, section7Rd, aiFormatting, completer, cfg.DefaultModel, logger)
	orchestrator := processing.NewOrchestrator(processing.Params{
		Sections:        sections,
		Modes:           modes,
		Templates:       templates,
		TemplateApplier: dispatcher,
		Layers: []layers.Processor{
			layers.NewUniversalCleanupLayer(completer, cfg.DefaultModel, logger),
			layers.NewClinicalExtractionLayer(completer, cfg.DefaultModel, logger),
		},
		Mode3:           pipeline.NewRunner(logger),
		LayerProcessing: cfg.Flags.LayerProcessing,
		Strict:          cfg.Flags.StrictProcessing,
		Logger:          logger,
	})

	// WebSocket dictation surface
	sessions := ws.NewSessionManager()
	wsHandler := ws.NewHandler(speechToText, authService, sessions, cfg.Flags.RequireWSAuth, logger)

	// Initialize API routes
	handlers := api.NewHandlers(cfg, authService, speechToText, mode1, mode2,
		aiFormatting, orchestrator, sections, modes, templates, sessions, wsHandler, logger)
	handlers.InitRoutes(e)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("stt_provider", cfg.STTProvider),
		zap.String("llm_provider", cfg.LLMProvider),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func buildSpeechToText(cfg *config.Config, logger *zap.Logger) repositories.SpeechToText {
	switch cfg.STTProvider {
	case "google":
		return stt.NewGoogleSpeechToText(logger)
	case "mock":
		return stt.NewMockSpeechToText(logger)
	default:
		return stt.NewAWSTranscribe(cfg.AWSRegion, logger)
	}
}

func buildCompleter(cfg *config.Config, logger *zap.Logger) repositories.ChatCompleter {
	switch cfg.LLMProvider {
	case "gemini":
		client, err := llm.NewGeminiClient(logger)
		if err != nil {
			logger.Warn("gemini unavailable, using mock completer", zap.Error(err))
			return llm.NewMockCompleter()
		}
		return client
	case "mock":
		return llm.NewMockCompleter()
	default:
		client, err := llm.NewOpenAIClient(logger)
		if err != nil {
			logger.Warn("openai unavailable, using mock completer", zap.Error(err))
			return llm.NewMockCompleter()
		}
		return client
	}
}
