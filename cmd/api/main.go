package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/telesales-sim/backend/internal/config"
	"github.com/zhouzirui/telesales-sim/backend/internal/handler"
	"github.com/zhouzirui/telesales-sim/backend/internal/handler/chat"
	speechHandler "github.com/zhouzirui/telesales-sim/backend/internal/handler/speech"
	"github.com/zhouzirui/telesales-sim/backend/internal/model/persona"
	"github.com/zhouzirui/telesales-sim/backend/internal/observability"
	"github.com/zhouzirui/telesales-sim/backend/internal/service/ai"
	"github.com/zhouzirui/telesales-sim/backend/internal/service/evaluation"
	"github.com/zhouzirui/telesales-sim/backend/internal/service/speech"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file, continuing with system environment", slog.Any("error", err))
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	observability.InitLogger(cfg.Observability.LogLevel)

	if cfg.Observability.TracingEnabled() {
		tp, err := observability.InitTracer(ctx, cfg.Observability.ServiceName, version)
		if err != nil {
			slog.Warn("tracing disabled", slog.Any("error", err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(shutdownCtx)
			}()
		}
	}

	personaStore, err := loadPersonas(cfg)
	if err != nil {
		slog.Error("failed to load personas", slog.Any("error", err))
		os.Exit(1)
	}

	deps := chat.Deps{
		Personas:       personaStore,
		DefaultPersona: cfg.Persona.DefaultID,
	}

	if cfg.AI.Enabled() {
		replier, evaluator, err := newAIServices(ctx, cfg.AI)
		if err != nil {
			slog.Warn("continuing without AI functionality", slog.Any("error", err))
		} else {
			deps.Replier = replier
			deps.Evaluator = evaluator
			slog.Info("AI service initialized",
				slog.String("provider", string(cfg.AI.Provider)),
				slog.String("model", cfg.AI.ModelName()),
			)
		}
	} else {
		slog.Warn("LLM credentials not configured, chat endpoints will return 503",
			slog.String("provider", string(cfg.AI.Provider)))
	}

	var speechSvc speechHandler.SpeechService
	if cfg.Speech.Enabled {
		synth, err := speech.NewGoogleSynthesizer(ctx, speech.GoogleConfig{
			APIKey: cfg.Speech.APIKey,
			UseADC: cfg.Speech.UseADC,
		})
		if err != nil {
			slog.Warn("continuing without speech", slog.Any("error", err))
		} else {
			defer synth.Close()
			svc := speech.NewService(synth, cfg.Speech.Language, cfg.Speech.Timeout)
			deps.Voice = svc
			speechSvc = svc
			slog.Info("speech service initialized", slog.String("language", cfg.Speech.Language))
		}
	} else {
		slog.Warn("TTS_API_KEY not set, replies will carry no audio")
	}

	router := handler.NewRouter(handler.Options{
		Chat:           deps,
		Speech:         speechSvc,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ServiceName:    cfg.Observability.ServiceName,
	})

	if err := startServer(ctx, cfg.Server, router); err != nil {
		slog.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}

func loadPersonas(cfg *config.Config) (*persona.MemoryStore, error) {
	items := persona.Seed()
	if cfg.Persona.File != "" {
		loaded, err := persona.LoadFile(cfg.Persona.File, cfg.Speech.Language)
		if err != nil {
			return nil, err
		}
		items = loaded
	}

	store := persona.NewMemoryStore(items)
	if _, ok := store.FindByID(cfg.Persona.DefaultID); !ok {
		return nil, fmt.Errorf("DEFAULT_PERSONA %q is not in the catalogue", cfg.Persona.DefaultID)
	}
	slog.Info("persona catalogue loaded", slog.Int("count", len(items)), slog.String("source", sourceName(cfg.Persona.File)))
	return store, nil
}

func sourceName(file string) string {
	if file == "" {
		return "builtin"
	}
	return file
}

func newAIServices(ctx context.Context, cfg config.AIConfig) (*ai.Service, *evaluation.Service, error) {
	chatModel, err := ai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	replier, err := ai.NewService(ctx, chatModel, ai.Options{Timeout: cfg.Timeout})
	if err != nil {
		return nil, nil, err
	}

	evaluator, err := evaluation.NewService(ctx, replier.GetChatModel(), evaluation.Config{Timeout: cfg.Timeout})
	if err != nil {
		return nil, nil, err
	}
	return replier, evaluator, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) error {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("telesales simulator listening", slog.String("addr", serverCfg.Addr))
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
