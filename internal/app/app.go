// Package app assembles the Lumi services from configuration.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"

	"github.com/zhouzirui/lumi/backend/internal/config"
	"github.com/zhouzirui/lumi/backend/internal/handler"
	"github.com/zhouzirui/lumi/backend/internal/metrics"
	"github.com/zhouzirui/lumi/backend/internal/model/persona"
	"github.com/zhouzirui/lumi/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/lumi/backend/internal/service/chat"
	emotionservice "github.com/zhouzirui/lumi/backend/internal/service/emotion"
	"github.com/zhouzirui/lumi/backend/internal/service/router"
	"github.com/zhouzirui/lumi/backend/internal/service/timezone"
	"github.com/zhouzirui/lumi/backend/internal/store"
)

// App holds the wired services.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Personas persona.Store
	Store    store.Repository
	Emotion  *emotionservice.Service
	Router   *router.Router
	Chat     *chatservice.Service
	Zones    *timezone.Resolver
	Metrics  *metrics.Recorder
}

// Options tweak Build. Zero values mean production behaviour.
type Options struct {
	// DisableStorage skips the SQLite transcript store.
	DisableStorage bool
	// Generator overrides the configured generation backend.
	Generator ai.Generator
}

// Build wires every service from cfg. Remote backends that cannot be built
// are logged and replaced by their unavailable fallbacks.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	personas, err := loadPersonas(cfg.Persona)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Personas: personas,
		Metrics:  metrics.New(),
		Zones: timezone.NewResolver(
			cfg.Display.TimezoneLookupURL,
			cfg.Display.DefaultTimezone,
			cfg.Display.LookupTimeout,
			nil,
			logger.Named("timezone"),
			timezone.WithRetryAfter(cfg.Display.LookupRetry),
		),
	}

	if !opts.DisableStorage {
		sqlStore, err := store.NewSQLite(cfg.Storage.DBPath)
		if err != nil {
			logger.Warn("[app] transcript store unavailable, continuing without persistence",
				zap.String("path", cfg.Storage.DBPath), zap.Error(err))
		} else {
			a.Store = sqlStore
		}
	}

	var chatModel model.ChatModel
	if cfg.AI.Enabled() && (cfg.Router.Backend == config.BackendArk || cfg.Emotion.Backend == config.EmotionLLM) {
		chatModel, err = cfg.AI.NewChatModel(ctx)
		if err != nil {
			logger.Warn("[app] ark chat model unavailable", zap.Error(err))
			chatModel = nil
		}
	}

	a.Emotion = emotionservice.NewService(ctx, chatModel, emotionservice.Config{Backend: cfg.Emotion.Backend}, logger.Named("emotion"))

	generator := opts.Generator
	if generator == nil {
		generator = buildGenerator(ctx, cfg, chatModel, logger)
	}
	if cfg.Router.CacheSize > 0 {
		cached, err := ai.WithCache(generator, cfg.Router.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("build response cache: %w", err)
		}
		generator = cached
	}

	defaultPersona := personas.Default()
	hosted := ai.NewHostedClient(cfg.Hosted.URL, cfg.Hosted.SessionID, defaultPersona.HostedDefault,
		&http.Client{Timeout: cfg.Router.GenerationTimeout})

	deps := router.Deps{
		Personas:   personas,
		Classifier: a.Emotion,
		Generator:  generator,
		Hosted:     hosted,
		Prompts:    ai.NewPersonaPromptManager(personas.List()),
		Logger:     logger.Named("router"),
		Metrics:    a.Metrics,
	}
	if a.Store != nil {
		deps.Store = a.Store
	}

	a.Router = router.New(router.Config{
		Mode:               cfg.Router.Mode,
		SplitSentences:     cfg.Router.SplitSentences,
		SmallTalk:          cfg.Router.SmallTalk,
		ShortInputFallback: cfg.Router.ShortInputFallback,
		TopK:               cfg.Emotion.TopK,
		GenerationTimeout:  cfg.Router.GenerationTimeout,
	}, deps)
	a.Chat = chatservice.NewService(a.Router, personas, logger.Named("chat"))

	logger.Info("[app] services ready",
		zap.String("mode", cfg.Router.Mode),
		zap.String("backend", cfg.Router.Backend),
		zap.String("emotion", cfg.Emotion.Backend),
		zap.Bool("emotion_enabled", a.Emotion.Enabled()),
		zap.Bool("persistence", a.Store != nil),
		zap.Int("personas", len(personas.List())),
	)
	return a, nil
}

// Handler builds the HTTP surface.
func (a *App) Handler() http.Handler {
	return handler.NewRouter(handler.Options{
		Personas:       a.Personas,
		Chat:           a.Chat,
		Zones:          a.Zones,
		Metrics:        a.Metrics.Handler(),
		AllowedOrigins: a.Config.Server.AllowedOrigins,
		AvatarPath:     a.Config.Display.AvatarPath,
		Logger:         a.Logger.Named("http"),
	})
}

// Close releases the transcript store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

func loadPersonas(cfg config.PersonaConfig) (persona.Store, error) {
	if cfg.File == "" {
		return persona.NewMemoryStore(persona.Seed()), nil
	}
	items, err := persona.LoadFile(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("load personas: %w", err)
	}
	return persona.NewMemoryStore(items), nil
}

func buildGenerator(ctx context.Context, cfg *config.Config, chatModel model.ChatModel, logger *zap.Logger) ai.Generator {
	switch cfg.Router.Backend {
	case config.BackendCompletion:
		if !cfg.Completion.Enabled() {
			logger.Warn("[app] completion api key missing, generation disabled")
			return ai.Unavailable{}
		}
		gen, err := ai.NewCompletionGenerator(ctx, cfg.Completion.BaseURL, cfg.Completion.APIKey,
			cfg.Completion.Model, cfg.Router.GenerationTimeout)
		if err != nil {
			logger.Warn("[app] completion client unavailable", zap.Error(err))
			return ai.Unavailable{}
		}
		return gen
	case config.BackendArk:
		if chatModel == nil {
			logger.Warn("[app] ark backend selected without a chat model, generation disabled")
			return ai.Unavailable{}
		}
		return ai.NewChatModelGenerator(chatModel)
	case config.BackendGemini:
		if cfg.Gemini.APIKey == "" {
			logger.Warn("[app] gemini api key missing, generation disabled")
			return ai.Unavailable{}
		}
		gen, err := ai.NewGeminiGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			logger.Warn("[app] gemini client unavailable", zap.Error(err))
			return ai.Unavailable{}
		}
		return gen
	default:
		return ai.Unavailable{}
	}
}
