package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/lumi/backend/internal/handler/chat"
	"github.com/zhouzirui/lumi/backend/internal/handler/persona"
	"github.com/zhouzirui/lumi/backend/internal/handler/stream"
	"github.com/zhouzirui/lumi/backend/internal/handler/ws"
	"github.com/zhouzirui/lumi/backend/internal/middleware"
	personaModel "github.com/zhouzirui/lumi/backend/internal/model/persona"
	chatService "github.com/zhouzirui/lumi/backend/internal/service/chat"
)

// Options are the HTTP-facing collaborators and settings.
type Options struct {
	Personas       personaModel.Store
	Chat           *chatService.Service
	Zones          chat.ZoneResolver
	Metrics        http.Handler
	AllowedOrigins []string
	AvatarPath     string
	Logger         *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(opts.AllowedOrigins))
	r.Use(chiMiddleware.Heartbeat("/health"))

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	personaHandler := persona.New(opts.Personas, opts.Chat, opts.AvatarPath)
	chatHandler := chat.New(opts.Chat, opts.Zones, logger)
	streamHandler := stream.New(opts.Chat, opts.Personas, logger)
	wsHandler := ws.New(opts.Chat, opts.AllowedOrigins, logger)

	r.Route("/api", func(api chi.Router) {
		personaHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			streamHandler.ServeHTTP(w, r, chi.URLParam(r, "sessionID"))
		})
	})

	return r
}
