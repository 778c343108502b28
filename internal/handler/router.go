package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zhouzirui/telesales-sim/backend/internal/handler/chat"
	"github.com/zhouzirui/telesales-sim/backend/internal/handler/page"
	"github.com/zhouzirui/telesales-sim/backend/internal/handler/persona"
	"github.com/zhouzirui/telesales-sim/backend/internal/handler/speech"
	"github.com/zhouzirui/telesales-sim/backend/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/telesales-sim/backend/internal/middleware"
	chatModel "github.com/zhouzirui/telesales-sim/backend/internal/model/chat"
	"github.com/zhouzirui/telesales-sim/backend/pkg/utils"
)

// Options 汇总路由需要的服务。为 nil 的服务对应的接口返回 503。
type Options struct {
	Chat           chat.Deps
	Speech         speech.SpeechService
	AllowedOrigins []string
	ServiceName    string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(opts.AllowedOrigins))

	page.New(opts.Chat.Personas, chatModel.StaffSpeaker).RegisterRoutes(r)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"ai":     opts.Chat.Replier != nil,
			"speech": opts.Chat.Voice != nil,
		})
	})

	r.Route("/api", func(api chi.Router) {
		persona.New(opts.Chat.Personas).RegisterRoutes(api)
		chat.New(opts.Chat).RegisterRoutes(api)
		stream.New(opts.Chat).RegisterRoutes(api)
		speech.New(opts.Speech, opts.Chat).RegisterRoutes(api)
		speech.NewWebSocketHandler(opts.Chat).RegisterWebSocketRoutes(api)
	})

	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = "telesales-simulator"
	}
	return otelhttp.NewHandler(r, serviceName)
}
