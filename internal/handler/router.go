package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/halwest-tech/kurdish-chat/backend/internal/handler/auth"
	"github.com/halwest-tech/kurdish-chat/backend/internal/handler/chat"
	"github.com/halwest-tech/kurdish-chat/backend/internal/handler/session"
	"github.com/halwest-tech/kurdish-chat/backend/internal/handler/speech"
	"github.com/halwest-tech/kurdish-chat/backend/internal/handler/stream"
	workspaceHandler "github.com/halwest-tech/kurdish-chat/backend/internal/handler/workspace"
	middlewarePkg "github.com/halwest-tech/kurdish-chat/backend/internal/middleware"
	workspaceService "github.com/halwest-tech/kurdish-chat/backend/internal/service/workspace"
	"github.com/halwest-tech/kurdish-chat/backend/pkg/utils"
)

// RouterConfig 汇总路由依赖。
type RouterConfig struct {
	Registry       *workspaceService.Registry
	Speech         speech.SpeechService
	AllowedOrigins []string
}

// Router 是 HTTP 入口，Shutdown 关闭被劫持的 WebSocket 连接。
type Router struct {
	http.Handler
	voice *speech.WebSocketHandler
}

// Shutdown 关闭所有语音连接
func (r *Router) Shutdown() {
	r.voice.Connections().CloseAll()
}

// NewRouter wires HTTP routes to core services.
func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.AllowedOrigins))

	voiceHandler := speech.NewWebSocketHandler(middlewarePkg.OriginAllowed(cfg.AllowedOrigins))

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":     "ok",
				"workspaces": cfg.Registry.Len(),
			})
		})

		// 无需工作区的路由
		workspaceHandler.New(cfg.Registry).RegisterRoutes(api)
		speech.New(cfg.Speech).RegisterRoutes(api)

		// 其余路由都绑定到调用方的工作区
		api.Group(func(scoped chi.Router) {
			scoped.Use(middlewarePkg.Workspace(cfg.Registry))

			session.New().RegisterRoutes(scoped)
			stream.New().RegisterRoutes(scoped)
			auth.New().RegisterRoutes(scoped)

			// 聊天与语音只对已登录的会话开放
			scoped.Group(func(signedIn chi.Router) {
				signedIn.Use(middlewarePkg.RequireSession(cfg.Registry.Verifier()))

				chat.New().RegisterRoutes(signedIn)
				voiceHandler.RegisterWebSocketRoutes(signedIn)
			})
		})
	})

	return &Router{Handler: r, voice: voiceHandler}
}
