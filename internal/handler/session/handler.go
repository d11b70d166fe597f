package session

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/halwest-tech/kurdish-chat/backend/internal/locale"
	"github.com/halwest-tech/kurdish-chat/backend/internal/middleware"
	"github.com/halwest-tech/kurdish-chat/backend/pkg/utils"
)

// Handler 暴露会话控制器：登录状态、语言与主题偏好、退出登录。
type Handler struct{}

// New 创建会话处理器
func New() *Handler {
	return &Handler{}
}

// RegisterRoutes 注册会话路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session", h.handleGet)
	r.Put("/session/preferences", h.handlePreferences)
	r.Post("/session/logout", h.handleLogout)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ws, ok := middleware.WorkspaceFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "workspace missing")
		return
	}
	utils.RespondJSON(w, http.StatusOK, ws.Session.Snapshot())
}

type preferencesRequest struct {
	Language    *string `json:"language"`
	Theme       *string `json:"theme"`
	ToggleLang  bool    `json:"toggleLanguage"`
	ToggleTheme bool    `json:"toggleTheme"`
}

func (h *Handler) handlePreferences(w http.ResponseWriter, r *http.Request) {
	ws, ok := middleware.WorkspaceFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "workspace missing")
		return
	}

	var payload preferencesRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// 先校验全部字段，避免部分生效。
	var lang locale.Language
	if payload.Language != nil {
		parsed, err := locale.ParseLanguage(*payload.Language)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		lang = parsed
	}
	var theme locale.Theme
	if payload.Theme != nil {
		parsed, err := locale.ParseTheme(*payload.Theme)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		theme = parsed
	}

	if lang != "" {
		_ = ws.Session.SetLanguage(lang)
	} else if payload.ToggleLang {
		ws.Session.ToggleLanguage()
	}
	if theme != "" {
		_ = ws.Session.SetTheme(theme)
	} else if payload.ToggleTheme {
		ws.Session.ToggleTheme()
	}

	utils.RespondJSON(w, http.StatusOK, ws.Session.Snapshot())
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ws, ok := middleware.WorkspaceFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "workspace missing")
		return
	}

	ws.Session.Logout(r.Context())
	utils.RespondJSON(w, http.StatusOK, ws.Session.Snapshot())
}
