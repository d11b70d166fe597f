package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/halwest-tech/kurdish-chat/backend/internal/middleware"
	authsvc "github.com/halwest-tech/kurdish-chat/backend/internal/service/auth"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/identity"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/session"
	"github.com/halwest-tech/kurdish-chat/backend/pkg/utils"
)

// Handler 暴露登录/注册表单。
type Handler struct{}

// New 创建认证处理器
func New() *Handler {
	return &Handler{}
}

// RegisterRoutes 注册认证路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Get("/", h.handleState)
		r.Put("/mode", h.handleMode)
		r.Post("/submit", h.handleSubmit)
	})
}

type stateResponse struct {
	Mode       authsvc.Mode   `json:"mode"`
	Status     authsvc.Status `json:"status"`
	RetryCount int            `json:"retryCount"`
	Error      string         `json:"error,omitempty"`
	Code       string         `json:"code,omitempty"`
}

func stateOf(a *authsvc.Authenticator) stateResponse {
	resp := stateResponse{
		Mode:       a.Mode(),
		Status:     a.Status(),
		RetryCount: a.RetryCount(),
	}
	if failure := a.Err(); failure != nil {
		resp.Error = failure.Message
		resp.Code = failure.Code
	}
	return resp
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	ws, ok := middleware.WorkspaceFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "workspace missing")
		return
	}
	utils.RespondJSON(w, http.StatusOK, stateOf(ws.Auth))
}

type modeRequest struct {
	Mode   string `json:"mode"`
	Toggle bool   `json:"toggle"`
}

func (h *Handler) handleMode(w http.ResponseWriter, r *http.Request) {
	ws, ok := middleware.WorkspaceFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "workspace missing")
		return
	}

	var payload modeRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if payload.Toggle {
		ws.Auth.ToggleMode()
	} else {
		mode, err := authsvc.ParseMode(payload.Mode)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		_ = ws.Auth.SetMode(mode)
	}

	utils.RespondJSON(w, http.StatusOK, stateOf(ws.Auth))
}

type submitResponse struct {
	User    identity.User `json:"user"`
	Session session.State `json:"session"`
	Auth    stateResponse `json:"auth"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ws, ok := middleware.WorkspaceFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "workspace missing")
		return
	}

	var form authsvc.Form
	if err := utils.DecodeJSON(w, r, &form); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if form.Mode != "" {
		mode, err := authsvc.ParseMode(string(form.Mode))
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		form.Mode = mode
	}

	user, err := ws.Auth.Submit(r.Context(), form)
	if err != nil {
		if errors.Is(err, authsvc.ErrInProgress) {
			utils.RespondError(w, http.StatusConflict, err.Error())
			return
		}
		var failure *authsvc.Failure
		if errors.As(err, &failure) {
			utils.RespondJSON(w, http.StatusBadRequest, map[string]string{
				"error": failure.Message,
				"code":  failure.Code,
			})
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, submitResponse{
		User:    user,
		Session: ws.Session.Snapshot(),
		Auth:    stateOf(ws.Auth),
	})
}
