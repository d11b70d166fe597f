package workspace

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/halwest-tech/kurdish-chat/backend/internal/middleware"
	workspacesvc "github.com/halwest-tech/kurdish-chat/backend/internal/service/workspace"
	"github.com/halwest-tech/kurdish-chat/backend/pkg/utils"
)

// Handler 管理浏览器标签页对应的工作区。
type Handler struct {
	registry *workspacesvc.Registry
}

// New 创建工作区处理器
func New(registry *workspacesvc.Registry) *Handler {
	return &Handler{registry: registry}
}

// RegisterRoutes 注册工作区路由，这些路由不经过工作区中间件。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/workspaces", h.handleCreate)
	r.Put("/workspaces/{id}", h.handleResume)
	r.Delete("/workspaces/{id}", h.handleDelete)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ws := h.registry.Create()
	w.Header().Set(middleware.ClientIDHeader, ws.ID)
	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"id":        ws.ID,
		"createdAt": ws.CreatedAt,
		"session":   ws.Session.Snapshot(),
	})
}

// handleResume 让刷新后的标签页沿用保存在本地的 id；服务重启后按原 id 重建。
func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	ws, created, err := h.registry.GetOrCreate(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, workspacesvc.ErrInvalidID) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	w.Header().Set(middleware.ClientIDHeader, ws.ID)
	utils.RespondJSON(w, status, map[string]any{
		"id":        ws.ID,
		"createdAt": ws.CreatedAt,
		"session":   ws.Session.Snapshot(),
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.registry.Remove(id); err != nil {
		if errors.Is(err, workspacesvc.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "workspace not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
