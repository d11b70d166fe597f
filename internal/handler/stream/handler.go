package stream

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/halwest-tech/kurdish-chat/backend/internal/logger"
	"github.com/halwest-tech/kurdish-chat/backend/internal/middleware"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/session"
	"github.com/halwest-tech/kurdish-chat/backend/pkg/utils"
)

const defaultHeartbeat = 15 * time.Second

// Handler streams session state changes via Server-Sent Events.
type Handler struct {
	heartbeat time.Duration
}

// New creates a new stream handler
func New() *Handler {
	return &Handler{heartbeat: defaultHeartbeat}
}

// RegisterRoutes 注册 SSE 路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session/events", h.handleSessionEvents)
}

// handleSessionEvents 先推送当前状态，随后推送每次变化，并定期发送心跳。
func (h *Handler) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	ws, ok := middleware.WorkspaceFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "workspace missing")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// 只保留最新状态，慢客户端不会阻塞控制器。
	updates := make(chan session.State, 1)
	unsubscribe := ws.Session.OnChange(func(state session.State) {
		select {
		case updates <- state:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- state:
			default:
			}
		}
	})
	defer unsubscribe()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	logger.Debug("session stream opened", "component", "stream", "workspace", ws.ID)

	if err := utils.SendSSEEvent(w, flusher, "session", ws.Session.Snapshot()); err != nil {
		logger.Warn("session stream write failed", "component", "stream", "error", err)
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("session stream closed", "component", "stream", "workspace", ws.ID)
			return
		case <-ws.Done():
			logger.Debug("workspace closed, ending session stream", "component", "stream", "workspace", ws.ID)
			return
		case state := <-updates:
			if err := utils.SendSSEEvent(w, flusher, "session", state); err != nil {
				logger.Warn("session stream write failed", "component", "stream", "error", err)
				return
			}
		case t := <-ticker.C:
			if err := utils.SendSSEChunk(w, flusher, map[string]any{
				"event": "heartbeat",
				"time":  t.UTC().Format(time.RFC3339),
			}); err != nil {
				return
			}
		}
	}
}
