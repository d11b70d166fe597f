package chat

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/halwest-tech/kurdish-chat/backend/internal/middleware"
	"github.com/halwest-tech/kurdish-chat/backend/internal/model/chat"
	chatService "github.com/halwest-tech/kurdish-chat/backend/internal/service/chat"
	"github.com/halwest-tech/kurdish-chat/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct{}

// New 创建聊天处理器
func New() *Handler {
	return &Handler{}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Put("/{id}/select", h.handleSelect)
		r.Delete("/{id}", h.handleDelete)
		r.Get("/{id}/messages", h.handleTranscript)
	})
	r.Get("/messages", h.handleVisibleTranscript)
	r.Post("/messages", h.handleSend)
	r.Get("/chat/input", h.handleGetInput)
	r.Put("/chat/input", h.handleSetInput)
	r.Put("/chat/telegram", h.handleTelegram)
}

type listResponse struct {
	Conversations []chat.Conversation `json:"conversations"`
	Selected      *int                `json:"selected"`
	Pending       bool                `json:"pending"`
}

func listOf(svc *chatService.Service) listResponse {
	resp := listResponse{Conversations: svc.Conversations(), Pending: svc.Pending()}
	if id, ok := svc.Selected(); ok {
		resp.Selected = &id
	}
	return resp
}

func chatOf(w http.ResponseWriter, r *http.Request) (*chatService.Service, bool) {
	ws, ok := middleware.WorkspaceFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "workspace missing")
		return nil, false
	}
	return ws.Chat, true
}

func conversationID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		utils.RespondError(w, http.StatusBadRequest, "invalid conversation id")
		return 0, false
	}
	return id, true
}

// respondServiceError 将服务层错误映射为状态码
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrEmptyInput):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chatService.ErrConversationNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrSendPending):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, chatService.ErrClosed):
		utils.RespondError(w, http.StatusGone, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	svc, ok := chatOf(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, listOf(svc))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	svc, ok := chatOf(w, r)
	if !ok {
		return
	}
	conv, err := svc.CreateConversation()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, conv)
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	svc, ok := chatOf(w, r)
	if !ok {
		return
	}
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	if err := svc.Select(id); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, listOf(svc))
}

// handleDelete 需要 confirm=true；否则返回本地化的确认提示且不删除。
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	svc, ok := chatOf(w, r)
	if !ok {
		return
	}
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	deleted, err := svc.DeleteConversation(id, func() bool { return confirmed })
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !deleted {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"deleted": false,
			"prompt":  svc.ConfirmPrompt(),
		})
		return
	}

	resp := listOf(svc)
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"deleted":       true,
		"conversations": resp.Conversations,
		"selected":      resp.Selected,
	})
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	svc, ok := chatOf(w, r)
	if !ok {
		return
	}
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	messages, err := svc.TranscriptOf(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *Handler) handleVisibleTranscript(w http.ResponseWriter, r *http.Request) {
	svc, ok := chatOf(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"messages": svc.Transcript(),
		"pending":  svc.Pending(),
	})
}

// handleSend 发送消息并等待助手回复；失败时回复内容为本地化错误提示。
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	svc, ok := chatOf(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text *string `json:"text"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// text 缺省时发送当前草稿
	text := svc.Input()
	if payload.Text != nil {
		text = *payload.Text
	}

	// 发送不可中止：客户端断开后回复仍写入工作区的会话记录，超时由后端负责
	reply, err := svc.Send(context.WithoutCancel(r.Context()), text)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"reply":    reply,
		"messages": svc.Transcript(),
	})
}

func (h *Handler) handleGetInput(w http.ResponseWriter, r *http.Request) {
	svc, ok := chatOf(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"text": svc.Input()})
}

func (h *Handler) handleSetInput(w http.ResponseWriter, r *http.Request) {
	svc, ok := chatOf(w, r)
	if !ok {
		return
	}
	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	svc.SetInput(payload.Text)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"text": svc.Input()})
}

func (h *Handler) handleTelegram(w http.ResponseWriter, r *http.Request) {
	svc, ok := chatOf(w, r)
	if !ok {
		return
	}
	var payload struct {
		TelegramID string `json:"telegramId"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	svc.SetTelegramID(payload.TelegramID)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"telegramId": svc.TelegramID()})
}
