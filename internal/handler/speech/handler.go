package speech

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/halwest-tech/kurdish-chat/backend/internal/logger"
	"github.com/halwest-tech/kurdish-chat/backend/internal/model/speech"
	speechsvc "github.com/halwest-tech/kurdish-chat/backend/internal/service/speech"
	"github.com/halwest-tech/kurdish-chat/backend/pkg/utils"
)

const maxUploadSize = 32 << 20 // 32MB

// SpeechService 抽象语音业务，便于测试与替换实现
type SpeechService interface {
	Enabled() bool
	Transcribe(ctx context.Context, req *speech.TranscriptionRequest) (*speech.TranscriptionResponse, error)
	Synthesize(ctx context.Context, req *speech.SynthesisRequest) (*speech.SynthesisResponse, error)
}

// Handler 语音服务的HTTP处理器
type Handler struct {
	speechSvc SpeechService
}

// New 创建语音处理器
func New(speechSvc SpeechService) *Handler {
	return &Handler{speechSvc: speechSvc}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/speech", func(speechRouter chi.Router) {
		speechRouter.Post("/transcribe", h.handleTranscribe)
		speechRouter.Post("/synthesize", h.handleSynthesize)
		speechRouter.Get("/health", h.handleHealth)
	})
}

func (h *Handler) available(w http.ResponseWriter) bool {
	if h.speechSvc == nil || !h.speechSvc.Enabled() {
		utils.RespondError(w, http.StatusServiceUnavailable, "speech service not configured")
		return false
	}
	return true
}

// handleTranscribe 处理语音转文本请求，录音以 multipart 字段 file 上传
func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read audio")
		return
	}
	if len(audio) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "audio is empty")
		return
	}

	resp, err := h.speechSvc.Transcribe(r.Context(), &speech.TranscriptionRequest{
		Audio:    audio,
		Filename: header.Filename,
		Language: r.FormValue("language"),
	})
	if err != nil {
		h.respondUpstreamError(w, "transcription", err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

// handleSynthesize 处理文本转语音请求，成功时直接返回 WAV 音频
func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	var req speech.SynthesisRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	resp, err := h.speechSvc.Synthesize(r.Context(), &req)
	if err != nil {
		h.respondUpstreamError(w, "synthesis", err)
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "audio/" + resp.Format
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.AudioData)))
	w.Header().Set("Content-Disposition", "inline; filename=speech."+resp.Format)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp.AudioData); err != nil {
		logger.Warn("failed to write audio response", "component", "speech", "error", err)
	}
}

func (h *Handler) respondUpstreamError(w http.ResponseWriter, operation string, err error) {
	logger.Error("speech request failed", "component", "speech", "operation", operation, "error", err)
	switch {
	case errors.Is(err, speechsvc.ErrNotConfigured):
		utils.RespondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		utils.RespondError(w, http.StatusGatewayTimeout, operation+" timed out")
	default:
		utils.RespondError(w, http.StatusBadGateway, operation+" failed")
	}
}

// handleHealth 健康检查端点
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if h.speechSvc == nil || !h.speechSvc.Enabled() {
		status = "disabled"
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"service": "speech",
	})
}
