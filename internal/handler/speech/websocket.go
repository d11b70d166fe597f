package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/halwest-tech/kurdish-chat/backend/internal/locale"
	"github.com/halwest-tech/kurdish-chat/backend/internal/logger"
	"github.com/halwest-tech/kurdish-chat/backend/internal/middleware"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/voice"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/workspace"
)

const (
	readTimeout     = 60 * time.Second
	pingInterval    = 54 * time.Second
	writeTimeout    = 10 * time.Second
	audioBufferSize = 64
)

// WebSocketHandler 把浏览器的麦克风与扬声器接到工作区的录音机和朗读器上。
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	conns    *ConnectionManager
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(checkOrigin func(r *http.Request) bool) *WebSocketHandler {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns: NewConnectionManager(),
	}
}

// Connections 返回连接管理器
func (h *WebSocketHandler) Connections() *ConnectionManager {
	return h.conns
}

// RegisterWebSocketRoutes 注册WebSocket路由，需挂在工作区中间件之后
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/voice/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// StartMessage 开始录音；Granted 为浏览器授予的麦克风权限
type StartMessage struct {
	Granted bool `json:"granted"`
}

// AudioMessage 录音数据帧，JSON 中为 base64
type AudioMessage struct {
	AudioData []byte `json:"audioData"`
}

// SpeakMessage 朗读请求
type SpeakMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// voiceConn 是单个 WebSocket 连接，写操作串行化。
type voiceConn struct {
	conn *websocket.Conn
	ws   *workspace.Workspace

	writeMu sync.Mutex

	mu     sync.Mutex
	source *voice.StreamSource
}

func (c *voiceConn) send(msgType string, data interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(outgoingMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

func (c *voiceConn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

func (c *voiceConn) sendState() {
	if err := c.send("state", c.ws.Recorder.Snapshot()); err != nil {
		logger.Debug("write state failed", "component", "websocket", "error", err)
	}
}

func (c *voiceConn) sendError(err error) {
	message := err.Error()
	var failure *voice.Failure
	switch {
	case errors.As(err, &failure):
		message = failure.Message
	case errors.Is(err, voice.ErrUnsupportedLanguage):
		message = locale.T(c.ws.Session.Language(), locale.VoiceUnavailable)
	}
	if writeErr := c.send("error", map[string]string{"message": message}); writeErr != nil {
		logger.Debug("write error failed", "component", "websocket", "error", writeErr)
	}
}

func (c *voiceConn) setSource(src *voice.StreamSource) {
	c.mu.Lock()
	c.source = src
	c.mu.Unlock()
}

func (c *voiceConn) currentSource() *voice.StreamSource {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

func (c *voiceConn) close(reason string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason), time.Now().Add(time.Second))
	_ = c.conn.Close()
}

// Play 实现 voice.Player，把合成的音频推给浏览器播放。
func (c *voiceConn) Play(_ context.Context, audio []byte, format string) error {
	return c.send("tts", map[string]any{
		"audioData": audio,
		"format":    format,
	})
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, ok := middleware.WorkspaceFrom(r.Context())
	if !ok {
		http.Error(w, "workspace missing", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "component", "websocket", "error", err)
		return
	}

	vc := &voiceConn{conn: conn, ws: ws}
	h.conns.Add(ws.ID, vc)
	detach := ws.Speaker.Attach(vc)

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		detach()
		// 断开时释放麦克风
		if ws.Recorder.Snapshot().State == voice.StateRecording {
			ws.Recorder.Cancel()
		}
		h.conns.Remove(ws.ID, vc)
		_ = conn.Close()
		logger.Info("voice connection closed", "component", "websocket", "workspace", ws.ID)
	}()

	logger.Info("voice connection opened", "component", "websocket", "workspace", ws.ID)

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pingLoop(ctx, vc)
	go func() {
		// 工作区被删除时断开连接
		select {
		case <-ws.Done():
			vc.close("workspace closed")
		case <-ctx.Done():
		}
	}()

	vc.sendState()

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error", "component", "websocket", "error", err)
			}
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		h.handleMessage(ctx, vc, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, c *voiceConn, msg *inboundMessage) {
	switch msg.Type {
	case "start":
		var payload StartMessage
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				c.sendError(errors.New("invalid start message"))
				return
			}
		}
		h.handleStart(ctx, c, payload)
	case "audio":
		var payload AudioMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.sendError(errors.New("invalid audio message"))
			return
		}
		src := c.currentSource()
		if src == nil || !src.Push(payload.AudioData) {
			c.sendError(voice.ErrNotRecording)
		}
	case "stop":
		if err := c.ws.Recorder.Stop(); err != nil {
			c.sendError(err)
		}
		c.setSource(nil)
		c.sendState()
	case "cancel":
		c.ws.Recorder.Cancel()
		c.setSource(nil)
		c.sendState()
	case "transcribe":
		go h.handleTranscribe(ctx, c)
	case "speak":
		var payload SpeakMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.sendError(errors.New("invalid speak message"))
			return
		}
		go c.ws.Speaker.Speak(ctx, payload.Text)
	case "state":
		c.sendState()
	default:
		c.sendError(errors.New("unknown message type: " + msg.Type))
	}
}

func (h *WebSocketHandler) handleStart(ctx context.Context, c *voiceConn, payload StartMessage) {
	mic := voice.MicrophoneFunc(func(context.Context) (voice.Source, error) {
		if !payload.Granted {
			return nil, voice.ErrPermissionDenied
		}
		src := voice.NewStreamSource(audioBufferSize)
		c.setSource(src)
		return src, nil
	})

	if err := c.ws.Recorder.Start(ctx, mic); err != nil {
		c.sendError(err)
	}
	c.sendState()
}

func (h *WebSocketHandler) handleTranscribe(ctx context.Context, c *voiceConn) {
	text, err := c.ws.Recorder.Transcribe(ctx)
	if err != nil {
		c.sendError(err)
		c.sendState()
		return
	}
	if err := c.send("transcription", map[string]string{"text": text}); err != nil {
		logger.Debug("write transcription failed", "component", "websocket", "error", err)
	}
	c.sendState()
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, c *voiceConn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
