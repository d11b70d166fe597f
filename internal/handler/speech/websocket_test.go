package speech

import (
	"context"
	"encoding/base64"
	"errors"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/halwest-tech/kurdish-chat/backend/internal/locale"
	"github.com/halwest-tech/kurdish-chat/backend/internal/middleware"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/identity"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/voice"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/workspace"
)

type received struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type voiceFixture struct {
	t        *testing.T
	registry *workspace.Registry
	ws       *workspace.Workspace
	conn   *websocket.Conn
	handle *WebSocketHandler
}

func newVoiceFixture(t *testing.T, svc *fakeSpeechService) *voiceFixture {
	t.Helper()
	registry := workspace.NewRegistry(workspace.Dependencies{
		Provider: identity.NewLocalProvider("secret", time.Hour),
		Speech:   svc,
	})
	ws := registry.Create()

	handler := NewWebSocketHandler(nil)
	r := chi.NewRouter()
	r.Use(middleware.Workspace(registry))
	handler.RegisterWebSocketRoutes(r)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/voice/ws?clientId=" + ws.ID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	f := &voiceFixture{t: t, registry: registry, ws: ws, conn: conn, handle: handler}
	f.expect("state")
	return f
}

func (f *voiceFixture) write(msgType string, data any) {
	f.t.Helper()
	msg := map[string]any{"type": msgType}
	if data != nil {
		msg["data"] = data
	}
	if err := f.conn.WriteJSON(msg); err != nil {
		f.t.Fatalf("write %s err: %v", msgType, err)
	}
}

func (f *voiceFixture) expect(msgType string) json.RawMessage {
	f.t.Helper()
	_ = f.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg received
		if err := f.conn.ReadJSON(&msg); err != nil {
			f.t.Fatalf("waiting for %s: %v", msgType, err)
		}
		if msg.Type == msgType {
			return msg.Data
		}
	}
}

func (f *voiceFixture) expectState(state voice.State) voice.Snapshot {
	f.t.Helper()
	var snap voice.Snapshot
	if err := json.Unmarshal(f.expect("state"), &snap); err != nil {
		f.t.Fatalf("decode state: %v", err)
	}
	if snap.State != state {
		f.t.Fatalf("expected state %s, got %+v", state, snap)
	}
	return snap
}

func TestVoiceRecordAndTranscribe(t *testing.T) {
	svc := &fakeSpeechService{enabled: true, transcribeText: "سڵاو"}
	f := newVoiceFixture(t, svc)

	f.write("start", map[string]bool{"granted": true})
	f.expectState(voice.StateRecording)

	f.write("audio", map[string]string{"audioData": base64.StdEncoding.EncodeToString([]byte("abc"))})
	f.write("audio", map[string]string{"audioData": base64.StdEncoding.EncodeToString([]byte("def"))})
	f.write("stop", nil)
	snap := f.expectState(voice.StateStopped)
	if !snap.HasRecording || snap.Bytes != 6 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	f.write("transcribe", nil)
	var result map[string]string
	_ = json.Unmarshal(f.expect("transcription"), &result)
	if result["text"] != "سڵاو" {
		t.Fatalf("unexpected transcription %v", result)
	}
	f.expectState(voice.StateIdle)

	if f.ws.Chat.Input() != "سڵاو" {
		t.Fatalf("expected transcription in chat input, got %q", f.ws.Chat.Input())
	}
	if string(svc.transcribeReq.Audio) != "abcdef" {
		t.Fatalf("unexpected audio %q", svc.transcribeReq.Audio)
	}
}

func TestVoicePermissionDenied(t *testing.T) {
	f := newVoiceFixture(t, &fakeSpeechService{enabled: true})

	f.write("start", map[string]bool{"granted": false})
	var errMsg map[string]string
	_ = json.Unmarshal(f.expect("error"), &errMsg)
	if errMsg["message"] != locale.T(locale.Sorani, locale.MicrophonePermission) {
		t.Fatalf("unexpected error %v", errMsg)
	}
	f.expectState(voice.StateIdle)
}

func TestVoiceOnlyInSorani(t *testing.T) {
	f := newVoiceFixture(t, &fakeSpeechService{enabled: true})
	if err := f.ws.Session.SetLanguage(locale.Kurmanji); err != nil {
		t.Fatalf("SetLanguage err: %v", err)
	}

	f.write("start", map[string]bool{"granted": true})
	var errMsg map[string]string
	_ = json.Unmarshal(f.expect("error"), &errMsg)
	if errMsg["message"] != locale.T(locale.Kurmanji, locale.VoiceUnavailable) {
		t.Fatalf("unexpected error %v", errMsg)
	}
}

func TestVoiceSpeakStreamsAudio(t *testing.T) {
	f := newVoiceFixture(t, &fakeSpeechService{enabled: true})

	f.write("speak", map[string]string{"text": "سڵاو"})
	var tts struct {
		AudioData []byte `json:"audioData"`
		Format    string `json:"format"`
	}
	if err := json.Unmarshal(f.expect("tts"), &tts); err != nil {
		t.Fatalf("decode tts: %v", err)
	}
	if string(tts.AudioData) != "RIFFwav" || tts.Format != "wav" {
		t.Fatalf("unexpected tts %+v", tts)
	}
}

func TestVoiceUnknownMessage(t *testing.T) {
	f := newVoiceFixture(t, &fakeSpeechService{enabled: true})

	f.write("dance", nil)
	f.expect("error")
}

func TestConnectionManagerReplacesPrevious(t *testing.T) {
	f := newVoiceFixture(t, &fakeSpeechService{enabled: true})
	if f.handle.Connections().Count() != 1 {
		t.Fatalf("expected one connection")
	}

	f.conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for f.handle.Connections().Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if f.handle.Connections().Count() != 0 {
		t.Fatalf("expected connection removed after close")
	}
}

func TestVoiceConnectionClosedWithWorkspace(t *testing.T) {
	f := newVoiceFixture(t, &fakeSpeechService{enabled: true})

	if err := f.registry.Remove(f.ws.ID); err != nil {
		t.Fatalf("Remove err: %v", err)
	}

	_ = f.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg received
		err := f.conn.ReadJSON(&msg)
		if err == nil {
			continue
		}
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			t.Fatalf("expected normal close, got %v", err)
		}
		break
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.handle.Connections().Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if f.handle.Connections().Count() != 0 {
		t.Fatalf("expected connection removed after workspace teardown")
	}
	if err := f.ws.Recorder.Start(context.Background(), nil); !errors.Is(err, voice.ErrClosed) {
		t.Fatalf("expected closed recorder, got %v", err)
	}
}

var _ voice.Player = (*voiceConn)(nil)
