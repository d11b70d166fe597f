package workspace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/halwest-tech/kurdish-chat/backend/internal/locale"
	"github.com/halwest-tech/kurdish-chat/backend/internal/model/speech"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/assistant"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/auth"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/identity"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/profile"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/voice"
)

type echoBackend struct{}

func (echoBackend) Send(_ context.Context, req assistant.Request) (assistant.Reply, error) {
	return assistant.Reply{Content: []assistant.Content{{Text: "echo: " + req.Message}}}, nil
}

type speechStub struct{}

func (speechStub) Transcribe(context.Context, *speech.TranscriptionRequest) (*speech.TranscriptionResponse, error) {
	return &speech.TranscriptionResponse{Text: "voice text"}, nil
}

func (speechStub) Synthesize(context.Context, *speech.SynthesisRequest) (*speech.SynthesisResponse, error) {
	return &speech.SynthesisResponse{AudioData: []byte("wav"), Format: "wav"}, nil
}

func testDeps() Dependencies {
	return Dependencies{
		Provider:    identity.NewLocalProvider("secret", time.Hour),
		Profiles:    profile.NewMemoryStore(),
		Backend:     echoBackend{},
		Speech:      speechStub{},
		AuthOptions: auth.Options{MaxRetries: 3, RetryDelay: time.Millisecond},
		TelegramID:  "42",
	}
}

func TestRegistryLifecycle(t *testing.T) {
	reg := NewRegistry(testDeps())

	ws := reg.Create()
	if ws.ID == "" {
		t.Fatal("expected workspace id")
	}
	got, err := reg.Get(ws.ID)
	if err != nil || got != ws {
		t.Fatalf("Get returned %v, %v", got, err)
	}

	if err := reg.Remove(ws.ID); err != nil {
		t.Fatalf("Remove err: %v", err)
	}
	if _, err := reg.Get(ws.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := reg.Remove(ws.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second remove, got %v", err)
	}
}

func TestGetOrCreate(t *testing.T) {
	reg := NewRegistry(testDeps())
	id := uuid.NewString()

	ws, created, err := reg.GetOrCreate(id)
	if err != nil || !created || ws.ID != id {
		t.Fatalf("unexpected first GetOrCreate %v %v %v", ws, created, err)
	}
	again, created, err := reg.GetOrCreate(id)
	if err != nil || created || again != ws {
		t.Fatal("second GetOrCreate should return the same workspace")
	}
	if _, _, err := reg.GetOrCreate("not-a-uuid"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestWorkspaceWiring(t *testing.T) {
	reg := NewRegistry(testDeps())
	ws := reg.Create()
	defer reg.CloseAll()

	if state := ws.Session.Snapshot(); state.Loading || state.Authenticated {
		t.Fatalf("session should be ready and signed out, got %+v", state)
	}

	_, err := ws.Auth.Submit(context.Background(), auth.Form{
		Mode:            auth.ModeRegister,
		Email:           "a@b.krd",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		Name:            "Shene",
	})
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	if !ws.Session.Snapshot().Authenticated {
		t.Fatal("sign-up should authenticate the session")
	}

	if ws.Chat.TelegramID() != "42" {
		t.Fatalf("expected default telegram id, got %q", ws.Chat.TelegramID())
	}

	src := voice.NewStreamSource(1)
	mic := voice.MicrophoneFunc(func(context.Context) (voice.Source, error) { return src, nil })
	if err := ws.Recorder.Start(context.Background(), mic); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	src.Push([]byte("audio"))
	if err := ws.Recorder.Stop(); err != nil {
		t.Fatalf("Stop err: %v", err)
	}
	if _, err := ws.Recorder.Transcribe(context.Background()); err != nil {
		t.Fatalf("Transcribe err: %v", err)
	}
	if ws.Chat.Input() != "voice text" {
		t.Fatalf("transcription should land in the chat input, got %q", ws.Chat.Input())
	}

	if err := ws.Session.SetLanguage(locale.Kurmanji); err != nil {
		t.Fatalf("SetLanguage err: %v", err)
	}
	conv, _ := ws.Chat.CreateConversation()
	if conv.Title != "Chat 2" {
		t.Fatalf("chat should follow session language, got %q", conv.Title)
	}
}

func TestCloseAll(t *testing.T) {
	reg := NewRegistry(testDeps())
	reg.Create()
	reg.Create()
	reg.CloseAll()
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", reg.Len())
	}
}
