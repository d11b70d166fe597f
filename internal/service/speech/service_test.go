package speech

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	speechmodel "github.com/halwest-tech/kurdish-chat/backend/internal/model/speech"
)

func newTestService(baseURL string) *Service {
	return NewService(&speechmodel.SpeechConfig{BaseURL: baseURL, AccessToken: "pk-test"})
}

func TestSynthesizeSendsExpectedPayload(t *testing.T) {
	var payload speechmodel.SynthesisPayload
	var auth, accept, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		accept = r.Header.Get("Accept")
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFFdata"))
	}))
	defer server.Close()

	svc := newTestService(server.URL)
	resp, err := svc.Synthesize(context.Background(), &speechmodel.SynthesisRequest{Text: "سڵاو"})
	if err != nil {
		t.Fatalf("Synthesize err: %v", err)
	}

	if string(resp.AudioData) != "RIFFdata" || resp.Format != "wav" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if path != "/audio/speech" || auth != "Bearer pk-test" || accept != "audio/wav" {
		t.Fatalf("unexpected request path=%s auth=%s accept=%s", path, auth, accept)
	}
	want := speechmodel.SynthesisPayload{
		Model:          "tts-mini-exp",
		Input:          "سڵاو",
		Language:       "ckb",
		Voice:          "default",
		ResponseFormat: "wav",
		Speed:          1.0,
		SampleRate:     16000,
	}
	if payload != want {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestSynthesizeStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestService(server.URL).Synthesize(context.Background(), &speechmodel.SynthesisRequest{Text: "x"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestSynthesizeRejectsOversizedAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFF0123456789"))
	}))
	defer server.Close()

	svc := newTestService(server.URL)
	svc.maxAudio = 8
	_, err := svc.Synthesize(context.Background(), &speechmodel.SynthesisRequest{Text: "x"})
	if !errors.Is(err, ErrAudioTooLarge) {
		t.Fatalf("expected ErrAudioTooLarge, got %v", err)
	}

	svc.maxAudio = 14
	resp, err := svc.Synthesize(context.Background(), &speechmodel.SynthesisRequest{Text: "x"})
	if err != nil {
		t.Fatalf("audio at the limit must pass, got %v", err)
	}
	if string(resp.AudioData) != "RIFF0123456789" {
		t.Fatalf("unexpected audio %q", resp.AudioData)
	}
}

func TestTranscribeSendsMultipartForm(t *testing.T) {
	fields := map[string]string{}
	var fileName string
	var fileData []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		for _, key := range []string{"model", "response_format", "language"} {
			fields[key] = r.FormValue(key)
		}
		file, header, err := r.FormFile("file")
		if err == nil {
			fileName = header.Filename
			fileData, _ = io.ReadAll(file)
			file.Close()
		}
		_, _ = w.Write([]byte(`{"text":"چۆنی"}`))
	}))
	defer server.Close()

	resp, err := newTestService(server.URL).Transcribe(context.Background(), &speechmodel.TranscriptionRequest{Audio: []byte("wav-bytes")})
	if err != nil {
		t.Fatalf("Transcribe err: %v", err)
	}
	if resp.Text != "چۆنی" {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if fields["model"] != "asr-large-beta" || fields["response_format"] != "json" || fields["language"] != "ckb" {
		t.Fatalf("unexpected form fields %+v", fields)
	}
	if fileName != "audio.wav" || string(fileData) != "wav-bytes" {
		t.Fatalf("unexpected file %s %q", fileName, fileData)
	}
}

func TestTranscribeEmptyTextIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	resp, err := newTestService(server.URL).Transcribe(context.Background(), &speechmodel.TranscriptionRequest{Audio: []byte("a")})
	if err != nil {
		t.Fatalf("Transcribe err: %v", err)
	}
	if resp.Text != "" {
		t.Fatalf("expected empty text, got %q", resp.Text)
	}
}

func TestTranscribeUndecodableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	if _, err := newTestService(server.URL).Transcribe(context.Background(), &speechmodel.TranscriptionRequest{Audio: []byte("a")}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestMissingCredentials(t *testing.T) {
	svc := NewService(&speechmodel.SpeechConfig{})
	if svc.Enabled() {
		t.Fatal("service without credentials should be disabled")
	}
	if _, err := svc.Synthesize(context.Background(), &speechmodel.SynthesisRequest{Text: "x"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := svc.Transcribe(context.Background(), &speechmodel.TranscriptionRequest{Audio: []byte("a")}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	fallback := NewService(&speechmodel.SpeechConfig{APIKey: " key "})
	if !fallback.Enabled() {
		t.Fatal("api key should be accepted as bearer credential")
	}
}
