package voice

import (
	"context"
	"errors"
	"sync"

	"github.com/halwest-tech/kurdish-chat/backend/internal/locale"
	"github.com/halwest-tech/kurdish-chat/backend/internal/logger"
	"github.com/halwest-tech/kurdish-chat/backend/internal/model/speech"
)

// State 录音状态机：idle → recording → stopped（保留录音缓冲）。
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateStopped   State = "stopped"
)

var (
	ErrBusy                = errors.New("microphone is already in use")
	ErrNotRecording        = errors.New("not recording")
	ErrNothingToTranscribe = errors.New("no finished recording to transcribe")
	ErrUnsupportedLanguage = errors.New("voice capture is only available in Sorani")
	ErrClosed              = errors.New("recorder closed")
)

// Failure is a localized error surfaced next to the microphone button.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

// Transcriber converts recorded audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, req *speech.TranscriptionRequest) (*speech.TranscriptionResponse, error)
}

// InputSink receives transcribed text, normally the chat input field.
type InputSink interface {
	SetInput(text string)
}

// LanguageSource reports the current display language.
type LanguageSource interface {
	Language() locale.Language
}

// Snapshot describes the recorder for the UI.
type Snapshot struct {
	State        State  `json:"state"`
	HasRecording bool   `json:"hasRecording"`
	Bytes        int    `json:"bytes"`
	Transcribing bool   `json:"transcribing"`
	Error        string `json:"error,omitempty"`
}

// Recorder captures one recording at a time and hands it to the transcriber.
type Recorder struct {
	transcriber Transcriber
	sink        InputSink
	lang        LanguageSource

	mu           sync.Mutex
	state        State
	opening      bool
	transcribing bool
	source       Source
	collected    chan []byte
	buffer       []byte
	failure      *Failure
	closed       bool
}

// NewRecorder creates an idle recorder.
func NewRecorder(transcriber Transcriber, sink InputSink, lang LanguageSource) *Recorder {
	return &Recorder{
		transcriber: transcriber,
		sink:        sink,
		lang:        lang,
		state:       StateIdle,
	}
}

// Start acquires mic and begins buffering. A finished but untranscribed
// recording is discarded.
func (r *Recorder) Start(ctx context.Context, mic Microphone) error {
	lang := r.lang.Language()
	if lang != locale.Sorani {
		return ErrUnsupportedLanguage
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if r.state == StateRecording || r.opening {
		r.mu.Unlock()
		return ErrBusy
	}
	r.opening = true
	r.mu.Unlock()

	src, err := mic.Open(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.opening = false
	if err == nil && r.closed {
		_ = src.Close()
		return ErrClosed
	}
	if err != nil {
		logger.Warn("microphone unavailable", "component", "voice", "error", err)
		r.failure = &Failure{Message: locale.T(lang, locale.MicrophonePermission), Err: err}
		return r.failure
	}

	collected := make(chan []byte, 1)
	go collect(src, collected)

	r.state = StateRecording
	r.source = src
	r.collected = collected
	r.buffer = nil
	r.failure = nil
	return nil
}

func collect(src Source, out chan<- []byte) {
	var buf []byte
	for chunk := range src.Chunks() {
		buf = append(buf, chunk...)
	}
	out <- buf
}

// Stop releases the microphone and keeps the recording for transcription.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	// source 为空说明另一次 Stop 或 Cancel 已接管麦克风
	if r.state != StateRecording || r.source == nil {
		r.mu.Unlock()
		return ErrNotRecording
	}
	src, collected := r.source, r.collected
	r.source, r.collected = nil, nil
	r.mu.Unlock()

	_ = src.Close()
	data := <-collected

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		// 停止期间被取消
		return ErrNotRecording
	}
	r.state = StateStopped
	r.buffer = data
	return nil
}

// Cancel releases the microphone if held, discards any recording and returns to idle.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	src, collected := r.source, r.collected
	r.source, r.collected = nil, nil
	r.state = StateIdle
	r.buffer = nil
	r.failure = nil
	r.mu.Unlock()

	if src != nil {
		_ = src.Close()
		<-collected
	}
}

// Transcribe uploads the finished recording. On success the text goes to the
// input sink and the recorder returns to idle; on any failure the recording is
// kept so the user can retry.
func (r *Recorder) Transcribe(ctx context.Context) (string, error) {
	lang := r.lang.Language()

	r.mu.Lock()
	if r.state != StateStopped || len(r.buffer) == 0 {
		r.mu.Unlock()
		return "", ErrNothingToTranscribe
	}
	if r.transcribing {
		r.mu.Unlock()
		return "", ErrBusy
	}
	r.transcribing = true
	audio := r.buffer
	r.mu.Unlock()

	resp, err := r.transcriber.Transcribe(ctx, &speech.TranscriptionRequest{
		Audio:    audio,
		Filename: "audio.wav",
	})
	if err == nil && (resp == nil || resp.Text == "") {
		err = errors.New("no transcription in response")
	}

	r.mu.Lock()
	r.transcribing = false
	if err != nil {
		logger.Warn("transcription failed", "component", "voice", "error", err)
		r.failure = &Failure{Message: locale.T(lang, locale.TranscriptionFailed), Err: err}
		failure := r.failure
		r.mu.Unlock()
		return "", failure
	}
	if r.state == StateStopped {
		r.state = StateIdle
		r.buffer = nil
	}
	r.failure = nil
	r.mu.Unlock()

	r.sink.SetInput(resp.Text)
	return resp.Text, nil
}

// Snapshot returns the current state.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := Snapshot{
		State:        r.state,
		HasRecording: r.state == StateStopped && len(r.buffer) > 0,
		Bytes:        len(r.buffer),
		Transcribing: r.transcribing,
	}
	if r.failure != nil {
		snap.Error = r.failure.Message
	}
	return snap
}

// Close releases everything the recorder holds; later Start calls fail with ErrClosed.
func (r *Recorder) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.Cancel()
}
