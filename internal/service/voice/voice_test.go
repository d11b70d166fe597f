package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/halwest-tech/kurdish-chat/backend/internal/locale"
	"github.com/halwest-tech/kurdish-chat/backend/internal/model/speech"
)

type langStub struct{ lang locale.Language }

func (l langStub) Language() locale.Language { return l.lang }

type inputStub struct{ text string }

func (i *inputStub) SetInput(text string) { i.text = text }

type transcriberStub struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
	audio []byte
}

func (t *transcriberStub) Transcribe(_ context.Context, req *speech.TranscriptionRequest) (*speech.TranscriptionResponse, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	t.audio = req.Audio
	if t.err != nil {
		return nil, t.err
	}
	return &speech.TranscriptionResponse{Text: t.text}, nil
}

func grantedMic(src *StreamSource) Microphone {
	return MicrophoneFunc(func(context.Context) (Source, error) { return src, nil })
}

func deniedMic() Microphone {
	return MicrophoneFunc(func(context.Context) (Source, error) { return nil, ErrPermissionDenied })
}

func recordSample(t *testing.T, r *Recorder) {
	t.Helper()
	src := NewStreamSource(4)
	require.NoError(t, r.Start(context.Background(), grantedMic(src)))
	require.True(t, src.Push([]byte("RIFF")))
	require.True(t, src.Push([]byte("data")))
	require.NoError(t, r.Stop())
	require.False(t, src.Push([]byte("late")), "microphone must be released after stop")
}

func TestRecorderHappyPath(t *testing.T) {
	transcriber := &transcriberStub{text: "سڵاو"}
	input := &inputStub{}
	r := NewRecorder(transcriber, input, langStub{locale.Sorani})

	require.Equal(t, StateIdle, r.Snapshot().State)
	recordSample(t, r)

	snap := r.Snapshot()
	require.Equal(t, StateStopped, snap.State)
	require.True(t, snap.HasRecording)
	require.Equal(t, 8, snap.Bytes)

	text, err := r.Transcribe(context.Background())
	require.NoError(t, err)
	require.Equal(t, "سڵاو", text)
	require.Equal(t, "سڵاو", input.text)
	require.Equal(t, []byte("RIFFdata"), transcriber.audio)

	snap = r.Snapshot()
	require.Equal(t, StateIdle, snap.State)
	require.False(t, snap.HasRecording)
}

func TestRecorderPermissionDenied(t *testing.T) {
	r := NewRecorder(&transcriberStub{}, &inputStub{}, langStub{locale.Sorani})

	err := r.Start(context.Background(), deniedMic())
	var failure *Failure
	require.True(t, errors.As(err, &failure))
	require.Equal(t, locale.T(locale.Sorani, locale.MicrophonePermission), failure.Message)
	require.ErrorIs(t, err, ErrPermissionDenied)

	snap := r.Snapshot()
	require.Equal(t, StateIdle, snap.State)
	require.Equal(t, failure.Message, snap.Error)
}

func TestRecorderTranscriptionFailureKeepsBuffer(t *testing.T) {
	cases := map[string]*transcriberStub{
		"transport":  {err: errors.New("network down")},
		"empty text": {text: ""},
	}

	for name, transcriber := range cases {
		t.Run(name, func(t *testing.T) {
			input := &inputStub{text: "unchanged"}
			r := NewRecorder(transcriber, input, langStub{locale.Sorani})
			recordSample(t, r)

			_, err := r.Transcribe(context.Background())
			var failure *Failure
			require.True(t, errors.As(err, &failure))
			require.Equal(t, locale.T(locale.Sorani, locale.TranscriptionFailed), failure.Message)

			snap := r.Snapshot()
			require.Equal(t, StateStopped, snap.State)
			require.True(t, snap.HasRecording)
			require.Equal(t, "unchanged", input.text)

			transcriber.err = nil
			transcriber.text = "retry ok"
			text, err := r.Transcribe(context.Background())
			require.NoError(t, err)
			require.Equal(t, "retry ok", text)
		})
	}
}

func TestRecorderCancel(t *testing.T) {
	transcriber := &transcriberStub{text: "x"}
	r := NewRecorder(transcriber, &inputStub{}, langStub{locale.Sorani})

	src := NewStreamSource(1)
	require.NoError(t, r.Start(context.Background(), grantedMic(src)))
	r.Cancel()
	require.False(t, src.Push([]byte("x")))
	require.Equal(t, StateIdle, r.Snapshot().State)

	recordSample(t, r)
	r.Cancel()
	require.False(t, r.Snapshot().HasRecording)

	_, err := r.Transcribe(context.Background())
	require.ErrorIs(t, err, ErrNothingToTranscribe)
	require.Equal(t, 0, transcriber.calls)
}

func TestRecorderSingleHolder(t *testing.T) {
	r := NewRecorder(&transcriberStub{}, &inputStub{}, langStub{locale.Sorani})
	src := NewStreamSource(1)
	require.NoError(t, r.Start(context.Background(), grantedMic(src)))
	defer r.Close()

	require.ErrorIs(t, r.Start(context.Background(), grantedMic(NewStreamSource(1))), ErrBusy)
	require.NoError(t, r.Stop())
	require.ErrorIs(t, r.Stop(), ErrNotRecording)
}

// gatedSource blocks Close until release is closed.
type gatedSource struct {
	*StreamSource
	closing chan struct{}
	release chan struct{}
}

func (g *gatedSource) Close() error {
	close(g.closing)
	<-g.release
	return g.StreamSource.Close()
}

func TestRecorderConcurrentStop(t *testing.T) {
	r := NewRecorder(&transcriberStub{}, &inputStub{}, langStub{locale.Sorani})
	src := &gatedSource{
		StreamSource: NewStreamSource(1),
		closing:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	mic := MicrophoneFunc(func(context.Context) (Source, error) { return src, nil })
	require.NoError(t, r.Start(context.Background(), mic))
	require.True(t, src.Push([]byte("pcm")))

	done := make(chan error, 1)
	go func() { done <- r.Stop() }()

	<-src.closing
	require.ErrorIs(t, r.Stop(), ErrNotRecording)

	close(src.release)
	require.NoError(t, <-done)
	require.Equal(t, StateStopped, r.Snapshot().State)
	require.Equal(t, 3, r.Snapshot().Bytes)
}

func TestRecorderClosedRejectsStart(t *testing.T) {
	r := NewRecorder(&transcriberStub{}, &inputStub{}, langStub{locale.Sorani})
	src := NewStreamSource(1)
	require.NoError(t, r.Start(context.Background(), grantedMic(src)))

	r.Close()
	require.False(t, src.Push([]byte("x")))
	require.ErrorIs(t, r.Start(context.Background(), grantedMic(NewStreamSource(1))), ErrClosed)
	require.Equal(t, StateIdle, r.Snapshot().State)
}

func TestRecorderOnlySorani(t *testing.T) {
	r := NewRecorder(&transcriberStub{}, &inputStub{}, langStub{locale.Kurmanji})
	require.ErrorIs(t, r.Start(context.Background(), grantedMic(NewStreamSource(1))), ErrUnsupportedLanguage)
}

type synthStub struct {
	err   error
	delay time.Duration
}

func (s synthStub) Synthesize(ctx context.Context, req *speech.SynthesisRequest) (*speech.SynthesisResponse, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &speech.SynthesisResponse{AudioData: []byte(req.Text), Format: "wav"}, nil
}

type playerStub struct {
	mu     sync.Mutex
	played []string
}

func (p *playerStub) Play(_ context.Context, audio []byte, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, string(audio))
	return nil
}

func TestSpeakerPlaysAudio(t *testing.T) {
	s := NewSpeaker(synthStub{})
	player := &playerStub{}
	detach := s.Attach(player)

	s.Speak(context.Background(), "one")
	require.Equal(t, []string{"one"}, player.played)
	require.False(t, s.Busy())

	detach()
	s.Speak(context.Background(), "two")
	require.Equal(t, []string{"one"}, player.played)
}

func TestSpeakerSwallowsFailures(t *testing.T) {
	s := NewSpeaker(synthStub{err: errors.New("tts down")})
	player := &playerStub{}
	s.Attach(player)

	s.Speak(context.Background(), "hello")
	require.Empty(t, player.played)
	require.False(t, s.Busy())
}

func TestSpeakerOverlappingRequests(t *testing.T) {
	s := NewSpeaker(synthStub{delay: 50 * time.Millisecond})
	player := &playerStub{}
	s.Attach(player)

	var wg sync.WaitGroup
	for _, text := range []string{"a", "b"} {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			s.Speak(context.Background(), text)
		}(text)
	}

	require.Eventually(t, s.Busy, time.Second, time.Millisecond)
	wg.Wait()
	require.False(t, s.Busy())
	require.ElementsMatch(t, []string{"a", "b"}, player.played)
}

func TestSpeakerLatestAttachWins(t *testing.T) {
	s := NewSpeaker(synthStub{})
	first, second := &playerStub{}, &playerStub{}
	detachFirst := s.Attach(first)
	s.Attach(second)
	detachFirst()

	s.Speak(context.Background(), "x")
	require.Empty(t, first.played)
	require.Equal(t, []string{"x"}, second.played)
}
