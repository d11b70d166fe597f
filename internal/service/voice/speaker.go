package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/halwest-tech/kurdish-chat/backend/internal/logger"
	"github.com/halwest-tech/kurdish-chat/backend/internal/model/speech"
)

// ErrNoPlayer is logged when audio arrives but no client is attached to play it.
var ErrNoPlayer = errors.New("no audio player attached")

// Synthesizer converts text to audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req *speech.SynthesisRequest) (*speech.SynthesisResponse, error)
}

// Player plays synthesized audio on the client.
type Player interface {
	Play(ctx context.Context, audio []byte, format string) error
}

// Speaker reads assistant messages aloud. Requests are independent; a second
// Speak does not wait for or cancel the first.
type Speaker struct {
	synth    Synthesizer
	inflight atomic.Int32

	mu       sync.RWMutex
	player   Player
	playerID int
}

// NewSpeaker creates a speaker without an attached player.
func NewSpeaker(synth Synthesizer) *Speaker {
	return &Speaker{synth: synth}
}

// Attach routes playback to p until the returned detach func is called.
func (s *Speaker) Attach(p Player) func() {
	s.mu.Lock()
	s.playerID++
	id := s.playerID
	s.player = p
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		if s.playerID == id {
			s.player = nil
		}
		s.mu.Unlock()
	}
}

// Speak synthesizes text and plays it. Failures are logged and dropped.
func (s *Speaker) Speak(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	s.inflight.Add(1)
	defer s.inflight.Add(-1)

	resp, err := s.synth.Synthesize(ctx, &speech.SynthesisRequest{Text: text})
	if err != nil {
		logger.Warn("text to speech failed", "component", "voice", "error", err)
		return
	}

	s.mu.RLock()
	player := s.player
	s.mu.RUnlock()
	if player == nil {
		logger.Warn("text to speech dropped", "component", "voice", "error", ErrNoPlayer)
		return
	}

	if err := player.Play(ctx, resp.AudioData, resp.Format); err != nil {
		logger.Warn("audio playback failed", "component", "voice", "error", err)
	}
}

// Busy reports whether any Speak call is in flight.
func (s *Speaker) Busy() bool {
	return s.inflight.Load() > 0
}
