package voice

import (
	"context"
	"errors"
	"sync"
)

// ErrPermissionDenied is returned by a Microphone the user refused to share.
var ErrPermissionDenied = errors.New("microphone permission denied")

// Source delivers captured audio. Close releases the device and closes Chunks.
type Source interface {
	Chunks() <-chan []byte
	Close() error
}

// Microphone acquires an audio source.
type Microphone interface {
	Open(ctx context.Context) (Source, error)
}

// MicrophoneFunc adapts a function to Microphone.
type MicrophoneFunc func(ctx context.Context) (Source, error)

func (f MicrophoneFunc) Open(ctx context.Context) (Source, error) { return f(ctx) }

// StreamSource is a Source fed by Push, used for audio frames arriving over
// a WebSocket.
type StreamSource struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

// NewStreamSource creates a source with the given channel buffer.
func NewStreamSource(buffer int) *StreamSource {
	return &StreamSource{ch: make(chan []byte, buffer)}
}

// Push forwards chunk to the reader. It reports false once the source is closed.
func (s *StreamSource) Push(chunk []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	data := make([]byte, len(chunk))
	copy(data, chunk)
	s.ch <- data
	return true
}

func (s *StreamSource) Chunks() <-chan []byte { return s.ch }

// Close is idempotent.
func (s *StreamSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}
