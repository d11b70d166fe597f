package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/halwest-tech/kurdish-chat/backend/internal/locale"
	"github.com/halwest-tech/kurdish-chat/backend/internal/model/chat"
)

var (
	ErrInvalidResponse = errors.New("invalid response format")
	ErrNotConfigured   = errors.New("no chat backend configured")
)

// Request is what the chat view sends for one user message. Only Message and
// TelegramID go over the wire; Language and History feed local generation.
type Request struct {
	Message    string          `json:"message"`
	TelegramID *string         `json:"telegramId"`
	Language   locale.Language `json:"-"`
	History    []chat.Message  `json:"-"`
}

// Content is one block of a reply.
type Content struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

// Reply mirrors the chat backend response body.
type Reply struct {
	Content []Content `json:"content"`
}

// Text validates the reply and returns content[0].text.
func (r Reply) Text() (string, error) {
	if len(r.Content) == 0 {
		return "", fmt.Errorf("%w: empty content", ErrInvalidResponse)
	}
	if r.Content[0].Text == "" {
		return "", fmt.Errorf("%w: empty text", ErrInvalidResponse)
	}
	return r.Content[0].Text, nil
}

// Backend produces assistant replies.
type Backend interface {
	Send(ctx context.Context, req Request) (Reply, error)
}

type unconfigured struct{}

func (unconfigured) Send(context.Context, Request) (Reply, error) {
	return Reply{}, ErrNotConfigured
}

// Unconfigured is used when neither a chat endpoint nor Ark credentials are set;
// every send fails and the chat view shows its localized error.
func Unconfigured() Backend {
	return unconfigured{}
}

// StatusError reports a non-2xx answer from the chat backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("chat backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("chat backend returned status %d: %s", e.StatusCode, e.Body)
}
