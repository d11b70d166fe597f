package chat

import "time"

// Sender roles.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Message is a single transcript turn. Assistant messages start as a loading
// placeholder and are replaced in place once the backend answers or fails.
type Message struct {
	ID             string    `json:"id"`
	ConversationID int       `json:"conversationId"`
	Sender         string    `json:"sender"`
	Text           string    `json:"text"`
	Loading        bool      `json:"isLoading,omitempty"`
	Error          bool      `json:"error,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
