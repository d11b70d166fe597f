package chat

import "time"

// Conversation is one entry of the sidebar. Identifiers are unique among the
// conversations currently held by a workspace; nothing is persisted.
type Conversation struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}
