package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halwest-tech/kurdish-chat/backend/internal/locale"
	"github.com/halwest-tech/kurdish-chat/backend/internal/logger"
	"github.com/halwest-tech/kurdish-chat/backend/internal/model/chat"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/assistant"
)

var (
	ErrEmptyInput           = errors.New("message is empty")
	ErrSendPending          = errors.New("a message is already pending in this conversation")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrClosed               = errors.New("chat service closed")
)

// noConversation keys the transcript shown while nothing is selected.
const noConversation = 0

// LanguageSource reports the current display language.
type LanguageSource interface {
	Language() locale.Language
}

// Service holds the conversation list and transcripts of one workspace.
type Service struct {
	backend assistant.Backend
	lang    LanguageSource
	now     func() time.Time

	mu            sync.RWMutex
	conversations []chat.Conversation
	transcripts   map[int][]chat.Message
	pending       map[int]bool
	selected      int
	nextID        int
	input         string
	telegramID    string
	closed        bool
}

// NewService starts with one selected conversation titled "new chat".
func NewService(backend assistant.Backend, lang LanguageSource) *Service {
	s := &Service{
		backend:     backend,
		lang:        lang,
		now:         func() time.Time { return time.Now().UTC() },
		transcripts: make(map[int][]chat.Message),
		pending:     make(map[int]bool),
	}

	first := chat.Conversation{
		ID:        1,
		Title:     locale.T(lang.Language(), locale.NewChat),
		CreatedAt: s.now(),
	}
	s.conversations = []chat.Conversation{first}
	s.transcripts[first.ID] = make([]chat.Message, 0, 16)
	s.selected = first.ID
	s.nextID = first.ID + 1
	return s
}

// Send appends the user message and a loading placeholder to the selected
// conversation, asks the backend and replaces the placeholder with the reply
// or a localized error. The returned message is the final assistant turn.
func (s *Service) Send(ctx context.Context, input string) (chat.Message, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return chat.Message{}, ErrEmptyInput
	}
	lang := s.lang.Language()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return chat.Message{}, ErrClosed
	}
	convID := s.selected
	if s.pending[convID] {
		s.mu.Unlock()
		return chat.Message{}, ErrSendPending
	}

	history := cloneMessages(s.transcripts[convID])
	now := s.now()
	userMsg := chat.Message{
		ID:             uuid.NewString(),
		ConversationID: convID,
		Sender:         chat.SenderUser,
		Text:           text,
		CreatedAt:      now,
	}
	placeholder := chat.Message{
		ID:             uuid.NewString(),
		ConversationID: convID,
		Sender:         chat.SenderAssistant,
		Text:           locale.T(lang, locale.Typing),
		Loading:        true,
		CreatedAt:      now,
	}
	s.transcripts[convID] = append(s.transcripts[convID], userMsg, placeholder)
	s.pending[convID] = true
	s.input = ""
	telegramID := s.telegramID
	s.mu.Unlock()

	req := assistant.Request{Message: text, Language: lang, History: history}
	if telegramID != "" {
		req.TelegramID = &telegramID
	}

	final := placeholder
	final.Loading = false

	reply, err := s.backend.Send(ctx, req)
	var replyText string
	if err == nil {
		replyText, err = reply.Text()
	}
	if err != nil {
		logger.Warn("chat send failed", "component", "chat", "conversation", convID, "error", err)
		final.Text = locale.T(lang, locale.SendFailed)
		final.Error = true
	} else {
		final.Text = replyText
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, convID)
	if s.closed {
		return chat.Message{}, ErrClosed
	}

	transcript := s.transcripts[convID]
	for i := range transcript {
		if transcript[i].ID == placeholder.ID {
			transcript[i] = final
			break
		}
	}
	return final, nil
}

// Pending reports whether the selected conversation is waiting on a reply.
func (s *Service) Pending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending[s.selected]
}

// CreateConversation appends "Chat N", selects it and shows its empty transcript.
func (s *Service) CreateConversation() (chat.Conversation, error) {
	lang := s.lang.Language()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return chat.Conversation{}, ErrClosed
	}

	// id 单调递增，删除后不复用，避免继承旧会话的 pending 状态
	conv := chat.Conversation{
		ID:        s.nextID,
		Title:     locale.ChatTitle(lang, len(s.conversations)+1),
		CreatedAt: s.now(),
	}
	s.nextID++
	s.conversations = append(s.conversations, conv)
	s.transcripts[conv.ID] = make([]chat.Message, 0, 16)
	s.selected = conv.ID
	return conv, nil
}

// ConfirmPrompt is the localized question shown before deleting.
func (s *Service) ConfirmPrompt() string {
	return locale.T(s.lang.Language(), locale.ConfirmDelete)
}

// DeleteConversation removes id once confirm returns true. Deleting the
// selected conversation falls back to the first remaining one, or none.
func (s *Service) DeleteConversation(id int, confirm func() bool) (bool, error) {
	if confirm == nil || !confirm() {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	idx := s.indexLocked(id)
	if idx < 0 {
		return false, ErrConversationNotFound
	}

	s.conversations = append(s.conversations[:idx], s.conversations[idx+1:]...)
	delete(s.transcripts, id)

	if s.selected == id {
		if len(s.conversations) > 0 {
			s.selected = s.conversations[0].ID
		} else {
			s.selected = noConversation
			s.transcripts[noConversation] = nil
		}
	}
	return true, nil
}

// Select makes id the visible conversation.
func (s *Service) Select(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(id) < 0 {
		return ErrConversationNotFound
	}
	s.selected = id
	return nil
}

func (s *Service) indexLocked(id int) int {
	for i, c := range s.conversations {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Conversations returns the sidebar entries in display order.
func (s *Service) Conversations() []chat.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]chat.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// Selected returns the selected conversation id; ok is false when none is selected.
func (s *Service) Selected() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected, s.selected != noConversation
}

// Transcript returns the visible transcript.
func (s *Service) Transcript() []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMessages(s.transcripts[s.selected])
}

// TranscriptOf returns the transcript of a held conversation.
func (s *Service) TranscriptOf(id int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.indexLocked(id) < 0 {
		return nil, ErrConversationNotFound
	}
	return cloneMessages(s.transcripts[id]), nil
}

func (s *Service) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
}

func (s *Service) Input() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.input
}

// SetTelegramID stores the id forwarded with every message; blank means unset.
func (s *Service) SetTelegramID(id string) {
	s.mu.Lock()
	s.telegramID = strings.TrimSpace(id)
	s.mu.Unlock()
}

func (s *Service) TelegramID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.telegramID
}

// Close tears the view down; replies arriving afterwards are dropped.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func cloneMessages(messages []chat.Message) []chat.Message {
	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied
}
