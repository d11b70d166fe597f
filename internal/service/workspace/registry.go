package workspace

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halwest-tech/kurdish-chat/backend/internal/logger"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/assistant"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/auth"
	chatservice "github.com/halwest-tech/kurdish-chat/backend/internal/service/chat"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/identity"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/profile"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/session"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/voice"
)

var (
	ErrNotFound  = errors.New("workspace not found")
	ErrInvalidID = errors.New("workspace id must be a uuid")
)

// SpeechClient is the subset of the speech service a workspace needs.
type SpeechClient interface {
	voice.Transcriber
	voice.Synthesizer
}

// Dependencies are shared by every workspace.
type Dependencies struct {
	Provider    identity.Provider
	Profiles    profile.Store
	Backend     assistant.Backend
	Speech      SpeechClient
	AuthOptions auth.Options
	TelegramID  string
}

// Workspace bundles the per-client state machines of one browser tab.
type Workspace struct {
	ID        string
	CreatedAt time.Time

	Notifier *identity.Notifier
	Session  *session.Controller
	Auth     *auth.Authenticator
	Chat     *chatservice.Service
	Recorder *voice.Recorder
	Speaker  *voice.Speaker

	done      chan struct{}
	closeOnce sync.Once
}

func newWorkspace(id string, deps Dependencies) *Workspace {
	notifier := identity.NewNotifier()
	controller := session.NewController(deps.Provider, notifier)
	chat := chatservice.NewService(deps.Backend, controller)
	if deps.TelegramID != "" {
		chat.SetTelegramID(deps.TelegramID)
	}

	ws := &Workspace{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Notifier:  notifier,
		Session:   controller,
		Auth:      auth.NewAuthenticator(deps.Provider, deps.Profiles, notifier, controller, deps.AuthOptions),
		Chat:      chat,
		Recorder:  voice.NewRecorder(deps.Speech, chat, controller),
		Speaker:   voice.NewSpeaker(deps.Speech),
		done:      make(chan struct{}),
	}
	controller.Start()
	return ws
}

// Close tears down every component; late async completions are dropped.
// Streams attached to the workspace observe Done and disconnect.
func (w *Workspace) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.Recorder.Close()
		w.Chat.Close()
		w.Session.Close()
	})
}

// Done is closed once the workspace has been torn down.
func (w *Workspace) Done() <-chan struct{} {
	return w.done
}

// Registry holds live workspaces keyed by client id.
type Registry struct {
	deps Dependencies

	mu         sync.RWMutex
	workspaces map[string]*Workspace
}

// NewRegistry creates an empty registry.
func NewRegistry(deps Dependencies) *Registry {
	return &Registry{
		deps:       deps,
		workspaces: make(map[string]*Workspace),
	}
}

// Create provisions a workspace under a fresh id.
func (r *Registry) Create() *Workspace {
	ws := newWorkspace(uuid.NewString(), r.deps)

	r.mu.Lock()
	r.workspaces[ws.ID] = ws
	r.mu.Unlock()

	logger.Info("workspace created", "component", "workspace", "id", ws.ID)
	return ws
}

// Get returns the workspace for id.
func (r *Registry) Get(id string) (*Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ws, ok := r.workspaces[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ws, nil
}

// GetOrCreate returns the workspace for id, creating it when absent. The
// boolean reports whether it was created.
func (r *Registry) GetOrCreate(id string) (*Workspace, bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ws, ok := r.workspaces[id]; ok {
		return ws, false, nil
	}
	ws := newWorkspace(id, r.deps)
	r.workspaces[id] = ws
	return ws, true, nil
}

// Remove tears the workspace down and forgets it.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	ws, ok := r.workspaces[id]
	delete(r.workspaces, id)
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	ws.Close()
	logger.Info("workspace removed", "component", "workspace", "id", id)
	return nil
}

// Verifier returns the provider's token verifier, or nil when it has none.
func (r *Registry) Verifier() identity.TokenVerifier {
	verifier, _ := r.deps.Provider.(identity.TokenVerifier)
	return verifier
}

// Len returns the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workspaces)
}

// CloseAll tears down every workspace, used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.workspaces
	r.workspaces = make(map[string]*Workspace)
	r.mu.Unlock()

	for _, ws := range all {
		ws.Close()
	}
}
