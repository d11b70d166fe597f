package session

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/halwest-tech/kurdish-chat/backend/internal/locale"
	"github.com/halwest-tech/kurdish-chat/backend/internal/logger"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/identity"
)

// Preferences is the read-only view of language and theme handed to the views.
type Preferences struct {
	Language locale.Language `json:"language"`
	Theme    locale.Theme    `json:"theme"`
}

// Direction derives the text direction from the language.
func (p Preferences) Direction() locale.Direction {
	return p.Language.Direction()
}

// State is a snapshot of the controller.
type State struct {
	Authenticated bool             `json:"authenticated"`
	Loading       bool             `json:"loading"`
	LogoutLoading bool             `json:"logoutLoading"`
	Language      locale.Language  `json:"language"`
	Direction     locale.Direction `json:"direction"`
	Theme         locale.Theme     `json:"theme"`
	User          *identity.User   `json:"user,omitempty"`
}

// Controller owns the application-wide session state of one workspace.
type Controller struct {
	provider identity.Provider
	notifier *identity.Notifier

	mu            sync.RWMutex
	authenticated bool
	loading       bool
	logoutLoading bool
	language      locale.Language
	theme         locale.Theme
	user          *identity.User

	generation  int
	active      bool
	unsubscribe func()

	nextListener int
	listeners    map[int]func(State)
}

// NewController creates a controller in its initial state: loading, signed out,
// Sorani, light theme.
func NewController(provider identity.Provider, notifier *identity.Notifier) *Controller {
	return &Controller{
		provider:  provider,
		notifier:  notifier,
		loading:   true,
		language:  locale.Sorani,
		theme:     locale.Light,
		listeners: make(map[int]func(State)),
	}
}

// Start subscribes to session-change notifications. Calling it again while
// active is a no-op.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return
	}
	c.active = true
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	unsubscribe := c.notifier.Subscribe(func(user *identity.User) {
		c.handleSessionChange(gen, user)
	})

	c.mu.Lock()
	if c.active && c.generation == gen {
		c.unsubscribe = unsubscribe
		unsubscribe = nil
	}
	c.mu.Unlock()

	if unsubscribe != nil {
		// Close ran while subscribing.
		unsubscribe()
	}
}

// Close releases the subscription. Notifications delivered afterwards are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	c.active = false
	c.generation++
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (c *Controller) handleSessionChange(gen int, user *identity.User) {
	c.mu.Lock()
	if !c.active || c.generation != gen {
		c.mu.Unlock()
		return
	}
	c.authenticated = user != nil
	c.user = user
	c.loading = false
	c.mu.Unlock()

	c.emit()
}

// Logout signs the current user out. Provider failures are logged and leave the
// session untouched; logoutLoading is cleared on every path.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	c.logoutLoading = true
	token := ""
	if c.user != nil {
		token = c.user.Token
	}
	c.mu.Unlock()
	c.emit()

	err := c.provider.SignOut(ctx, token)

	c.mu.Lock()
	c.logoutLoading = false
	c.mu.Unlock()

	if err != nil {
		logger.Warn("logout failed", "component", "session", "error", err)
		c.emit()
		return
	}

	c.notifier.Publish(nil)
	c.emit()
}

// SetLanguage switches the display language.
func (c *Controller) SetLanguage(lang locale.Language) error {
	if !lang.Valid() {
		return fmt.Errorf("unsupported language %q", lang)
	}
	c.mu.Lock()
	c.language = lang
	c.mu.Unlock()
	c.emit()
	return nil
}

// SetTheme switches the colour theme.
func (c *Controller) SetTheme(theme locale.Theme) error {
	if !theme.Valid() {
		return fmt.Errorf("unsupported theme %q", theme)
	}
	c.mu.Lock()
	c.theme = theme
	c.mu.Unlock()
	c.emit()
	return nil
}

func (c *Controller) ToggleLanguage() locale.Language {
	c.mu.Lock()
	c.language = c.language.Toggle()
	lang := c.language
	c.mu.Unlock()
	c.emit()
	return lang
}

func (c *Controller) ToggleTheme() locale.Theme {
	c.mu.Lock()
	c.theme = c.theme.Toggle()
	theme := c.theme
	c.mu.Unlock()
	c.emit()
	return theme
}

// Preferences returns the current language and theme.
func (c *Controller) Preferences() Preferences {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Preferences{Language: c.language, Theme: c.theme}
}

// Language is a shortcut for Preferences().Language.
func (c *Controller) Language() locale.Language {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.language
}

// Snapshot returns a copy of the full state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	var user *identity.User
	if c.user != nil {
		u := *c.user
		user = &u
	}
	return State{
		Authenticated: c.authenticated,
		Loading:       c.loading,
		LogoutLoading: c.logoutLoading,
		Language:      c.language,
		Direction:     c.language.Direction(),
		Theme:         c.theme,
		User:          user,
	}
}

// OnChange registers fn to receive every state change and returns a func that
// removes it.
func (c *Controller) OnChange(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Controller) emit() {
	c.mu.RLock()
	state := c.snapshotLocked()
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	fns := make([]func(State), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	c.mu.RUnlock()

	for _, fn := range fns {
		fn(state)
	}
}
