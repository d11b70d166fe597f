package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/halwest-tech/kurdish-chat/backend/internal/locale"
	"github.com/halwest-tech/kurdish-chat/backend/internal/logger"
	modelprofile "github.com/halwest-tech/kurdish-chat/backend/internal/model/profile"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/identity"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/profile"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/session"
)

// Mode 表示表单处于登录还是注册。
type Mode string

const (
	ModeLogin    Mode = "login"
	ModeRegister Mode = "register"
)

// ParseMode accepts "login" or "register"; anything else is rejected.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeLogin:
		return ModeLogin, nil
	case ModeRegister:
		return ModeRegister, nil
	default:
		return "", ErrInvalidMode
	}
}

// Status 提交状态。
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusError      Status = "error"
)

var (
	ErrInvalidMode = errors.New("mode must be login or register")
	ErrInProgress  = errors.New("a submission is already in progress")
)

// Form 是认证表单的输入。
type Form struct {
	Mode            Mode   `json:"mode"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Name            string `json:"name"`
}

// Failure is the localized error shown on the form. Code is the provider
// classification, empty for local validation errors.
type Failure struct {
	Code    string
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

// PreferenceSource supplies the language and theme recorded in new profiles.
type PreferenceSource interface {
	Preferences() session.Preferences
}

// PreferenceRestorer is implemented by preference sources that can apply the
// language and theme saved in a profile.
type PreferenceRestorer interface {
	SetLanguage(lang locale.Language) error
	SetTheme(theme locale.Theme) error
}

// Options 控制网络错误的重试策略。
type Options struct {
	MaxRetries int
	RetryDelay time.Duration
	Now        func() time.Time
}

// Authenticator implements the login/register submission of one workspace.
type Authenticator struct {
	provider   identity.Provider
	profiles   profile.Store
	notifier   *identity.Notifier
	prefs      PreferenceSource
	maxRetries int
	retryDelay time.Duration
	now        func() time.Time

	mu         sync.RWMutex
	mode       Mode
	status     Status
	retryCount int
	failure    *Failure
}

// NewAuthenticator wires the provider, the profile store and the session notifier.
func NewAuthenticator(provider identity.Provider, profiles profile.Store, notifier *identity.Notifier, prefs PreferenceSource, opts Options) *Authenticator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Authenticator{
		provider:   provider,
		profiles:   profiles,
		notifier:   notifier,
		prefs:      prefs,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		now:        opts.Now,
		mode:       ModeLogin,
		status:     StatusIdle,
	}
}

// Submit validates the form, calls the provider with bounded retries on
// network failures, writes the profile on registration and publishes the
// signed-in user.
func (a *Authenticator) Submit(ctx context.Context, form Form) (identity.User, error) {
	a.mu.Lock()
	if a.status == StatusSubmitting {
		a.mu.Unlock()
		return identity.User{}, ErrInProgress
	}
	if form.Mode == "" {
		form.Mode = a.mode
	}
	a.mode = form.Mode
	a.retryCount = 0
	a.failure = nil
	a.status = StatusSubmitting
	a.mu.Unlock()

	prefs := a.prefs.Preferences()

	user, err := a.submit(ctx, form, prefs)
	if err != nil {
		failure := a.localize(prefs.Language, err)
		logger.Warn("auth submit failed", "component", "auth", "mode", form.Mode, "code", failure.Code, "error", err)

		a.mu.Lock()
		a.failure = failure
		a.status = StatusError
		a.mu.Unlock()
		return identity.User{}, failure
	}

	if form.Mode == ModeLogin {
		a.restorePreferences(ctx, user.ID)
	}

	a.mu.Lock()
	a.status = StatusIdle
	a.mu.Unlock()

	a.notifier.Publish(&user)
	return user, nil
}

// restorePreferences 登录后恢复档案中保存的语言和主题，失败不影响登录。
func (a *Authenticator) restorePreferences(ctx context.Context, userID string) {
	restorer, ok := a.prefs.(PreferenceRestorer)
	if !ok || a.profiles == nil {
		return
	}

	record, err := a.profiles.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, profile.ErrNotFound) {
			logger.Warn("profile lookup failed", "component", "auth", "user", userID, "error", err)
		}
		return
	}

	if lang, err := locale.ParseLanguage(record.Language); err == nil {
		_ = restorer.SetLanguage(lang)
	}
	if theme, err := locale.ParseTheme(record.Theme); err == nil {
		_ = restorer.SetTheme(theme)
	}
}

func (a *Authenticator) submit(ctx context.Context, form Form, prefs session.Preferences) (identity.User, error) {
	switch form.Mode {
	case ModeLogin:
		return a.withRetry(ctx, func(ctx context.Context) (identity.User, error) {
			return a.provider.SignIn(ctx, form.Email, form.Password)
		})
	case ModeRegister:
		if form.Password != form.ConfirmPassword {
			return identity.User{}, errPasswordMismatch
		}

		user, err := a.withRetry(ctx, func(ctx context.Context) (identity.User, error) {
			return a.provider.Register(ctx, form.Email, form.Password)
		})
		if err != nil {
			return identity.User{}, err
		}

		record := modelprofile.Profile{
			Name:      form.Name,
			Email:     form.Email,
			CreatedAt: a.now().UTC().Format(time.RFC3339),
			Language:  string(prefs.Language),
			Theme:     string(prefs.Theme),
		}
		if err := a.profiles.Write(ctx, user.ID, record); err != nil {
			return identity.User{}, err
		}
		return user, nil
	default:
		return identity.User{}, ErrInvalidMode
	}
}

var errPasswordMismatch = errors.New("passwords do not match")

// withRetry re-issues op only while it fails with a network classification and
// the budget is not exhausted.
func (a *Authenticator) withRetry(ctx context.Context, op func(context.Context) (identity.User, error)) (identity.User, error) {
	for {
		user, err := op(ctx)
		if err == nil {
			return user, nil
		}
		if !identity.IsNetworkError(err) {
			return identity.User{}, err
		}

		a.mu.Lock()
		if a.retryCount >= a.maxRetries {
			a.mu.Unlock()
			return identity.User{}, err
		}
		a.retryCount++
		attempt := a.retryCount
		a.mu.Unlock()

		logger.Info("auth network failure, retrying", "component", "auth", "attempt", attempt, "delay", a.retryDelay)
		if waitErr := wait(ctx, a.retryDelay); waitErr != nil {
			return identity.User{}, err
		}
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (a *Authenticator) localize(lang locale.Language, err error) *Failure {
	if errors.Is(err, errPasswordMismatch) {
		return &Failure{Message: locale.T(lang, locale.PasswordsDoNotMatch), Err: err}
	}

	code := identity.CodeOf(err)
	key := locale.Key(code)
	if code == "" || !locale.Has(key) {
		key = locale.AuthNetworkFailed
	}
	return &Failure{Code: code, Message: locale.T(lang, key), Err: err}
}

// SetMode switches between login and register and clears the error.
func (a *Authenticator) SetMode(mode Mode) error {
	if mode != ModeLogin && mode != ModeRegister {
		return ErrInvalidMode
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mode = mode
	a.clearErrorLocked()
	return nil
}

// ToggleMode flips between login and register.
func (a *Authenticator) ToggleMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode == ModeLogin {
		a.mode = ModeRegister
	} else {
		a.mode = ModeLogin
	}
	a.clearErrorLocked()
	return a.mode
}

func (a *Authenticator) clearErrorLocked() {
	a.failure = nil
	if a.status == StatusError {
		a.status = StatusIdle
	}
}

func (a *Authenticator) Mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

func (a *Authenticator) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// RetryCount is the number of retries performed by the last submission.
func (a *Authenticator) RetryCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.retryCount
}

// Err returns the localized failure of the last submission, nil when none.
func (a *Authenticator) Err() *Failure {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.failure
}
