package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultFirebaseBaseURL = "https://identitytoolkit.googleapis.com/v1"

// FirebaseConfig 描述 Identity Toolkit REST 接口参数。
type FirebaseConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// FirebaseProvider talks to the Google Identity Toolkit REST API.
type FirebaseProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewFirebaseProvider builds a provider with a bounded request timeout.
func NewFirebaseProvider(cfg FirebaseConfig) (*FirebaseProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("firebase api key is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultFirebaseBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &FirebaseProvider{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type firebaseAuthRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type firebaseAuthResponse struct {
	LocalID string `json:"localId"`
	Email   string `json:"email"`
	IDToken string `json:"idToken"`
}

type firebaseErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Register creates a new email/password account.
func (p *FirebaseProvider) Register(ctx context.Context, email, password string) (User, error) {
	return p.call(ctx, "accounts:signUp", email, password)
}

// SignIn authenticates an existing account.
func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (User, error) {
	return p.call(ctx, "accounts:signInWithPassword", email, password)
}

// SignOut discards the session locally; the REST API keeps no server session.
func (p *FirebaseProvider) SignOut(context.Context, string) error {
	return nil
}

func (p *FirebaseProvider) call(ctx context.Context, method, email, password string) (User, error) {
	payload, err := json.Marshal(firebaseAuthRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return User{}, NewError(CodeInternalError, "encode request", err)
	}

	endpoint := fmt.Sprintf("%s/%s?key=%s", p.baseURL, method, url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return User{}, NewError(CodeInternalError, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return User{}, NewError(CodeNetworkRequestFailed, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return User{}, NewError(CodeNetworkRequestFailed, "read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr firebaseErrorResponse
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Message == "" {
			return User{}, NewError(CodeInternalError, fmt.Sprintf("status %d", resp.StatusCode), nil)
		}
		return User{}, NewError(classifyFirebaseError(apiErr.Error.Message), apiErr.Error.Message, nil)
	}

	var out firebaseAuthResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return User{}, NewError(CodeInternalError, "decode response", err)
	}
	if out.LocalID == "" {
		return User{}, NewError(CodeInternalError, "missing localId", nil)
	}

	if out.Email == "" {
		out.Email = email
	}
	return User{ID: out.LocalID, Email: out.Email, Token: out.IDToken}, nil
}

// classifyFirebaseError maps REST error strings such as
// "WEAK_PASSWORD : Password should be at least 6 characters" to codes.
func classifyFirebaseError(message string) string {
	reason := message
	if i := strings.Index(reason, ":"); i >= 0 {
		reason = reason[:i]
	}
	reason = strings.TrimSpace(reason)

	switch reason {
	case "EMAIL_EXISTS":
		return CodeEmailAlreadyInUse
	case "INVALID_EMAIL", "MISSING_EMAIL":
		return CodeInvalidEmail
	case "INVALID_PASSWORD", "MISSING_PASSWORD":
		return CodeWrongPassword
	case "EMAIL_NOT_FOUND":
		return CodeUserNotFound
	case "INVALID_LOGIN_CREDENTIALS":
		return CodeInvalidCredential
	case "WEAK_PASSWORD":
		return CodeWeakPassword
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return CodeTooManyRequests
	case "USER_DISABLED":
		return CodeUserDisabled
	default:
		return CodeInternalError
	}
}
