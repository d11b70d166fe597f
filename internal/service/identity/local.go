package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// ErrInvalidToken is returned by VerifyToken for malformed, expired or revoked tokens.
var ErrInvalidToken = errors.New("invalid session token")

type localAccount struct {
	id           string
	email        string
	passwordHash []byte
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// LocalProvider keeps accounts in memory for development setups without Firebase.
type LocalProvider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	accounts map[string]localAccount
	revoked  map[string]struct{}
}

// NewLocalProvider creates an in-memory provider signing HS256 session tokens.
func NewLocalProvider(secret string, ttl time.Duration) *LocalProvider {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &LocalProvider{
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
		accounts: make(map[string]localAccount),
		revoked:  make(map[string]struct{}),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email, "@")
}

// Register creates an account and returns a signed-in user.
func (p *LocalProvider) Register(_ context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return User{}, NewError(CodeInvalidEmail, "invalid email address", nil)
	}
	if len(password) < minPasswordLength {
		return User{}, NewError(CodeWeakPassword, fmt.Sprintf("password should be at least %d characters", minPasswordLength), nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, NewError(CodeInternalError, "hash password", err)
	}

	p.mu.Lock()
	if _, exists := p.accounts[email]; exists {
		p.mu.Unlock()
		return User{}, NewError(CodeEmailAlreadyInUse, "email already registered", nil)
	}
	account := localAccount{id: uuid.NewString(), email: email, passwordHash: hash}
	p.accounts[email] = account
	p.mu.Unlock()

	return p.issue(account)
}

// SignIn checks the password against the stored hash.
func (p *LocalProvider) SignIn(_ context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return User{}, NewError(CodeInvalidEmail, "invalid email address", nil)
	}

	p.mu.RLock()
	account, ok := p.accounts[email]
	p.mu.RUnlock()
	if !ok {
		return User{}, NewError(CodeUserNotFound, "no account for this email", nil)
	}

	if err := bcrypt.CompareHashAndPassword(account.passwordHash, []byte(password)); err != nil {
		return User{}, NewError(CodeWrongPassword, "password mismatch", nil)
	}

	return p.issue(account)
}

// SignOut revokes the token so VerifyToken rejects it afterwards.
func (p *LocalProvider) SignOut(_ context.Context, token string) error {
	if token == "" {
		return nil
	}
	p.mu.Lock()
	p.revoked[token] = struct{}{}
	p.mu.Unlock()
	return nil
}

// VerifyToken validates a session token and returns the user id it was issued for.
func (p *LocalProvider) VerifyToken(token string) (string, error) {
	p.mu.RLock()
	_, revoked := p.revoked[token]
	p.mu.RUnlock()
	if revoked {
		return "", ErrInvalidToken
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (p *LocalProvider) issue(account localAccount) (User, error) {
	now := p.now()
	claims := sessionClaims{
		Email: account.email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.id,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return User{}, NewError(CodeInternalError, "sign token", err)
	}
	return User{ID: account.id, Email: account.email, Token: signed}, nil
}
