package profile

import (
	"context"
	"errors"

	"github.com/halwest-tech/kurdish-chat/backend/internal/model/profile"
)

var (
	ErrNotFound      = errors.New("profile not found")
	ErrUserIDMissing = errors.New("user id is required")
)

// Store persists user profiles keyed by the identity provider's user id.
type Store interface {
	Write(ctx context.Context, userID string, p profile.Profile) error
	Get(ctx context.Context, userID string) (profile.Profile, error)
}
