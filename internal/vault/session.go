package vault

import (
	"time"

	"github.com/google/uuid"
)

// Session is the signed-in identity every flow runs under. The zero value is
// the signed-out state.
type Session struct {
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SignedIn reports whether the session carries an identity that has not
// expired at now. A zero ExpiresAt never expires.
func (s Session) SignedIn(now time.Time) bool {
	if s.UserID == uuid.Nil {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}
