package web

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/abduss/certvault/internal/auth"
	"github.com/abduss/certvault/internal/logger"
	"github.com/abduss/certvault/internal/vault"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	sessionKey    = "vaultSession"
	refreshSuffix = "_refresh"
	flashCookie   = "certvault_flash"
	themeCookie   = "certvault_theme"

	themeLight = "light"
	themeDark  = "dark"
)

// guard resolves the session cookie into a vault.Session. An invalid or
// expired access token is exchanged once for a fresh pair using the refresh
// cookie; when that fails the cookies are cleared and the visitor is signed out.
func (s *Shell) guard() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(s.cfg.SessionCookie)
		refresh, _ := c.Cookie(s.cfg.SessionCookie + refreshSuffix)
		if strings.TrimSpace(token) == "" && strings.TrimSpace(refresh) == "" {
			c.Next()
			return
		}

		if claims, err := s.auth.ValidateAccessToken(token); err == nil {
			c.Set(sessionKey, vault.Session{
				UserID:       claims.UserID,
				Email:        claims.Email,
				AccessToken:  token,
				RefreshToken: refresh,
				ExpiresAt:    claims.ExpiresAt,
			})
			c.Next()
			return
		}

		if session, ok := s.refreshSession(c, refresh); ok {
			c.Set(sessionKey, session)
		} else {
			s.clearSession(c)
		}
		c.Next()
	}
}

func (s *Shell) refreshSession(c *gin.Context, refresh string) (vault.Session, bool) {
	if strings.TrimSpace(refresh) == "" {
		return vault.Session{}, false
	}
	result, err := s.auth.Refresh(c.Request.Context(), refresh)
	if err != nil {
		if !errors.Is(err, auth.ErrRefreshTokenInvalid) {
			logger.FromContext(c.Request.Context()).Error("web refresh session", zap.Error(err))
		}
		return vault.Session{}, false
	}
	s.issueSession(c, result)
	return vault.Session{
		UserID:       result.User.ID,
		Email:        result.User.Email,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		ExpiresAt:    result.Tokens.AccessTokenExpiry,
	}, true
}

// currentSession returns the signed-in session, if any.
func (s *Shell) currentSession(c *gin.Context) (vault.Session, bool) {
	value, ok := c.Get(sessionKey)
	if !ok {
		return vault.Session{}, false
	}
	session, ok := value.(vault.Session)
	if !ok || !session.SignedIn(s.nowFunc()) {
		return vault.Session{}, false
	}
	return session, true
}

// requireSession sends signed-out visitors to the sign-in screen.
func (s *Shell) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := s.currentSession(c); !ok {
			c.Redirect(http.StatusFound, "/auth")
			c.Abort()
			return
		}
		c.Next()
	}
}

// redirectSignedIn sends signed-in users away from the sign-in screen.
func (s *Shell) redirectSignedIn() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := s.currentSession(c); ok {
			c.Redirect(http.StatusFound, "/dashboard")
			c.Abort()
			return
		}
		c.Next()
	}
}

// issueSession stores a freshly issued token pair. Both cookies live as long
// as the refresh token so an expired access token can still be exchanged.
func (s *Shell) issueSession(c *gin.Context, result auth.AuthResult) {
	maxAge := int(time.Until(result.Tokens.RefreshTokenExpiry).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cfg.SessionCookie, result.Tokens.AccessToken, maxAge, "/", "", s.cfg.SecureCookies, true)
	c.SetCookie(s.cfg.SessionCookie+refreshSuffix, result.Tokens.RefreshToken, maxAge, "/", "", s.cfg.SecureCookies, true)
}

func (s *Shell) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cfg.SessionCookie, "", -1, "/", "", s.cfg.SecureCookies, true)
	c.SetCookie(s.cfg.SessionCookie+refreshSuffix, "", -1, "/", "", s.cfg.SecureCookies, true)
}

func themeOf(c *gin.Context) string {
	if theme, err := c.Cookie(themeCookie); err == nil && theme == themeDark {
		return themeDark
	}
	return themeLight
}

// flash carries a notice across a redirect.
func (s *Shell) flash(c *gin.Context, notice vault.Notice) {
	if notice.Message == "" {
		return
	}
	raw, err := json.Marshal(notice)
	if err != nil {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, base64.RawURLEncoding.EncodeToString(raw), 60, "/", "", s.cfg.SecureCookies, true)
}

// takeFlash reads and clears a pending flash notice.
func (s *Shell) takeFlash(c *gin.Context) []vault.Notice {
	value, err := c.Cookie(flashCookie)
	if err != nil || value == "" {
		return nil
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, "", -1, "/", "", s.cfg.SecureCookies, true)

	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil
	}
	var notice vault.Notice
	if err := json.Unmarshal(raw, &notice); err != nil || notice.Message == "" {
		return nil
	}
	return []vault.Notice{notice}
}
