package presigned

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/abduss/certvault/internal/metrics"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// MaxPresignExpiry is the longest expiry S3-compatible presigning accepts.
	MaxPresignExpiry = 7 * 24 * time.Hour
	// MaxTTL bounds capability-token links.
	MaxTTL = 5 * 365 * 24 * time.Hour

	tokenAudience = "certvault-signed-url"
	readScope     = "object:read"
)

var (
	// ErrInvalidTTL is returned for non-positive or excessive expiries.
	ErrInvalidTTL = errors.New("invalid ttl")
	// ErrInvalidToken covers malformed, expired and mis-scoped capability tokens.
	ErrInvalidToken = errors.New("invalid signed url token")
)

// ScopeToken is the decoded capability carried by a token link.
type ScopeToken struct {
	Object    string
	CanRead   bool
	ExpiresAt time.Time
}

// SignedURL is an issued link.
type SignedURL struct {
	URL       string    `json:"signed_url"`
	ExpiresAt time.Time `json:"expires_at"`
	Kind      string    `json:"kind"`
}

type urlPresigner interface {
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// Service issues time-limited read links for stored objects. Short expiries
// are presigned by the object store; longer ones are HS256 tokens resolved by
// the gateway's /v1/signed route.
type Service struct {
	client  urlPresigner
	bucket  string
	secret  []byte
	baseURL string
	nowFunc func() time.Time
}

// NewService builds a signer. baseURL is the public origin of the gateway.
func NewService(client urlPresigner, bucket, secret, baseURL string) *Service {
	return &Service{
		client:  client,
		bucket:  bucket,
		secret:  []byte(secret),
		baseURL: baseURL,
		nowFunc: time.Now,
	}
}

// Sign issues a read link for the object at path valid for ttl.
func (s *Service) Sign(ctx context.Context, path string, ttl time.Duration) (SignedURL, error) {
	if ttl <= 0 || ttl > MaxTTL {
		return SignedURL{}, ErrInvalidTTL
	}
	expiresAt := s.nowFunc().Add(ttl)

	if ttl <= MaxPresignExpiry && s.client != nil {
		u, err := s.client.PresignedGetObject(ctx, s.bucket, path, ttl, make(url.Values))
		if err != nil {
			return SignedURL{}, fmt.Errorf("presign object: %w", err)
		}
		metrics.SignedURLs.WithLabelValues("presigned").Inc()
		return SignedURL{URL: u.String(), ExpiresAt: expiresAt, Kind: "presigned"}, nil
	}

	token, err := s.issueToken(path, expiresAt)
	if err != nil {
		return SignedURL{}, fmt.Errorf("sign token: %w", err)
	}
	metrics.SignedURLs.WithLabelValues("token").Inc()

	owner, name, _ := strings.Cut(path, "/")
	link := fmt.Sprintf("%s/v1/signed/%s/%s?%s", s.baseURL, owner, url.PathEscape(name), url.Values{"token": {token}}.Encode())
	return SignedURL{URL: link, ExpiresAt: expiresAt, Kind: "token"}, nil
}

// Verify checks that token grants read access to path right now.
func (s *Service) Verify(token, path string) (ScopeToken, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.nowFunc),
	)
	parsed, err := parser.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return ScopeToken{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return ScopeToken{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	scope, _ := claims["scope"].(string)
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return ScopeToken{}, ErrInvalidToken
	}

	scoped := ScopeToken{Object: sub, CanRead: scope == readScope, ExpiresAt: exp.Time}
	if !s.ValidateScope(scoped, path) {
		return ScopeToken{}, ErrInvalidToken
	}
	return scoped, nil
}

// ValidateScope reports whether the capability covers a read of path.
func (s *Service) ValidateScope(token ScopeToken, path string) bool {
	if s.nowFunc().After(token.ExpiresAt) {
		return false
	}
	if token.Object != path {
		return false
	}
	return token.CanRead
}

func (s *Service) issueToken(path string, expiresAt time.Time) (string, error) {
	now := s.nowFunc()
	claims := jwt.MapClaims{
		"sub":   path,
		"aud":   tokenAudience,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
		"scope": readScope,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
