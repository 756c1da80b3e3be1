package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/abduss/certvault/internal/certificate"
	"github.com/abduss/certvault/internal/object"
	"github.com/abduss/certvault/internal/presigned"
	"github.com/abduss/certvault/internal/vault"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// Error is a non-2xx answer from the gateway.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway: status %d", e.Status)
	}
	return fmt.Sprintf("gateway: status %d: %s", e.Status, e.Message)
}

// UserMessage returns the gateway's own error text.
func (e *Error) UserMessage() string {
	return e.Message
}

type errorBody struct {
	Error string `json:"error"`
}

// Client talks to the gateway's REST API over HTTP.
type Client struct {
	http *resty.Client
}

// NewClient builds a client for the gateway at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: httpClient}
}

var _ vault.Gateway = (*Client)(nil)

func (c *Client) request(ctx context.Context, session vault.Session) *resty.Request {
	req := c.http.R().SetContext(ctx).SetError(&errorBody{})
	if session.AccessToken != "" {
		req.SetAuthToken(session.AccessToken)
	}
	return req
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	if !resp.IsError() {
		return nil
	}
	gwErr := &Error{Status: resp.StatusCode()}
	if body, ok := resp.Error().(*errorBody); ok && body != nil {
		gwErr.Message = body.Error
	}
	return gwErr
}

type authResponse struct {
	User struct {
		ID    uuid.UUID `json:"id"`
		Email string    `json:"email"`
	} `json:"user"`
	Tokens struct {
		AccessToken       string `json:"access_token"`
		AccessTokenExpiry int64  `json:"access_token_expires_at"`
		RefreshToken      string `json:"refresh_token"`
	} `json:"tokens"`
}

func (a authResponse) session() vault.Session {
	return vault.Session{
		UserID:       a.User.ID,
		Email:        a.User.Email,
		AccessToken:  a.Tokens.AccessToken,
		RefreshToken: a.Tokens.RefreshToken,
		ExpiresAt:    time.Unix(a.Tokens.AccessTokenExpiry, 0).UTC(),
	}
}

// Register creates an account and returns its first session.
func (c *Client) Register(ctx context.Context, email, password string) (vault.Session, error) {
	var out authResponse
	resp, err := c.request(ctx, vault.Session{}).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		Post("/v1/auth/register")
	if err := check(resp, err); err != nil {
		return vault.Session{}, err
	}
	return out.session(), nil
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (vault.Session, error) {
	var out authResponse
	resp, err := c.request(ctx, vault.Session{}).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		Post("/v1/auth/login")
	if err := check(resp, err); err != nil {
		return vault.Session{}, err
	}
	return out.session(), nil
}

// Refresh rotates the session's refresh token.
func (c *Client) Refresh(ctx context.Context, session vault.Session) (vault.Session, error) {
	var out authResponse
	resp, err := c.request(ctx, vault.Session{}).
		SetBody(map[string]string{"refresh_token": session.RefreshToken}).
		SetResult(&out).
		Post("/v1/auth/refresh")
	if err := check(resp, err); err != nil {
		return vault.Session{}, err
	}
	return out.session(), nil
}

// Logout revokes the session's refresh token.
func (c *Client) Logout(ctx context.Context, session vault.Session) error {
	resp, err := c.request(ctx, session).
		SetBody(map[string]string{"refresh_token": session.RefreshToken}).
		Post("/v1/auth/logout")
	return check(resp, err)
}

// CurrentUser asks the gateway who the session belongs to.
func (c *Client) CurrentUser(ctx context.Context, session vault.Session) (uuid.UUID, string, error) {
	var out struct {
		User struct {
			ID    uuid.UUID `json:"id"`
			Email string    `json:"email"`
		} `json:"user"`
	}
	resp, err := c.request(ctx, session).SetResult(&out).Get("/v1/auth/session")
	if err := check(resp, err); err != nil {
		return uuid.Nil, "", err
	}
	return out.User.ID, out.User.Email, nil
}

func (c *Client) ListCertificates(ctx context.Context, session vault.Session) ([]certificate.Certificate, error) {
	var out struct {
		Certificates []certificate.Certificate `json:"certificates"`
	}
	resp, err := c.request(ctx, session).SetResult(&out).Get("/v1/certificates")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	if out.Certificates == nil {
		out.Certificates = []certificate.Certificate{}
	}
	return out.Certificates, nil
}

func (c *Client) InsertCertificate(ctx context.Context, session vault.Session, in certificate.NewCertificate) (certificate.Certificate, error) {
	var out certificate.Certificate
	resp, err := c.request(ctx, session).SetBody(in).SetResult(&out).Post("/v1/certificates")
	if err := check(resp, err); err != nil {
		return certificate.Certificate{}, err
	}
	return out, nil
}

func (c *Client) UpdateCertificate(ctx context.Context, session vault.Session, id uuid.UUID, changes certificate.Changes) (certificate.Certificate, error) {
	var out certificate.Certificate
	resp, err := c.request(ctx, session).
		SetPathParam("certificateID", id.String()).
		SetBody(changes).
		SetResult(&out).
		Patch("/v1/certificates/{certificateID}")
	if err := check(resp, err); err != nil {
		return certificate.Certificate{}, err
	}
	return out, nil
}

func (c *Client) DeleteCertificate(ctx context.Context, session vault.Session, id uuid.UUID) error {
	resp, err := c.request(ctx, session).
		SetPathParam("certificateID", id.String()).
		Delete("/v1/certificates/{certificateID}")
	return check(resp, err)
}

func (c *Client) StoreObject(ctx context.Context, session vault.Session, name string, content io.Reader, size int64, contentType string) (string, error) {
	var out object.Info
	resp, err := c.request(ctx, session).
		SetPathParams(map[string]string{"ownerID": session.UserID.String(), "name": name}).
		SetMultipartField("file", name, contentType, content).
		SetResult(&out).
		Put("/v1/objects/{ownerID}/{name}")
	if err := check(resp, err); err != nil {
		return "", err
	}
	if out.Path == "" {
		out.Path = object.Path(session.UserID, name)
	}
	return out.Path, nil
}

func (c *Client) SignURL(ctx context.Context, session vault.Session, path string, ttl time.Duration) (string, error) {
	ownerID, name, err := object.ParsePath(path)
	if err != nil {
		return "", err
	}

	var out presigned.SignedURL
	resp, err := c.request(ctx, session).
		SetPathParams(map[string]string{"ownerID": ownerID.String(), "name": name}).
		SetBody(map[string]int64{"expires_in": int64(ttl / time.Second)}).
		SetResult(&out).
		Post("/v1/objects/{ownerID}/{name}/sign")
	if err := check(resp, err); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) DeleteObject(ctx context.Context, session vault.Session, path string) error {
	ownerID, name, err := object.ParsePath(path)
	if err != nil {
		return err
	}
	resp, err := c.request(ctx, session).
		SetPathParams(map[string]string{"ownerID": ownerID.String(), "name": name}).
		Delete("/v1/objects/{ownerID}/{name}")
	return check(resp, err)
}

// IsUnauthorized reports whether err is a 401 from the gateway.
func IsUnauthorized(err error) bool {
	var gwErr *Error
	return errors.As(err, &gwErr) && gwErr.Status == http.StatusUnauthorized
}
