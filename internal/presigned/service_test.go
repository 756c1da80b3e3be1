package presigned

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/abduss/certvault/internal/auth"
	"github.com/abduss/certvault/internal/object"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const oneYear = 31536000 * time.Second

func TestSignShortTTLUsesPresigner(t *testing.T) {
	presigner := &fakePresigner{}
	svc := NewService(presigner, "certificates", "secret", "http://vault.local")

	signed, err := svc.Sign(context.Background(), "owner/a.pdf", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signed.Kind != "presigned" {
		t.Fatalf("expected presigned link, got %q", signed.Kind)
	}
	if presigner.calls != 1 || presigner.lastObject != "owner/a.pdf" {
		t.Fatalf("presigner not called with object path: %+v", presigner)
	}
}

func TestSignOneYearIssuesTokenLink(t *testing.T) {
	presigner := &fakePresigner{}
	svc := NewService(presigner, "certificates", "secret", "http://vault.local")
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.nowFunc = func() time.Time { return now }

	ownerID := uuid.New()
	path := object.Path(ownerID, "1700000000000-ab12.pdf")

	signed, err := svc.Sign(context.Background(), path, oneYear)
	require.NoError(t, err)

	assert.Equal(t, "token", signed.Kind)
	assert.Zero(t, presigner.calls)
	assert.Equal(t, now.Add(oneYear), signed.ExpiresAt)

	u, err := url.Parse(signed.URL)
	require.NoError(t, err)
	assert.Equal(t, "/v1/signed/"+path, u.Path)
	assert.Equal(t, "1700000000000-ab12.pdf", u.Path[strings.LastIndex(u.Path, "/")+1:])

	scope, err := svc.Verify(u.Query().Get("token"), path)
	require.NoError(t, err)
	assert.True(t, scope.CanRead)
	assert.Equal(t, path, scope.Object)
}

func TestVerifyRejectsOtherPathAndExpiry(t *testing.T) {
	svc := NewService(nil, "certificates", "secret", "http://vault.local")
	now := time.Now()
	svc.nowFunc = func() time.Time { return now }

	signed, err := svc.Sign(context.Background(), "owner/a.pdf", time.Hour)
	require.NoError(t, err)
	token := tokenFrom(t, signed.URL)

	_, err = svc.Verify(token, "owner/b.pdf")
	assert.ErrorIs(t, err, ErrInvalidToken)

	svc.nowFunc = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = svc.Verify(token, "owner/a.pdf")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	issuer := NewService(nil, "certificates", "secret-a", "http://vault.local")
	verifier := NewService(nil, "certificates", "secret-b", "http://vault.local")

	signed, err := issuer.Sign(context.Background(), "owner/a.pdf", oneYear)
	require.NoError(t, err)

	_, err = verifier.Verify(tokenFrom(t, signed.URL), "owner/a.pdf")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignRejectsInvalidTTL(t *testing.T) {
	svc := NewService(nil, "certificates", "secret", "http://vault.local")

	for _, ttl := range []time.Duration{0, -time.Second, MaxTTL + time.Second} {
		_, err := svc.Sign(context.Background(), "owner/a.pdf", ttl)
		assert.ErrorIs(t, err, ErrInvalidTTL, "ttl %s", ttl)
	}
}

func TestSignRouteRefusesForeignOwner(t *testing.T) {
	objects := newFakeObjects()
	caller := uuid.New()
	r := newTestRouter(NewService(nil, "certificates", "secret", "http://vault.local"), objects, caller)

	body := []byte(`{"expires_in":31536000}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/objects/"+uuid.NewString()+"/a.pdf/sign", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestSignRouteMissingObject(t *testing.T) {
	caller := uuid.New()
	r := newTestRouter(NewService(nil, "certificates", "secret", "http://vault.local"), newFakeObjects(), caller)

	body := []byte(`{"expires_in":60}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/objects/"+caller.String()+"/a.pdf/sign", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSignedLinkResolvesThroughGateway(t *testing.T) {
	objects := newFakeObjects()
	caller := uuid.New()
	path := object.Path(caller, "a.pdf")
	objects.put(path, "application/pdf", "%PDF-1.7")

	svc := NewService(nil, "certificates", "secret", "http://vault.local")
	r := newTestRouter(svc, objects, caller)

	body := []byte(`{"expires_in":31536000}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/objects/"+caller.String()+"/a.pdf/sign", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var signed SignedURL
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &signed))
	u, err := url.Parse(signed.URL)
	require.NoError(t, err)

	get := httptest.NewRecorder()
	r.ServeHTTP(get, httptest.NewRequest(http.MethodGet, u.RequestURI(), nil))
	require.Equal(t, http.StatusOK, get.Code)
	assert.Equal(t, "%PDF-1.7", get.Body.String())
	assert.Equal(t, "application/pdf", get.Header().Get("Content-Type"))

	bad := httptest.NewRecorder()
	r.ServeHTTP(bad, httptest.NewRequest(http.MethodGet, u.Path+"?token=garbage", nil))
	assert.Equal(t, http.StatusForbidden, bad.Code)
}

// --- helpers & fakes ---

func newTestRouter(svc *Service, objects objectReader, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	public := r.Group("/v1")
	protected := r.Group("/v1")
	protected.Use(func(c *gin.Context) {
		auth.SetCurrentUser(c, auth.ContextUser{ID: userID.String(), Email: "owner@example.com"})
		c.Next()
	})
	NewHandler(svc, objects).RegisterRoutes(protected, public)
	return r
}

func tokenFrom(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	return u.Query().Get("token")
}

type fakePresigner struct {
	calls      int
	lastObject string
}

func (f *fakePresigner) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error) {
	f.calls++
	f.lastObject = objectName
	return url.Parse("http://minio.local/" + bucketName + "/" + objectName + "?X-Amz-Signature=abc")
}

type fakeObject struct {
	contentType string
	data        string
}

type fakeObjects struct {
	objects map[string]fakeObject
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string]fakeObject)}
}

func (f *fakeObjects) put(path, contentType, data string) {
	f.objects[path] = fakeObject{contentType: contentType, data: data}
}

func (f *fakeObjects) Stat(ctx context.Context, path string) (object.Info, error) {
	obj, ok := f.objects[path]
	if !ok {
		return object.Info{}, object.ErrObjectNotFound
	}
	return object.Info{Path: path, Size: int64(len(obj.data)), ContentType: obj.contentType}, nil
}

func (f *fakeObjects) Open(ctx context.Context, path string) (object.Info, io.ReadCloser, error) {
	info, err := f.Stat(ctx, path)
	if err != nil {
		return object.Info{}, nil, err
	}
	return info, io.NopCloser(strings.NewReader(f.objects[path].data)), nil
}
