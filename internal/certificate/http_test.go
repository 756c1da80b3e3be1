package certificate

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abduss/certvault/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(repo *fakeRepo, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/v1")
	group.Use(func(c *gin.Context) {
		auth.SetCurrentUser(c, auth.ContextUser{ID: userID.String(), Email: "owner@example.com"})
		c.Next()
	})
	RegisterRoutes(group, NewService(repo))
	return r
}

func TestCreateIgnoresClientSuppliedOwner(t *testing.T) {
	repo := newFakeRepo()
	caller := uuid.New()
	r := newTestRouter(repo, caller)

	body, _ := json.Marshal(map[string]any{
		"title":     "Cert A",
		"file_url":  "https://vault.example/f.pdf",
		"file_name": "f.pdf",
		"file_size": 42,
		"owner_id":  uuid.NewString(),
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/certificates", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var got Certificate
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, caller, got.OwnerID)
}

func TestUpdateUnknownCertificateReturnsNotFound(t *testing.T) {
	r := newTestRouter(newFakeRepo(), uuid.New())

	body := []byte(`{"title":"Cert B"}`)
	req := httptest.NewRequest(http.MethodPatch, "/v1/certificates/"+uuid.NewString(), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListReturnsEnvelope(t *testing.T) {
	repo := newFakeRepo()
	caller := uuid.New()
	r := newTestRouter(repo, caller)

	req := httptest.NewRequest(http.MethodGet, "/v1/certificates", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"certificates":[]}`, rr.Body.String())
}

func TestDeleteRejectsMalformedID(t *testing.T) {
	r := newTestRouter(newFakeRepo(), uuid.New())

	req := httptest.NewRequest(http.MethodDelete, "/v1/certificates/not-a-uuid", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
