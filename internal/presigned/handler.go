package presigned

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/abduss/certvault/internal/logger"
	"github.com/abduss/certvault/internal/object"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type objectReader interface {
	Stat(ctx context.Context, path string) (object.Info, error)
	Open(ctx context.Context, path string) (object.Info, io.ReadCloser, error)
}

// Handler serves link issuance and token resolution.
type Handler struct {
	service *Service
	objects objectReader
}

// NewHandler wires the signer to the object service it links into.
func NewHandler(service *Service, objects objectReader) *Handler {
	return &Handler{service: service, objects: objects}
}

// RegisterRoutes mounts signing on the authenticated group and token
// resolution on the public one.
func (h *Handler) RegisterRoutes(protected, public *gin.RouterGroup) {
	protected.POST("/objects/:ownerID/:name/sign", h.sign)
	public.GET("/signed/:ownerID/:name", h.resolve)
}

type signRequest struct {
	ExpiresIn int64 `json:"expires_in" binding:"required,min=1"`
}

func (h *Handler) sign(c *gin.Context) {
	ownerID, name, ok := object.OwnedName(c)
	if !ok {
		return
	}

	var req signRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	path := object.Path(ownerID, name)
	if _, err := h.objects.Stat(c.Request.Context(), path); err != nil {
		if errors.Is(err, object.ErrObjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
			return
		}
		logger.FromContext(c.Request.Context()).Error("stat object", zap.String("path", path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign url"})
		return
	}

	signed, err := h.service.Sign(c.Request.Context(), path, time.Duration(req.ExpiresIn)*time.Second)
	if err != nil {
		if errors.Is(err, ErrInvalidTTL) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expires_in"})
			return
		}
		logger.FromContext(c.Request.Context()).Error("sign url", zap.String("path", path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign url"})
		return
	}

	c.JSON(http.StatusOK, signed)
}

func (h *Handler) resolve(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Param("ownerID"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
		return
	}
	name := c.Param("name")
	if err := object.ValidateName(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
		return
	}

	path := object.Path(ownerID, name)
	if _, err := h.service.Verify(c.Query("token"), path); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid or expired link"})
		return
	}

	info, reader, err := h.objects.Open(c.Request.Context(), path)
	if err != nil {
		if errors.Is(err, object.ErrObjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
			return
		}
		logger.FromContext(c.Request.Context()).Error("open object", zap.String("path", path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read object"})
		return
	}
	defer reader.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, info.Size, contentType, reader, map[string]string{
		"Content-Disposition": `inline; filename="` + name + `"`,
	})
}
