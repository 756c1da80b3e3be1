package object

import (
	"errors"
	"net/http"

	"github.com/abduss/certvault/internal/auth"
	"github.com/abduss/certvault/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegisterRoutes mounts object operations under the provided router group.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.PUT("/objects/:ownerID/:name", handler.putObject)
	group.DELETE("/objects/:ownerID/:name", handler.deleteObject)
}

type httpHandler struct {
	service *Service
}

// OwnedName resolves the :ownerID/:name route parameters and checks that the
// owner is the authenticated caller.
func OwnedName(c *gin.Context) (uuid.UUID, string, bool) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, "", false
	}

	ownerID, err := uuid.Parse(c.Param("ownerID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner id"})
		return uuid.Nil, "", false
	}
	if ownerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": ErrForbidden.Error()})
		return uuid.Nil, "", false
	}

	name := c.Param("name")
	if err := ValidateName(name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid object name"})
		return uuid.Nil, "", false
	}
	return ownerID, name, true
}

func (h *httpHandler) putObject(c *gin.Context) {
	ownerID, name, ok := OwnedName(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer file.Close()

	info, err := h.service.Put(c.Request.Context(), ownerID, name, file, fileHeader.Size, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, ErrObjectTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		case errors.Is(err, ErrInvalidPath):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid object name"})
		default:
			logger.FromContext(c.Request.Context()).Error("store object", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
		}
		return
	}

	c.JSON(http.StatusCreated, info)
}

func (h *httpHandler) deleteObject(c *gin.Context) {
	ownerID, name, ok := OwnedName(c)
	if !ok {
		return
	}

	if err := h.service.Remove(c.Request.Context(), ownerID, name); err != nil {
		logger.FromContext(c.Request.Context()).Error("remove object", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete file"})
		return
	}

	c.Status(http.StatusNoContent)
}
