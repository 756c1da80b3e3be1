package certificate

import (
	"errors"
	"net/http"
	"time"

	"github.com/abduss/certvault/internal/auth"
	"github.com/abduss/certvault/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegisterRoutes mounts record operations under the provided router group.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.GET("/certificates", handler.list)
	group.POST("/certificates", handler.create)
	group.PATCH("/certificates/:certificateID", handler.update)
	group.DELETE("/certificates/:certificateID", handler.delete)
}

type httpHandler struct {
	service *Service
}

type createRequest struct {
	Title       string  `json:"title" binding:"required,max=255"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	FileURL     string  `json:"file_url" binding:"required"`
	FileName    string  `json:"file_name" binding:"required,max=255"`
	FileSize    int64   `json:"file_size" binding:"min=0"`
}

type updateRequest struct {
	Title       string     `json:"title" binding:"required,max=255"`
	Description *string    `json:"description" binding:"omitempty,max=2000"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

func (h *httpHandler) list(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	certs, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("list certificates", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list certificates"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"certificates": certs})
}

func (h *httpHandler) create(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cert, err := h.service.Create(c.Request.Context(), userID, NewCertificate{
		Title:       req.Title,
		Description: req.Description,
		FileURL:     req.FileURL,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
	})
	if err != nil {
		h.writeError(c, err, "failed to create certificate")
		return
	}

	c.JSON(http.StatusCreated, cert)
}

func (h *httpHandler) update(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("certificateID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid certificate id"})
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	changes := Changes{Title: req.Title, Description: req.Description}
	if req.UpdatedAt != nil {
		changes.UpdatedAt = *req.UpdatedAt
	}

	cert, err := h.service.Update(c.Request.Context(), userID, id, changes)
	if err != nil {
		h.writeError(c, err, "failed to update certificate")
		return
	}

	c.JSON(http.StatusOK, cert)
}

func (h *httpHandler) delete(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("certificateID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid certificate id"})
		return
	}

	if _, err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		h.writeError(c, err, "failed to delete certificate")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *httpHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrCertificateNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "certificate not found"})
	case errors.Is(err, ErrTitleRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
	case errors.Is(err, ErrInvalidFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file reference"})
	default:
		logger.FromContext(c.Request.Context()).Error(fallback, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
