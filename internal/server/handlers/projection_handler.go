package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aquatrackmx/aquatrack/internal/domain/models"
	"github.com/aquatrackmx/aquatrack/internal/service/projection"
	"github.com/aquatrackmx/aquatrack/pkg/clients/extraction"
)

// ProjectionHandler exposes the projection version lifecycle over HTTP.
type ProjectionHandler struct {
	svc       *projection.Service
	extractor extraction.Client
	logger    *zap.Logger
}

// NewProjectionHandler constructs the HTTP handler adapter. extractor
// may be nil when only inline documents are accepted.
func NewProjectionHandler(svc *projection.Service, extractor extraction.Client, logger *zap.Logger) *ProjectionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectionHandler{svc: svc, extractor: extractor, logger: logger}
}

type createProjectionRequest struct {
	// Either an inline canonical document or a file URL for the
	// extraction service.
	Document     *models.CanonicalDocument `json:"document,omitempty"`
	FileURL      string                    `json:"file_url,omitempty"`
	Description  string                    `json:"description,omitempty"`
	ReplaceDraft bool                      `json:"replace_draft"`
}

// Create ingests a canonical document as a new projection version.
func (h *ProjectionHandler) Create(c *gin.Context) {
	var req createProjectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid projection payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	doc := req.Document
	source := models.SourcePlan
	sourceRef := ""
	if doc == nil {
		if req.FileURL == "" || h.extractor == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "a document or file_url is required"})
			return
		}
		extracted, err := h.extractor.ExtractProjection(c.Request.Context(), req.FileURL)
		if err != nil {
			h.logger.Error("extraction failed", zap.String("file_url", req.FileURL), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "extraction service failed"})
			return
		}
		doc = extracted
		source = models.SourceFile
		sourceRef = req.FileURL
	}

	proj, err := h.svc.CreateVersion(c.Request.Context(), c.Param("cycleID"), *doc, projection.CreateOptions{
		Source:       source,
		SourceRef:    sourceRef,
		Description:  req.Description,
		ReplaceDraft: req.ReplaceDraft,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, proj)
}

// Publish promotes a draft to the current projection.
func (h *ProjectionHandler) Publish(c *gin.Context) {
	proj, err := h.svc.Publish(c.Request.Context(), c.Param("projectionID"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, proj)
}

// Cancel marks a non-current projection as cancelled.
func (h *ProjectionHandler) Cancel(c *gin.Context) {
	proj, err := h.svc.Cancel(c.Request.Context(), c.Param("projectionID"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, proj)
}

// Get returns one projection version with its lines.
func (h *ProjectionHandler) Get(c *gin.Context) {
	proj, err := h.svc.Get(c.Request.Context(), c.Param("projectionID"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, proj)
}

// List returns all projection versions of a cycle.
func (h *ProjectionHandler) List(c *gin.Context) {
	projections, err := h.svc.List(c.Request.Context(), c.Param("cycleID"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projections": projections})
}

// Current returns the cycle's current published projection.
func (h *ProjectionHandler) Current(c *gin.Context) {
	proj, err := h.svc.Current(c.Request.Context(), c.Param("cycleID"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if proj == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "cycle has no current projection"})
		return
	}
	c.JSON(http.StatusOK, proj)
}
