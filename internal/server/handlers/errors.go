package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aquatrackmx/aquatrack/internal/domain/models"
	"github.com/aquatrackmx/aquatrack/internal/repository"
)

// writeError maps domain errors onto HTTP statuses: validation 422,
// conflict 409, not-found 404, everything else 500.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case models.IsValidation(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case models.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
