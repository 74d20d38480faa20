package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aquatrackmx/aquatrack/internal/service/reporting"
)

// ReportingHandler exposes on-demand snapshots and KPIs over HTTP.
type ReportingHandler struct {
	svc    *reporting.Service
	logger *zap.Logger
}

// NewReportingHandler constructs the HTTP handler adapter.
func NewReportingHandler(svc *reporting.Service, logger *zap.Logger) *ReportingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportingHandler{svc: svc, logger: logger}
}

// PondSnapshots returns the derived state of every pond in the cycle.
func (h *ReportingHandler) PondSnapshots(c *gin.Context) {
	snaps, err := h.svc.PondSnapshots(c.Request.Context(), c.Param("cycleID"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if snaps == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "cycle has no seeding plan"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snaps})
}

// FarmKPIs returns the cycle-level aggregated indicators.
func (h *ReportingHandler) FarmKPIs(c *gin.Context) {
	kpis, err := h.svc.FarmKPIs(c.Request.Context(), c.Param("cycleID"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, kpis)
}
