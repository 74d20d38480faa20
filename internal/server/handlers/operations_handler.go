package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aquatrackmx/aquatrack/internal/domain/models"
	"github.com/aquatrackmx/aquatrack/internal/service/operations"
)

// OperationsHandler exposes the confirmation flows over HTTP.
type OperationsHandler struct {
	svc    *operations.Service
	logger *zap.Logger
}

// NewOperationsHandler constructs the HTTP handler adapter.
func NewOperationsHandler(svc *operations.Service, logger *zap.Logger) *OperationsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OperationsHandler{svc: svc, logger: logger}
}

// RecordBiometry stores a measurement and reports the recalibration
// outcome alongside it.
func (h *OperationsHandler) RecordBiometry(c *gin.Context) {
	var ev models.BiometryRecorded
	if err := c.ShouldBindJSON(&ev); err != nil {
		h.logger.Warn("invalid biometry payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	bio, res, err := h.svc.RecordBiometry(c.Request.Context(), ev)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"biometry": bio, "recalibration": res})
}

type confirmSeedingRequest struct {
	PondID                string    `json:"pond_id" binding:"required"`
	ActualDate            time.Time `json:"actual_date" binding:"required"`
	DensityOverride       *float64  `json:"density_override,omitempty"`
	InitialWeightOverride *float64  `json:"initial_weight_override,omitempty"`
}

// ConfirmSeeding finalizes one pond's seeding record in a plan.
func (h *OperationsHandler) ConfirmSeeding(c *gin.Context) {
	var req confirmSeedingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid seeding confirmation payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	plan, res, err := h.svc.ConfirmSeeding(c.Request.Context(), c.Param("planID"),
		req.PondID, req.ActualDate, req.DensityOverride, req.InitialWeightOverride)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seeding_plan": plan, "recalibration": res})
}

type confirmHarvestRequest struct {
	CycleID           string    `json:"cycle_id" binding:"required"`
	PondID            string    `json:"pond_id" binding:"required"`
	HarvestDate       time.Time `json:"harvest_date" binding:"required"`
	AvgWeightG        *float64  `json:"avg_weight_g,omitempty"`
	BiomassKg         *float64  `json:"biomass_kg,omitempty"`
	WithdrawalDensity *float64  `json:"withdrawal_density,omitempty"`
}

// ConfirmHarvest confirms one pond's withdrawal line in a wave.
func (h *OperationsHandler) ConfirmHarvest(c *gin.Context) {
	var req confirmHarvestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid harvest confirmation payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	wave, res, err := h.svc.ConfirmHarvest(c.Request.Context(), models.HarvestConfirmed{
		CycleID:           req.CycleID,
		WaveID:            c.Param("waveID"),
		PondID:            req.PondID,
		HarvestDate:       req.HarvestDate,
		AvgWeightG:        req.AvgWeightG,
		BiomassKg:         req.BiomassKg,
		WithdrawalDensity: req.WithdrawalDensity,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"harvest_wave": wave, "recalibration": res})
}

type adjustSurvivalRequest struct {
	PondID      string  `json:"pond_id" binding:"required"`
	SurvivalPct float64 `json:"survival_pct" binding:"required"`
	Reason      string  `json:"reason" binding:"required"`
}

// AdjustSurvival appends a manual survival correction to a pond's log.
func (h *OperationsHandler) AdjustSurvival(c *gin.Context) {
	var req adjustSurvivalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid survival adjustment payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	change, err := h.svc.AdjustSurvival(c.Request.Context(), c.Param("cycleID"),
		req.PondID, req.SurvivalPct, req.Reason)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, change)
}
