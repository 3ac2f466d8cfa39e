package handler

import (
	"errors"
	"net/http"

	"github.com/Vonzhen/sub-store-panel/internal/common/cnst"
	"github.com/Vonzhen/sub-store-panel/internal/common/dto"
	"github.com/Vonzhen/sub-store-panel/internal/syncgate"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SweepTrigger starts an immediate sync sweep, bypassing the interval gate,
// and returns the sweep ID. The scheduler implements it.
type SweepTrigger interface {
	TriggerSweep() string
}

// SyncHandler serves the sweep-gate settings API; admin only
type SyncHandler struct {
	gate    *syncgate.Gate
	trigger SweepTrigger
	logger  *zap.Logger
}

// NewSyncHandler creates the sync settings handler
func NewSyncHandler(gate *syncgate.Gate, trigger SweepTrigger, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		gate:    gate,
		trigger: trigger,
		logger:  logger.Named("sync"),
	}
}

// GetSettings returns the current sweep interval and last run time
func (h *SyncHandler) GetSettings(c *gin.Context) {
	settings := h.gate.GetSettings()
	c.JSON(http.StatusOK, dto.SyncSettingsResponse{
		IntervalHours: settings.IntervalHours,
		LastRunTime:   h.gate.LastRun(),
	})
}

// UpdateSettings changes the sweep interval
func (h *SyncHandler) UpdateSettings(c *gin.Context) {
	var req dto.SyncSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.gate.UpdateSettings(req.IntervalHours); err != nil {
		if errors.Is(err, cnst.ErrInvalidInterval) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("persist sync settings failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	settings := h.gate.GetSettings()
	c.JSON(http.StatusOK, dto.SyncSettingsResponse{
		IntervalHours: settings.IntervalHours,
		LastRunTime:   h.gate.LastRun(),
	})
}

// Run triggers a sweep immediately, regardless of the interval gate
func (h *SyncHandler) Run(c *gin.Context) {
	if h.trigger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not running"})
		return
	}
	sweepID := h.trigger.TriggerSweep()
	c.JSON(http.StatusAccepted, dto.SyncRunResponse{SweepID: sweepID})
}
