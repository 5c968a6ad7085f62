package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/stm-analytics/scout-go/pkg/errors"
	"github.com/stm-analytics/scout-go/pkg/utils"
)

const defaultRunListLimit = 20

// ListRuns returns the most recent persisted runs, newest first
func (h *Handlers) ListRuns(c *gin.Context) {
	if h.history == nil {
		utils.SendError(c, http.StatusServiceUnavailable, "Run history store is disabled")
		return
	}

	limit := defaultRunListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			utils.SendError(c, http.StatusBadRequest, "limit must be an integer between 1 and 500")
			return
		}
		limit = parsed
	}

	runs, err := h.history.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		utils.SendError(c, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	utils.SendSuccessWithMeta(c, runs, gin.H{"count": len(runs), "limit": limit})
}

// GetRun returns one persisted run with its anomalies, patterns and
// predictions rehydrated.
func (h *Handlers) GetRun(c *gin.Context) {
	if h.history == nil {
		utils.SendError(c, http.StatusServiceUnavailable, "Run history store is disabled")
		return
	}

	detail, err := h.history.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.WithError(err).WithField("run_id", c.Param("id")).Error("Failed to load run")
		utils.SendError(c, http.StatusInternalServerError, "Failed to load run")
		return
	}
	if detail == nil {
		utils.SendError(c, http.StatusNotFound, "Run not found")
		return
	}

	utils.SendSuccess(c, detail)
}

// TriggerRun starts a detection run in the background. Returns 409 if
// one is already in flight.
func (h *Handlers) TriggerRun(c *gin.Context) {
	if h.pipeline.Running() {
		utils.SendError(c, http.StatusConflict, apperrors.ErrRunInProgress.Message)
		return
	}

	// The run outlives the HTTP request, so it gets its own context.
	go func() {
		if _, err := h.pipeline.Run(context.Background()); err != nil {
			if errors.Is(err, apperrors.ErrRunInProgress) {
				return
			}
			h.logger.WithError(err).Error("Triggered run failed")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Detection run started",
	})
}
