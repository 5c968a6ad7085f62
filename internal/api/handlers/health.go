package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stm-analytics/scout-go/internal/core/metrics"
	"github.com/stm-analytics/scout-go/pkg/utils"
	"github.com/stm-analytics/scout-go/pkg/version"
)

var startTime = time.Now()

// Health returns service liveness plus a system resource snapshot
func (h *Handlers) Health(c *gin.Context) {
	status := gin.H{
		"status":         "healthy",
		"build":          version.Get(),
		"uptime_seconds": time.Since(startTime).Seconds(),
		"run_in_flight":  h.pipeline.Running(),
		"system":         metrics.Snapshot(),
	}

	if latest := h.pipeline.Latest(); latest != nil {
		status["last_run_id"] = latest.Summary.RunID
		status["last_run_at"] = latest.Summary.FinishedAt
		status["last_run_status"] = latest.Summary.Status
	}

	utils.SendSuccess(c, status)
}
