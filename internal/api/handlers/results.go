package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stm-analytics/scout-go/internal/core/pipeline"
	"github.com/stm-analytics/scout-go/internal/core/types"
	"github.com/stm-analytics/scout-go/pkg/utils"
)

// latest returns the most recent in-memory run result, or responds
// 404 when no run has completed since startup.
func (h *Handlers) latest(c *gin.Context) *pipeline.Result {
	result := h.pipeline.Latest()
	if result == nil {
		utils.SendError(c, http.StatusNotFound, "No completed run yet; trigger one via POST /api/v1/runs/trigger")
		return nil
	}
	return result
}

// GetAlertFeed returns the ranked alert feed from the latest run
func (h *Handlers) GetAlertFeed(c *gin.Context) {
	result := h.latest(c)
	if result == nil {
		return
	}
	utils.SendSuccess(c, result.Feed)
}

// GetDetectorReport returns the latest report for one detector type
func (h *Handlers) GetDetectorReport(c *gin.Context) {
	result := h.latest(c)
	if result == nil {
		return
	}

	wanted := types.DetectorType(c.Param("detector"))
	for _, report := range result.Detectors {
		if report.DetectorType == wanted {
			utils.SendSuccess(c, report)
			return
		}
	}

	utils.SendError(c, http.StatusNotFound, "Unknown detector type: "+string(wanted))
}

// GetPortfolioPatterns returns the cross-property pattern analysis
// from the latest run.
func (h *Handlers) GetPortfolioPatterns(c *gin.Context) {
	result := h.latest(c)
	if result == nil {
		return
	}
	utils.SendSuccess(c, result.Analysis)
}

// GetPortfolioHealth returns just the health score and current status
func (h *Handlers) GetPortfolioHealth(c *gin.Context) {
	result := h.latest(c)
	if result == nil {
		return
	}

	utils.SendSuccess(c, gin.H{
		"health_score":    result.Analysis.HealthScore,
		"total_anomalies": result.Summary.TotalAnomalies,
		"run_id":          result.Summary.RunID,
		"generated_at":    result.Summary.FinishedAt,
	})
}

// GetPredictions returns the consolidated predictions from the latest run
func (h *Handlers) GetPredictions(c *gin.Context) {
	result := h.latest(c)
	if result == nil {
		return
	}
	utils.SendSuccessWithMeta(c, result.Predictions, gin.H{"count": len(result.Predictions)})
}

// GetSummary returns the latest run summary
func (h *Handlers) GetSummary(c *gin.Context) {
	result := h.latest(c)
	if result == nil {
		return
	}
	utils.SendSuccess(c, result.Summary)
}
