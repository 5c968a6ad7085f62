// Package handlers implements the ops API endpoints. Everything the
// API serves comes from either the in-memory result of the most
// recent pipeline run or the SQLite run history; the API never runs
// detection inline except through the explicit trigger endpoint.
package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/pipeline"
	"github.com/stm-analytics/scout-go/internal/database"
	"github.com/stm-analytics/scout-go/internal/websocket"
)

// Handlers holds the dependencies shared by all endpoint handlers.
type Handlers struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	history  database.HistoryRepository
	hub      *websocket.Hub
	logger   *logrus.Logger
}

// NewHandlers creates the handler set. history may be nil when the
// run history store is disabled; the runs endpoints then return 503.
func NewHandlers(cfg *config.Config, p *pipeline.Pipeline, history database.HistoryRepository,
	hub *websocket.Hub, logger *logrus.Logger) *Handlers {
	return &Handlers{
		cfg:      cfg,
		pipeline: p,
		history:  history,
		hub:      hub,
		logger:   logger,
	}
}
