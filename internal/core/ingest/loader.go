// Package ingest loads per-property clean datasets from the extraction
// drop directory and scores their quality. A malformed property file is
// contained at the property boundary; the batch keeps going.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/types"
	"github.com/stm-analytics/scout-go/pkg/errors"
)

// Loader reads clean dataset files for a run.
type Loader struct {
	cfg    config.DataConfig
	logger *logrus.Logger
}

// NewLoader creates a dataset loader.
func NewLoader(cfg config.DataConfig, logger *logrus.Logger) *Loader {
	return &Loader{cfg: cfg, logger: logger}
}

// LoadAll reads every property file matching the configured pattern.
// Individual property failures are returned alongside the successes;
// the error is non-nil only when not a single property could be loaded.
func (l *Loader) LoadAll(ctx context.Context) ([]types.PropertyData, []types.PropertyFailure, error) {
	pattern := filepath.Join(l.cfg.InputDir, l.cfg.FilePattern)
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, nil, errors.WithDetails(errors.ErrNoPropertyData, err.Error())
	}
	if len(files) == 0 {
		l.logger.WithField("pattern", pattern).Error("No property files found")
		return nil, nil, errors.WithDetails(errors.ErrNoPropertyData,
			fmt.Sprintf("no files matched %s", pattern))
	}

	properties := make([]types.PropertyData, 0, len(files))
	var failures []types.PropertyFailure

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		property, err := l.loadFile(file)
		if err != nil {
			l.logger.WithError(err).WithField("file", file).Warn("Skipping property file")
			failures = append(failures, types.PropertyFailure{
				PropertyID: propertyIDFromFilename(file),
				Error:      err.Error(),
			})
			continue
		}

		quality := AssessQuality(property.Metadata.PropertyID, property.CleanDataset, l.cfg.ExpectedDays)
		property.QualityScore = quality.Score
		if len(quality.Issues) > 0 {
			l.logger.WithFields(logrus.Fields{
				"property_id": property.Metadata.PropertyID,
				"score":       quality.Score,
				"issues":      quality.Issues,
			}).Warn("Data quality issues detected")
		}
		if quality.Score < l.cfg.MinQualityScore {
			failures = append(failures, types.PropertyFailure{
				PropertyID: property.Metadata.PropertyID,
				Error: fmt.Sprintf("quality score %d below minimum %d",
					quality.Score, l.cfg.MinQualityScore),
			})
			continue
		}

		properties = append(properties, property)
	}

	if len(properties) == 0 {
		return nil, failures, errors.WithDetails(errors.ErrNoPropertyData,
			fmt.Sprintf("all %d property files failed to load", len(files)))
	}
	return properties, failures, nil
}

func (l *Loader) loadFile(path string) (types.PropertyData, error) {
	var property types.PropertyData

	raw, err := os.ReadFile(path)
	if err != nil {
		return property, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(raw, &property); err != nil {
		return property, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	if property.Metadata.PropertyID == "" {
		property.Metadata.PropertyID = propertyIDFromFilename(path)
	}
	if property.Metadata.PropertyID == "" {
		return property, fmt.Errorf("%s: missing property_id", filepath.Base(path))
	}
	if property.Metadata.ClientName == "" {
		property.Metadata.ClientName = InferClientName(property.Metadata.Domain, property.Metadata.PropertyID)
	}

	sortObservations(property.CleanDataset)
	sortSegments(property.GeoSegments)
	sortSegments(property.DeviceSegments)
	sortSegments(property.TrafficSegments)
	sortSegments(property.PageSegments)

	return property, nil
}

// sortObservations orders daily rows by date ascending. ISO dates sort
// lexically, so no parsing is needed.
func sortObservations(days []types.MetricObservation) {
	sort.SliceStable(days, func(i, j int) bool {
		return days[i].Date < days[j].Date
	})
}

func sortSegments(segments []types.SegmentObservation) {
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Date < segments[j].Date
	})
}

// propertyIDFromFilename recovers the trailing numeric ID from names
// like scout_production_clean_acme_249571600.json.
func propertyIDFromFilename(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := strings.Split(stem, "_")
	if len(parts) == 0 {
		return ""
	}
	last := parts[len(parts)-1]
	for _, r := range last {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return last
}
