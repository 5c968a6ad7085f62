// Package rootcause matches anomalies against a versioned calendar of
// external events (algorithm updates, holidays, platform changes) and
// scores how likely each event is to explain the anomaly.
package rootcause

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/stm-analytics/scout-go/internal/core/types"
)

// LoadCalendar reads the external-event calendar from a YAML file.
// The calendar is reference data: loaded once per run and never
// mutated, so it is safe for concurrent readers.
func LoadCalendar(path string) (*types.EventCalendar, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event calendar: %w", err)
	}

	var calendar types.EventCalendar
	if err := yaml.Unmarshal(raw, &calendar); err != nil {
		return nil, fmt.Errorf("parse event calendar: %w", err)
	}

	for i, event := range calendar.Events {
		if _, err := types.ParseDate(event.Date); err != nil {
			return nil, fmt.Errorf("event calendar entry %d (%s): bad date %q",
				i, event.Name, event.Date)
		}
		if event.ConfidenceBoost < 0 || event.ConfidenceBoost > 1 {
			return nil, fmt.Errorf("event calendar entry %d (%s): confidence_boost %v outside [0,1]",
				i, event.Name, event.ConfidenceBoost)
		}
	}

	sort.SliceStable(calendar.Events, func(i, j int) bool {
		return calendar.Events[i].Date < calendar.Events[j].Date
	})
	return &calendar, nil
}
