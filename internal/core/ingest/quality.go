package ingest

import (
	"fmt"

	"github.com/stm-analytics/scout-go/internal/core/types"
)

// ReadyScore is the quality score at or above which a dataset is
// considered fully trustworthy for detection.
const ReadyScore = 70

// AssessQuality scores a property's daily series for fitness. The score
// starts at 100 and loses points for gaps and implausible days; it never
// goes below 0. Detection still runs on low-scoring data unless the
// configured minimum says otherwise.
func AssessQuality(propertyID string, days []types.MetricObservation, expectedDays int) types.QualityReport {
	report := types.QualityReport{
		PropertyID:   propertyID,
		DaysPresent:  len(days),
		DaysExpected: expectedDays,
	}
	if len(days) == 0 {
		report.Issues = []string{"No data available"}
		return report
	}

	score := 100

	// Missing more than 20% of the expected window costs a flat 20.
	if expectedDays > 0 && float64(len(days)) < float64(expectedDays)*0.8 {
		report.Issues = append(report.Issues,
			fmt.Sprintf("Missing data: %d/%d days", len(days), expectedDays))
		score -= 20
	}

	zeroDays := 0
	for _, day := range days {
		if day.Sessions == 0 {
			zeroDays++
		}
	}
	if zeroDays > 0 {
		report.Issues = append(report.Issues,
			fmt.Sprintf("Zero sessions on %d days", zeroDays))
		score -= zeroDays * 10
	}

	for _, day := range days {
		if day.Sessions > 0 && day.Users > 0 {
			ratio := day.Sessions / day.Users
			if ratio < 0.5 || ratio > 10 {
				report.Issues = append(report.Issues,
					fmt.Sprintf("Unusual session/user ratio on %s: %.2f", day.Date, ratio))
				score -= 5
			}
		}
	}

	for _, day := range days {
		if day.Sessions > 0 {
			rate := day.Conversions / day.Sessions
			if rate > 0.5 {
				report.Issues = append(report.Issues,
					fmt.Sprintf("High conversion rate on %s: %.1f%%", day.Date, rate*100))
				score -= 5
			}
		}
	}

	if score < 0 {
		score = 0
	}
	report.Score = score
	report.Ready = score >= ReadyScore
	return report
}
