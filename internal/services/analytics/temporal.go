package analytics

import (
	"math"
	"time"

	"PumpWatch/internal/domain/models"
	"PumpWatch/pkg/util"
)

// Weekdays are the trading days in report order.
var Weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri"}

// ClusteringAlpha is the significance level of the weekday test.
const ClusteringAlpha = 0.05

// WeekdayClustering tests whether pump signals concentrate on particular
// trading days. Only confirmed and likely pumps are counted; weekend dates are ignored.
func WeekdayClustering(records []models.BacktestRecord) models.WeekdayClustering {
	out := models.WeekdayClustering{Counts: make(map[string]int, len(Weekdays))}
	for _, d := range Weekdays {
		out.Counts[d] = 0
	}
	for _, r := range records {
		if !r.Classification.IsPump() {
			continue
		}
		wd := r.SignalDate.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			continue
		}
		out.Counts[util.Weekday(r.SignalDate)]++
		out.Total++
	}
	if out.Total == 0 {
		out.PValue = 1
		return out
	}
	expected := float64(out.Total) / float64(len(Weekdays))
	peak := -1
	for _, d := range Weekdays {
		c := out.Counts[d]
		diff := float64(c) - expected
		out.ChiSquare += diff * diff / expected
		if c > peak {
			peak = c
			out.PeakDay = d
		}
	}
	out.PValue = chiSquareSurvivalDF4(out.ChiSquare)
	out.Significant = out.PValue < ClusteringAlpha
	return out
}

// chiSquareSurvivalDF4 is P(X > x) for a chi-square variable with four degrees of freedom.
func chiSquareSurvivalDF4(x float64) float64 {
	if x <= 0 {
		return 1
	}
	return math.Exp(-x/2) * (1 + x/2)
}
