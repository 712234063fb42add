package tools

import (
	"fmt"
	"math"
	"strings"
)

// Summary thresholds: umbrella advice above this precipitation probability,
// layering advice above this high-low temperature span.
const (
	umbrellaProbThreshold = 40.0
	layerSpanThreshold    = 10.0
)

// summaryWindowDays bounds the summary to roughly one week even when the
// pipeline returned a longer window.
const summaryWindowDays = 7

// SummarizeForecast produces the three-sentence numeric summary of a
// successful forecast: high/low, precipitation peak, packing advice. It is a
// pure function of the result — identical input yields identical wording —
// so weather answers are never left to the model to restate.
func SummarizeForecast(res ForecastResult) string {
	days := res.Days
	if len(days) > summaryWindowDays {
		days = days[:summaryWindowDays]
	}

	tempUnit := res.Units.Temperature
	if tempUnit == "" {
		tempUnit = "°C"
	}

	high := math.Inf(-1)
	low := math.Inf(1)
	peakProb := 0.0
	peakDay := ""
	peakIndex := -1
	for i, d := range days {
		if d.TempMax > high {
			high = d.TempMax
		}
		if d.TempMin < low {
			low = d.TempMin
		}
		// Strictly greater keeps the first occurrence on ties.
		if d.PrecipProbMax > peakProb {
			peakProb = d.PrecipProbMax
			peakDay = d.Date
			peakIndex = i
		}
	}

	var b strings.Builder

	// Sentence 1: temperatures.
	highOK := !math.IsInf(high, -1) && !math.IsNaN(high)
	lowOK := !math.IsInf(low, 1) && !math.IsNaN(low)
	switch {
	case highOK && lowOK:
		fmt.Fprintf(&b, "Expect a high of about %.0f%s and a low of about %.0f%s over the period.", high, tempUnit, low, tempUnit)
	case highOK:
		fmt.Fprintf(&b, "Expect a high of about %.0f%s over the period.", high, tempUnit)
	case lowOK:
		fmt.Fprintf(&b, "Expect a low of about %.0f%s over the period.", low, tempUnit)
	default:
		b.WriteString("Temperature data is not available for this window.")
	}

	// Sentence 2: precipitation.
	if peakProb > 0 {
		fmt.Fprintf(&b, " The highest chance of precipitation is %.0f%% on %s.", peakProb, describeDay(peakDay, peakIndex))
	} else {
		b.WriteString(" Precipitation risk looks low for the whole period.")
	}

	// Sentence 3: packing advice.
	switch {
	case peakProb >= umbrellaProbThreshold:
		b.WriteString(" Pack an umbrella or rain jacket.")
	case highOK && lowOK && high-low >= layerSpanThreshold:
		b.WriteString(" Bring layers for the temperature swing between day and night.")
	default:
		b.WriteString(" Light layers should be all you need.")
	}

	return b.String()
}

// describeDay names the peak-precipitation day by date, falling back to its
// ordinal position when the date is missing.
func describeDay(date string, index int) string {
	if date != "" {
		return date
	}
	return fmt.Sprintf("day %d", index+1)
}
