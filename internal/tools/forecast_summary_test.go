package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeForecast(t *testing.T) {
	t.Parallel()

	t.Run("two day window with a wet day", func(t *testing.T) {
		t.Parallel()
		res := ForecastResult{
			OK: true,
			Days: []ForecastDay{
				{Date: "2026-08-29", TempMax: 30, TempMin: 20, PrecipProbMax: 10},
				{Date: "2026-08-30", TempMax: 28, TempMin: 18, PrecipProbMax: 75},
			},
			Units: ForecastUnits{Temperature: "°C", Precipitation: "mm"},
		}

		got := SummarizeForecast(res)

		assert.Contains(t, got, "high of about 30°C")
		assert.Contains(t, got, "low of about 18°C")
		assert.Contains(t, got, "75% on 2026-08-30")
		assert.Contains(t, got, "umbrella")
	})

	t.Run("dry window advises light layers", func(t *testing.T) {
		t.Parallel()
		res := ForecastResult{
			OK: true,
			Days: []ForecastDay{
				{Date: "2026-08-29", TempMax: 22, TempMin: 16, PrecipProbMax: 0},
				{Date: "2026-08-30", TempMax: 23, TempMin: 17, PrecipProbMax: 0},
			},
		}

		got := SummarizeForecast(res)

		assert.Contains(t, got, "Precipitation risk looks low")
		assert.Contains(t, got, "Light layers")
	})

	t.Run("wide span advises layers", func(t *testing.T) {
		t.Parallel()
		res := ForecastResult{
			OK: true,
			Days: []ForecastDay{
				{Date: "2026-08-29", TempMax: 25, TempMin: 8, PrecipProbMax: 20},
			},
		}

		got := SummarizeForecast(res)

		assert.Contains(t, got, "20% on 2026-08-29")
		assert.Contains(t, got, "layers for the temperature swing")
	})

	t.Run("tie keeps the first peak day", func(t *testing.T) {
		t.Parallel()
		res := ForecastResult{
			OK: true,
			Days: []ForecastDay{
				{Date: "2026-08-29", TempMax: 20, TempMin: 12, PrecipProbMax: 60},
				{Date: "2026-08-30", TempMax: 20, TempMin: 12, PrecipProbMax: 60},
			},
		}

		assert.Contains(t, SummarizeForecast(res), "on 2026-08-29")
	})

	t.Run("only the first week counts", func(t *testing.T) {
		t.Parallel()
		days := make([]ForecastDay, 10)
		for i := range days {
			days[i] = ForecastDay{Date: "2026-09-01", TempMax: 20, TempMin: 15}
		}
		days[9].PrecipProbMax = 90 // beyond the summary window
		days[9].TempMax = 40

		got := SummarizeForecast(ForecastResult{OK: true, Days: days})

		assert.Contains(t, got, "high of about 20°C")
		assert.Contains(t, got, "Precipitation risk looks low")
	})

	t.Run("deterministic wording", func(t *testing.T) {
		t.Parallel()
		res := ForecastResult{
			OK:   true,
			Days: []ForecastDay{{Date: "2026-08-29", TempMax: 18, TempMin: 11, PrecipProbMax: 45}},
		}

		assert.Equal(t, SummarizeForecast(res), SummarizeForecast(res))
	})

	t.Run("no days", func(t *testing.T) {
		t.Parallel()
		got := SummarizeForecast(ForecastResult{OK: true})
		assert.Contains(t, got, "Temperature data is not available")
	})

	t.Run("imperial units flow through", func(t *testing.T) {
		t.Parallel()
		res := ForecastResult{
			OK:    true,
			Days:  []ForecastDay{{Date: "2026-08-29", TempMax: 86, TempMin: 64}},
			Units: ForecastUnits{Temperature: "°F", Precipitation: "in"},
		}

		got := SummarizeForecast(res)

		assert.Contains(t, got, "86°F")
		assert.Contains(t, got, "64°F")
	})
}
