package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/nkoterov/breeze/internal/log"
)

// Forecast window bounds.
const (
	MinForecastDays     = 1
	MaxForecastDays     = 16
	DefaultForecastDays = 7
)

// datePattern validates ISO dates by shape only, not calendar correctness.
var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// WeatherArgs are the planner-extracted arguments for a forecast lookup.
// Either a free-text location or explicit coordinates.
type WeatherArgs struct {
	Location  string   `json:"location,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	StartDate string   `json:"startDate,omitempty"`
	EndDate   string   `json:"endDate,omitempty"`
	Days      int      `json:"days,omitempty"`
	Units     string   `json:"units,omitempty"` // "imperial" switches to °F/inches
}

// Weather looks up daily forecasts: geocoding the location when no explicit
// coordinates are given, then fetching the daily forecast. A simple
// fetch-and-reshape with no retry logic; any network or parsing failure
// yields the failure variant, never a partial success.
type Weather struct {
	geocodeBaseURL  string
	forecastBaseURL string
	httpClient      *http.Client
	logger          log.Logger
}

// NewWeather creates the forecast pipeline. Base URLs point at an
// Open-Meteo-compatible geocoder and forecast API.
func NewWeather(geocodeBaseURL, forecastBaseURL string, logger log.Logger) *Weather {
	return &Weather{
		geocodeBaseURL:  strings.TrimSuffix(geocodeBaseURL, "/"),
		forecastBaseURL: strings.TrimSuffix(forecastBaseURL, "/"),
		httpClient:      &http.Client{},
		logger:          logger,
	}
}

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Country   string  `json:"country"`
		Admin1    string  `json:"admin1"`
		Timezone  string  `json:"timezone"`
	} `json:"results"`
}

type forecastResponse struct {
	Timezone string `json:"timezone"`
	Daily    struct {
		Time                     []string  `json:"time"`
		WeatherCode              []int     `json:"weather_code"`
		TemperatureMax           []float64 `json:"temperature_2m_max"`
		TemperatureMin           []float64 `json:"temperature_2m_min"`
		PrecipitationSum         []float64 `json:"precipitation_sum"`
		PrecipitationProbability []float64 `json:"precipitation_probability_max"`
	} `json:"daily"`
}

// Lookup resolves the forecast for args.
func (w *Weather) Lookup(ctx context.Context, args WeatherArgs) ForecastResult {
	place, errResult := w.resolvePlace(ctx, args)
	if errResult != nil {
		return *errResult
	}

	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(place.Latitude, 'f', 4, 64))
	query.Set("longitude", strconv.FormatFloat(place.Longitude, 'f', 4, 64))
	query.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_sum,precipitation_probability_max")
	query.Set("timezone", "auto")

	note := w.applyWindow(query, args)

	units := ForecastUnits{Temperature: "°C", Precipitation: "mm"}
	if args.Units == "imperial" {
		query.Set("temperature_unit", "fahrenheit")
		query.Set("precipitation_unit", "inch")
		units = ForecastUnits{Temperature: "°F", Precipitation: "in"}
	}

	var fc forecastResponse
	if err := w.getJSON(ctx, w.forecastBaseURL+"/v1/forecast?"+query.Encode(), &fc); err != nil {
		w.logger.Warn("forecast fetch failed", "error", err)
		return forecastFailure(fmt.Sprintf("could not fetch the forecast: %v", err))
	}

	days := make([]ForecastDay, 0, len(fc.Daily.Time))
	for i, date := range fc.Daily.Time {
		day := ForecastDay{Date: date}
		if i < len(fc.Daily.WeatherCode) {
			day.WeatherCode = fc.Daily.WeatherCode[i]
		}
		if i < len(fc.Daily.TemperatureMax) {
			day.TempMax = fc.Daily.TemperatureMax[i]
		}
		if i < len(fc.Daily.TemperatureMin) {
			day.TempMin = fc.Daily.TemperatureMin[i]
		}
		if i < len(fc.Daily.PrecipitationSum) {
			day.PrecipSum = fc.Daily.PrecipitationSum[i]
		}
		if i < len(fc.Daily.PrecipitationProbability) {
			day.PrecipProbMax = fc.Daily.PrecipitationProbability[i]
		}
		days = append(days, day)
	}

	if place.Timezone == "" {
		place.Timezone = fc.Timezone
	}

	return ForecastResult{
		OK:    true,
		Place: place,
		Days:  days,
		Units: units,
		Note:  note,
	}
}

// resolvePlace returns the lookup coordinates, geocoding the free-text
// location when explicit coordinates are absent. The second return value is
// non-nil when the lookup should end with that failure result.
func (w *Weather) resolvePlace(ctx context.Context, args WeatherArgs) (*Place, *ForecastResult) {
	if args.Latitude != nil && args.Longitude != nil {
		return &Place{
			Name:      fmt.Sprintf("%.4f, %.4f", *args.Latitude, *args.Longitude),
			Latitude:  *args.Latitude,
			Longitude: *args.Longitude,
		}, nil
	}

	location := strings.TrimSpace(args.Location)
	if location == "" {
		res := forecastFailure("I need a location for the forecast — which place did you mean?")
		return nil, &res
	}

	query := url.Values{}
	query.Set("name", location)
	query.Set("count", "1")
	query.Set("language", "en")
	query.Set("format", "json")

	var geo geocodeResponse
	if err := w.getJSON(ctx, w.geocodeBaseURL+"/v1/search?"+query.Encode(), &geo); err != nil {
		w.logger.Warn("geocoding failed", "location", location, "error", err)
		res := forecastFailure(fmt.Sprintf("could not look up %q: %v", location, err))
		return nil, &res
	}
	if len(geo.Results) == 0 {
		// A miss is a clarification, not a hard failure.
		res := forecastFailure(fmt.Sprintf("I couldn't find a place called %q — could you be more specific?", location))
		return nil, &res
	}

	first := geo.Results[0]
	return &Place{
		Name:      first.Name,
		Region:    first.Admin1,
		Country:   first.Country,
		Latitude:  first.Latitude,
		Longitude: first.Longitude,
		Timezone:  first.Timezone,
	}, nil
}

// applyWindow sets the forecast window query parameters and returns the
// human-readable note describing the requested window. An explicit
// start+end pair wins; otherwise a clamped day count applies.
func (w *Weather) applyWindow(query url.Values, args WeatherArgs) string {
	if datePattern.MatchString(args.StartDate) && datePattern.MatchString(args.EndDate) {
		query.Set("start_date", args.StartDate)
		query.Set("end_date", args.EndDate)
		return fmt.Sprintf("Forecast for %s through %s.", args.StartDate, args.EndDate)
	}

	days := args.Days
	if days == 0 {
		days = DefaultForecastDays
	}
	if days < MinForecastDays {
		days = MinForecastDays
	}
	if days > MaxForecastDays {
		days = MaxForecastDays
	}
	query.Set("forecast_days", strconv.Itoa(days))
	if days == 1 {
		return "Forecast for the next day."
	}
	return fmt.Sprintf("Forecast for the next %d days.", days)
}

// getJSON fetches u and decodes the JSON body into out. Non-2xx responses
// are errors.
func (w *Weather) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
