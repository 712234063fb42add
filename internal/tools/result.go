// Package tools implements the gateway's tool pipelines: forecast lookup,
// page screenshot and page-to-PDF render.
//
// Every pipeline returns a typed result carrying ok, and converts all
// failures into the failure variant before returning. Nothing here panics or
// lets an error escape past the pipeline boundary.
package tools

// Tool names as they appear in tool events and persisted tool messages.
const (
	ToolWeather    = "getWeather"
	ToolScreenshot = "screenshot"
	ToolPDF        = "pdf"
)

// Code classifies browser-tool failures.
type Code string

const (
	CodeBadURL      Code = "BAD_URL"
	CodeNavTimeout  Code = "NAV_TIMEOUT"
	CodeNavFail     Code = "NAV_FAIL"
	CodeCaptureFail Code = "CAPTURE_FAIL"
	CodeUploadFail  Code = "UPLOAD_FAIL"
)

// CaptureResult is the shared result contract of the screenshot and PDF
// pipelines.
type CaptureResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Code  Code   `json:"code,omitempty"`

	// Success payload
	Path        string `json:"path,omitempty"` // relative download path
	Key         string `json:"key,omitempty"`  // artifact store key
	ContentType string `json:"contentType,omitempty"`
	Bytes       int    `json:"bytes,omitempty"`
	Width       int    `json:"width,omitempty"`  // screenshots only
	Height      int    `json:"height,omitempty"` // screenshots only
	URL         string `json:"url,omitempty"`    // final navigated URL
	Title       string `json:"title,omitempty"`
}

// captureFailure builds the failure variant.
func captureFailure(code Code, msg string) CaptureResult {
	return CaptureResult{OK: false, Error: msg, Code: code}
}

// ForecastDay is one day of forecast data.
type ForecastDay struct {
	Date          string  `json:"date"`
	WeatherCode   int     `json:"weatherCode"`
	TempMax       float64 `json:"tempMax"`
	TempMin       float64 `json:"tempMin"`
	PrecipSum     float64 `json:"precipitationSum"`
	PrecipProbMax float64 `json:"precipitationProbabilityMax"`
}

// Place is the resolved forecast location.
type Place struct {
	Name      string  `json:"name"`
	Region    string  `json:"region,omitempty"`
	Country   string  `json:"country,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone,omitempty"`
}

// ForecastUnits labels the units the day records are expressed in.
type ForecastUnits struct {
	Temperature   string `json:"temperature"`
	Precipitation string `json:"precipitation"`
}

// ForecastResult is the forecast pipeline's result contract. Failures carry a
// free-text error only; the forecast tool has no error codes.
type ForecastResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	Place *Place        `json:"place,omitempty"`
	Days  []ForecastDay `json:"days,omitempty"`
	Units ForecastUnits `json:"units,omitzero"`
	Note  string        `json:"note,omitempty"`
}

// forecastFailure builds the failure variant.
func forecastFailure(msg string) ForecastResult {
	return ForecastResult{OK: false, Error: msg}
}
