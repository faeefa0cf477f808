package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultGeocodeURL is the open-meteo geocoding search endpoint.
	DefaultGeocodeURL = "https://geocoding-api.open-meteo.com/v1/search"

	// DefaultForecastURL is the open-meteo forecast endpoint.
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"

	// defaultHTTPTimeout bounds a single lookup request.
	defaultHTTPTimeout = 10 * time.Second
)

// OpenMeteo is a Client backed by the open-meteo public APIs.
type OpenMeteo struct {
	httpClient  *http.Client
	logger      *slog.Logger
	geocodeURL  string
	forecastURL string
}

// OpenMeteoOption configures the client.
type OpenMeteoOption func(*OpenMeteo)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) OpenMeteoOption {
	return func(c *OpenMeteo) {
		c.httpClient = httpClient
	}
}

// WithEndpoints overrides the geocoding and forecast endpoint URLs.
func WithEndpoints(geocodeURL, forecastURL string) OpenMeteoOption {
	return func(c *OpenMeteo) {
		c.geocodeURL = geocodeURL
		c.forecastURL = forecastURL
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) OpenMeteoOption {
	return func(c *OpenMeteo) {
		c.logger = logger
	}
}

// NewOpenMeteo creates a client against the public open-meteo endpoints.
func NewOpenMeteo(opts ...OpenMeteoOption) *OpenMeteo {
	c := &OpenMeteo{
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
		logger:      slog.Default(),
		geocodeURL:  DefaultGeocodeURL,
		forecastURL: DefaultForecastURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode resolves a city name via the geocoding search endpoint.
func (c *OpenMeteo) Geocode(ctx context.Context, name string) ([]Location, error) {
	var payload struct {
		Results []Location `json:"results"`
	}

	params := url.Values{"name": []string{name}}
	if err := c.getJSON(ctx, c.geocodeURL, params, &payload); err != nil {
		return nil, fmt.Errorf("geocoding %q: %w", name, err)
	}

	c.logger.Debug("geocode lookup", "name", name, "matches", len(payload.Results))
	return payload.Results, nil
}

// Forecast fetches current conditions at the given coordinates.
func (c *OpenMeteo) Forecast(ctx context.Context, latitude, longitude float64) (Observation, error) {
	var payload struct {
		CurrentWeather Observation `json:"current_weather"`
	}

	params := url.Values{
		"latitude":        []string{formatCoord(latitude)},
		"longitude":       []string{formatCoord(longitude)},
		"current_weather": []string{"1"},
	}
	if err := c.getJSON(ctx, c.forecastURL, params, &payload); err != nil {
		return Observation{}, fmt.Errorf("forecast at %v,%v: %w", latitude, longitude, err)
	}

	return payload.CurrentWeather, nil
}

// getJSON performs a GET with query parameters and decodes the JSON body.
// Non-2xx responses and transport failures propagate to the caller; the
// retry policy belongs to whoever supervises the conversation.
func (c *OpenMeteo) getJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parsing endpoint URL: %w", err)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", u.Host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status %s from %s", resp.Status, u.Host)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", u.Host, err)
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
