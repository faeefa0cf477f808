// Package weather resolves city names to coordinates and fetches
// current conditions from a forecast provider.
package weather

import "context"

// Location is a geocoded place, best match first in provider results.
type Location struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Observation holds current conditions at a point.
type Observation struct {
	Temperature float64 `json:"temperature"`
}

// Client looks up places and current conditions.
type Client interface {
	// Geocode resolves a city name to zero or more candidate locations,
	// ordered by provider relevance. An empty result is not an error.
	Geocode(ctx context.Context, name string) ([]Location, error)

	// Forecast returns current conditions at the given coordinates.
	Forecast(ctx context.Context, latitude, longitude float64) (Observation, error)
}
