// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ewhitt/stratus/internal/chat"
	"github.com/ewhitt/stratus/internal/weather"
)

// ErrScriptExhausted indicates a scripted channel ran out of inputs.
var ErrScriptExhausted = errors.New("scripted channel: no more inputs")

// Compile-time checks to ensure mocks implement their interfaces.
var (
	_ weather.Client      = (*MockWeatherClient)(nil)
	_ chat.Channel        = (*ScriptedChannel)(nil)
	_ chat.TypingNotifier = (*ScriptedChannel)(nil)
)

// MockWeatherClient is a test implementation of the weather client.
type MockWeatherClient struct {
	mu sync.Mutex

	// GeocodeResults maps a city name to its scripted matches. Cities
	// absent from the map geocode to an empty result.
	GeocodeResults map[string][]weather.Location
	GeocodeErr     error

	ForecastObs weather.Observation
	ForecastErr error

	geocodeCalls  []string
	forecastCalls [][2]float64
}

// Geocode returns the scripted matches for name.
func (m *MockWeatherClient) Geocode(_ context.Context, name string) ([]weather.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.geocodeCalls = append(m.geocodeCalls, name)
	if m.GeocodeErr != nil {
		return nil, m.GeocodeErr
	}
	return m.GeocodeResults[name], nil
}

// Forecast returns the scripted observation.
func (m *MockWeatherClient) Forecast(_ context.Context, latitude, longitude float64) (weather.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.forecastCalls = append(m.forecastCalls, [2]float64{latitude, longitude})
	if m.ForecastErr != nil {
		return weather.Observation{}, m.ForecastErr
	}
	return m.ForecastObs, nil
}

// GeocodeCalls returns the city names passed to Geocode, in order.
func (m *MockWeatherClient) GeocodeCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.geocodeCalls...)
}

// ForecastCalls returns the coordinate pairs passed to Forecast, in order.
func (m *MockWeatherClient) ForecastCalls() [][2]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][2]float64(nil), m.forecastCalls...)
}

// ScriptedChannel is a chat.Channel fed from a fixed input script. Every
// emitted prompt and message is recorded so tests can assert on the full
// transcript. Choose applies the exact-match discipline of the
// event-driven channel: a non-matching scripted reply records
// "Try again" and consumes the next input.
type ScriptedChannel struct {
	mu     sync.Mutex
	inputs []string

	outputs     []string
	typingCount int
}

// NewScriptedChannel creates a channel that replays the given inputs.
func NewScriptedChannel(inputs ...string) *ScriptedChannel {
	return &ScriptedChannel{inputs: inputs}
}

// Input records the prompt and pops the next scripted line.
func (c *ScriptedChannel) Input(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("scripted input: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if prompt != "" {
		c.outputs = append(c.outputs, prompt)
	}
	return c.pop()
}

// Print records the message.
func (c *ScriptedChannel) Print(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("scripted print: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.outputs = append(c.outputs, message)
	return nil
}

// Choose records the options and consumes inputs until one matches.
func (c *ScriptedChannel) Choose(ctx context.Context, options ...string) (string, error) {
	if len(options) == 0 {
		return "", chat.ErrNoOptions
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("scripted choose: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.outputs = append(c.outputs, fmt.Sprintf("choose: %v", options))
	for {
		answer, err := c.pop()
		if err != nil {
			return "", err
		}
		for _, opt := range options {
			if answer == opt {
				return opt, nil
			}
		}
		c.outputs = append(c.outputs, "Try again")
	}
}

// NotifyTyping counts typing notifications.
func (c *ScriptedChannel) NotifyTyping(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.typingCount++
	return nil
}

// Outputs returns the transcript of everything the channel emitted.
func (c *ScriptedChannel) Outputs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.outputs...)
}

// TypingCount returns how many typing notifications were sent.
func (c *ScriptedChannel) TypingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typingCount
}

// pop removes and returns the next scripted input. Callers hold c.mu.
func (c *ScriptedChannel) pop() (string, error) {
	if len(c.inputs) == 0 {
		return "", ErrScriptExhausted
	}
	next := c.inputs[0]
	c.inputs = c.inputs[1:]
	return next, nil
}
