// Package conversation implements the weather conversation as an
// explicit state machine over a chat.Channel.
package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ewhitt/stratus/internal/chat"
	"github.com/ewhitt/stratus/internal/weather"
)

// Choice labels offered after each weather report.
const (
	ChoiceContinue = "continue"
	ChoiceQuit     = "quit"
)

// State is one step of the conversation. The state set is closed; Step
// dispatches on the concrete type.
type State interface {
	isState()
}

// FindCity solicits a city name and geocodes it. Initial state.
type FindCity struct{}

// ShowWeather reports current conditions at resolved coordinates.
type ShowWeather struct {
	Latitude  float64
	Longitude float64
}

// AskContinueOrQuit offers another round or termination.
type AskContinueOrQuit struct{}

func (FindCity) isState()          {}
func (ShowWeather) isState()       {}
func (AskContinueOrQuit) isState() {}

// Engine drives one conversation over a single channel.
type Engine struct {
	weather weather.Client
	logger  *slog.Logger
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an engine backed by the given weather client.
func NewEngine(client weather.Client, opts ...Option) (*Engine, error) {
	if client == nil {
		return nil, fmt.Errorf("weather client is required")
	}

	e := &Engine{
		weather: client,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run drives the state machine from FindCity until a step signals
// termination. The loop holds nothing but the current state; all side
// effects happen inside Step.
func (e *Engine) Run(ctx context.Context, ch chat.Channel) error {
	var state State = FindCity{}
	for {
		next, done, err := e.Step(ctx, state, ch)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		state = next
	}
}

// Step applies one transition and returns the next state. done reports
// explicit termination; it is never combined with a non-nil error.
func (e *Engine) Step(ctx context.Context, state State, ch chat.Channel) (next State, done bool, err error) {
	switch s := state.(type) {
	case FindCity:
		return e.findCity(ctx, ch)
	case ShowWeather:
		return e.showWeather(ctx, s, ch)
	case AskContinueOrQuit:
		return e.askContinueOrQuit(ctx, ch)
	default:
		return nil, false, fmt.Errorf("unknown conversation state %T", state)
	}
}

func (e *Engine) findCity(ctx context.Context, ch chat.Channel) (State, bool, error) {
	city, err := ch.Input(ctx, "Name a city: ")
	if err != nil {
		return nil, false, err
	}

	e.notifyTyping(ctx, ch)

	locations, err := e.weather.Geocode(ctx, city)
	if err != nil {
		return nil, false, fmt.Errorf("geocoding %q: %w", city, err)
	}

	if len(locations) == 0 {
		if err := ch.Print(ctx, "Found nothing"); err != nil {
			return nil, false, err
		}
		// Self-transition: the user keeps their place and can retry.
		return FindCity{}, false, nil
	}

	// First match wins; the provider already orders by relevance.
	location := locations[0]
	confirmation := fmt.Sprintf("Found %s (%s) at latitude %v and longitude %v",
		location.Name, location.Country, location.Latitude, location.Longitude)
	if err := ch.Print(ctx, confirmation); err != nil {
		return nil, false, err
	}

	return ShowWeather{Latitude: location.Latitude, Longitude: location.Longitude}, false, nil
}

func (e *Engine) showWeather(ctx context.Context, s ShowWeather, ch chat.Channel) (State, bool, error) {
	e.notifyTyping(ctx, ch)

	observation, err := e.weather.Forecast(ctx, s.Latitude, s.Longitude)
	if err != nil {
		return nil, false, fmt.Errorf("forecast at %v,%v: %w", s.Latitude, s.Longitude, err)
	}

	report := fmt.Sprintf("Current temperature is %v °C", observation.Temperature)
	if err := ch.Print(ctx, report); err != nil {
		return nil, false, err
	}

	return AskContinueOrQuit{}, false, nil
}

func (e *Engine) askContinueOrQuit(ctx context.Context, ch chat.Channel) (State, bool, error) {
	choice, err := ch.Choose(ctx, ChoiceContinue, ChoiceQuit)
	if err != nil {
		return nil, false, err
	}

	if choice == ChoiceQuit {
		if err := ch.Print(ctx, "Terminating"); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}

	return FindCity{}, false, nil
}

// notifyTyping is best effort; a channel that cannot signal typing or
// fails to deliver the indicator must not stall the conversation.
func (e *Engine) notifyTyping(ctx context.Context, ch chat.Channel) {
	notifier, ok := ch.(chat.TypingNotifier)
	if !ok {
		return
	}
	if err := notifier.NotifyTyping(ctx); err != nil {
		e.logger.Debug("typing notification failed", "error", err)
	}
}
