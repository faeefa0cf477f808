package conversation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewhitt/stratus/internal/conversation"
	"github.com/ewhitt/stratus/internal/mocks"
	"github.com/ewhitt/stratus/internal/weather"
)

func parisClient() *mocks.MockWeatherClient {
	return &mocks.MockWeatherClient{
		GeocodeResults: map[string][]weather.Location{
			"Paris": {{Name: "Paris", Country: "France", Latitude: 48.85, Longitude: 2.35}},
		},
		ForecastObs: weather.Observation{Temperature: 18.2},
	}
}

func TestEngine_RequiresWeatherClient(t *testing.T) {
	if _, err := conversation.NewEngine(nil); err == nil {
		t.Error("expected error for nil weather client")
	}
}

func TestEngine_RunFullConversation(t *testing.T) {
	client := parisClient()
	engine, err := conversation.NewEngine(client)
	require.NoError(t, err)

	channel := mocks.NewScriptedChannel("Paris", "quit")
	require.NoError(t, engine.Run(context.Background(), channel))

	assert.Equal(t, []string{
		"Name a city: ",
		"Found Paris (France) at latitude 48.85 and longitude 2.35",
		"Current temperature is 18.2 °C",
		"choose: [continue quit]",
		"Terminating",
	}, channel.Outputs())

	assert.Equal(t, []string{"Paris"}, client.GeocodeCalls())
	assert.Equal(t, [][2]float64{{48.85, 2.35}}, client.ForecastCalls())
}

func TestEngine_RunRepeatsOnContinue(t *testing.T) {
	client := parisClient()
	engine, err := conversation.NewEngine(client)
	require.NoError(t, err)

	channel := mocks.NewScriptedChannel("Paris", "continue", "Paris", "quit")
	require.NoError(t, engine.Run(context.Background(), channel))

	assert.Equal(t, []string{"Paris", "Paris"}, client.GeocodeCalls())
	assert.Len(t, client.ForecastCalls(), 2)
}

func TestEngine_FindCityNotFound(t *testing.T) {
	client := &mocks.MockWeatherClient{}
	engine, err := conversation.NewEngine(client)
	require.NoError(t, err)

	channel := mocks.NewScriptedChannel("Nowhereville")

	next, done, err := engine.Step(context.Background(), conversation.FindCity{}, channel)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, conversation.FindCity{}, next, "empty geocode result must self-transition")

	outputs := channel.Outputs()
	require.Len(t, outputs, 2)
	assert.Equal(t, "Found nothing", outputs[1])
}

func TestEngine_FindCityFirstMatchWins(t *testing.T) {
	client := &mocks.MockWeatherClient{
		GeocodeResults: map[string][]weather.Location{
			"Paris": {
				{Name: "Paris", Country: "France", Latitude: 48.85, Longitude: 2.35},
				{Name: "Paris", Country: "United States", Latitude: 33.66, Longitude: -95.55},
			},
		},
	}
	engine, err := conversation.NewEngine(client)
	require.NoError(t, err)

	channel := mocks.NewScriptedChannel("Paris")

	next, done, err := engine.Step(context.Background(), conversation.FindCity{}, channel)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, conversation.ShowWeather{Latitude: 48.85, Longitude: 2.35}, next)
}

func TestEngine_ShowWeatherTransitions(t *testing.T) {
	client := parisClient()
	engine, err := conversation.NewEngine(client)
	require.NoError(t, err)

	channel := mocks.NewScriptedChannel()

	next, done, err := engine.Step(context.Background(),
		conversation.ShowWeather{Latitude: 48.85, Longitude: 2.35}, channel)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, conversation.AskContinueOrQuit{}, next)
	assert.Equal(t, []string{"Current temperature is 18.2 °C"}, channel.Outputs())
}

func TestEngine_AskContinueOrQuit(t *testing.T) {
	tests := []struct {
		name     string
		answer   string
		wantDone bool
		wantNext conversation.State
	}{
		{name: "quit terminates", answer: "quit", wantDone: true, wantNext: nil},
		{name: "continue restarts", answer: "continue", wantDone: false, wantNext: conversation.FindCity{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := conversation.NewEngine(parisClient())
			require.NoError(t, err)

			channel := mocks.NewScriptedChannel(tt.answer)

			next, done, err := engine.Step(context.Background(), conversation.AskContinueOrQuit{}, channel)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDone, done)
			assert.Equal(t, tt.wantNext, next)
		})
	}
}

func TestEngine_GeocodeErrorPropagates(t *testing.T) {
	lookupErr := errors.New("provider unreachable")
	client := &mocks.MockWeatherClient{GeocodeErr: lookupErr}
	engine, err := conversation.NewEngine(client)
	require.NoError(t, err)

	channel := mocks.NewScriptedChannel("Paris")

	_, _, err = engine.Step(context.Background(), conversation.FindCity{}, channel)
	require.Error(t, err)
	assert.ErrorIs(t, err, lookupErr)
}

func TestEngine_ForecastErrorPropagates(t *testing.T) {
	lookupErr := errors.New("provider unreachable")
	client := &mocks.MockWeatherClient{ForecastErr: lookupErr}
	engine, err := conversation.NewEngine(client)
	require.NoError(t, err)

	_, _, err = engine.Step(context.Background(),
		conversation.ShowWeather{Latitude: 1, Longitude: 2}, mocks.NewScriptedChannel())
	require.Error(t, err)
	assert.ErrorIs(t, err, lookupErr)
}

func TestEngine_StepUnknownState(t *testing.T) {
	engine, err := conversation.NewEngine(parisClient())
	require.NoError(t, err)

	_, _, err = engine.Step(context.Background(), nil, mocks.NewScriptedChannel())
	require.Error(t, err)
}

func TestEngine_NotifiesTypingBeforeLookups(t *testing.T) {
	engine, err := conversation.NewEngine(parisClient())
	require.NoError(t, err)

	channel := mocks.NewScriptedChannel("Paris", "quit")
	require.NoError(t, engine.Run(context.Background(), channel))

	// Once before the geocode, once before the forecast.
	assert.Equal(t, 2, channel.TypingCount())
}

func TestEngine_RunStopsOnChannelError(t *testing.T) {
	engine, err := conversation.NewEngine(parisClient())
	require.NoError(t, err)

	// Script runs dry mid-conversation; the read error must unwind Run.
	channel := mocks.NewScriptedChannel("Paris")
	err = engine.Run(context.Background(), channel)
	require.Error(t, err)
	assert.ErrorIs(t, err, mocks.ErrScriptExhausted)
}
