package evaluator

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makar-FP/plus-smart-home-tech/internal/model"
)

func TestHubRouterClientDispatch(t *testing.T) {
	var received ActionRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewHubRouterClient(srv.URL, time.Second, log)

	value := 40
	req := newActionRequest("h1", "evening", "s1", model.Action{Type: model.ActionSetValue, Value: &value}, time.Unix(100, 0).UTC())
	require.NoError(t, client.Dispatch(context.Background(), req))

	assert.Equal(t, "/api/v1/hubs/h1/actions", path)
	assert.Equal(t, "h1", received.HubID)
	assert.Equal(t, "evening", received.ScenarioName)
	assert.Equal(t, "s1", received.SensorID)
	assert.Equal(t, model.ActionSetValue, received.Type)
	require.NotNil(t, received.Value)
	assert.Equal(t, 40, *received.Value)
	assert.NotEmpty(t, received.CommandID)
}

func TestHubRouterClientRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewHubRouterClient(srv.URL, time.Second, log)

	req := newActionRequest("h1", "evening", "s1", model.Action{Type: model.ActionActivate}, time.Now())
	assert.Error(t, client.Dispatch(context.Background(), req))
}

func TestNewActionRequestOmitsValueForNonSetValue(t *testing.T) {
	value := 10
	req := newActionRequest("h1", "n", "s1", model.Action{Type: model.ActionInverse, Value: &value}, time.Now())
	assert.Nil(t, req.Value)
}
