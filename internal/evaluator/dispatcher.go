package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/Makar-FP/plus-smart-home-tech/internal/model"
)

// ActionRequest is one device command produced by a firing scenario.
type ActionRequest struct {
	CommandID    string           `json:"commandId"`
	HubID        string           `json:"hubId"`
	ScenarioName string           `json:"scenarioName"`
	SensorID     string           `json:"sensorId"`
	Type         model.ActionType `json:"type"`
	Value        *int             `json:"value,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

// ActionDispatcher delivers device commands to the hub router. Dispatch is a
// one-way call: an error means this command is lost, never retried.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, req ActionRequest) error
}

// HubRouterClient dispatches actions to the hub router over HTTP.
type HubRouterClient struct {
	client *resty.Client
	log    *slog.Logger
}

// NewHubRouterClient returns a dispatcher posting to the hub router at
// baseURL.
func NewHubRouterClient(baseURL string, timeout time.Duration, log *slog.Logger) *HubRouterClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	return &HubRouterClient{client: client, log: log.With(slog.String("component", "hub-router-client"))}
}

// Dispatch posts one device command.
func (c *HubRouterClient) Dispatch(ctx context.Context, req ActionRequest) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(fmt.Sprintf("/api/v1/hubs/%s/actions", req.HubID))
	if err != nil {
		return fmt.Errorf("post device action: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("hub router rejected action: %s", resp.Status())
	}
	c.log.Debug("device action delivered",
		slog.String("hubId", req.HubID), slog.String("sensorId", req.SensorID), slog.String("commandId", req.CommandID))
	return nil
}

func newActionRequest(hubID, scenarioName, sensorID string, action model.Action, now time.Time) ActionRequest {
	req := ActionRequest{
		CommandID:    uuid.NewString(),
		HubID:        hubID,
		ScenarioName: scenarioName,
		SensorID:     sensorID,
		Type:         action.Type,
		Timestamp:    now,
	}
	if action.Type == model.ActionSetValue {
		req.Value = action.Value
	}
	return req
}
