package api

import (
	"context"
	"net/http"
	"net/url"

	"LaurelinChat/internal/backend"
)

const experimentsPath = "/ab-testing/experiments"

// Experiments lists the A/B experiments visible to the user
func (c *Client) Experiments(ctx context.Context) ([]backend.Experiment, error) {
	const op = "list_experiments"

	var resp backend.Envelope[[]backend.Experiment]
	if err := c.do(ctx, request{op: op, method: http.MethodGet, path: experimentsPath}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, unsuccessful(op, resp.Error, "Failed to load experiments")
	}
	return resp.Data, nil
}

// AssignExperiment asks the backend which variant the user belongs to
func (c *Client) AssignExperiment(ctx context.Context, name string) (string, error) {
	const op = "assign_experiment"

	var resp backend.AssignResponse
	err := c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   experimentPath(name) + "/assign",
		body:   struct{}{},
	}, &resp)
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", unsuccessful(op, resp.Error, "")
	}
	c.logger.Info("assigned to experiment variant", "experiment", name, "variant", resp.Variant)
	return resp.Variant, nil
}

// TrackEvent records an experiment event. A nil data map is sent as {}.
func (c *Client) TrackEvent(ctx context.Context, name, eventType string, data map[string]any) error {
	const op = "track_event"

	if data == nil {
		data = map[string]any{}
	}

	var resp backend.StatusResponse
	err := c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   experimentPath(name) + "/track",
		body:   backend.TrackEventRequest{EventType: eventType, EventData: data},
	}, &resp)
	if err != nil {
		return err
	}
	if !resp.Success {
		return unsuccessful(op, resp.Error, resp.Message)
	}
	return nil
}

// ExperimentResults fetches the aggregated results of an experiment
func (c *Client) ExperimentResults(ctx context.Context, name string) (map[string]any, error) {
	const op = "experiment_results"

	var resp backend.ResultsResponse
	if err := c.do(ctx, request{op: op, method: http.MethodGet, path: experimentPath(name) + "/results"}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, unsuccessful(op, resp.Error, "Failed to load experiment results")
	}
	return resp.Results, nil
}

func experimentPath(name string) string {
	return experimentsPath + "/" + url.PathEscape(name)
}
