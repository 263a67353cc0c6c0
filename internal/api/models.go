package api

import (
	"context"
	"net/http"

	"LaurelinChat/internal/backend"
)

// DefaultModelProvider is used by TestModel when no provider is given
const DefaultModelProvider = "openai"

// AvailableModels returns the backend's model catalogue as sent
func (c *Client) AvailableModels(ctx context.Context) (any, error) {
	return c.getData(ctx, "available_models", "/models/available")
}

// ModelHealth returns the backend's model health report as sent
func (c *Client) ModelHealth(ctx context.Context) (any, error) {
	return c.getData(ctx, "model_health", "/models/health")
}

// TestModel sends a one-off prompt to a model provider, outside any session
func (c *Client) TestModel(ctx context.Context, message, provider string) (any, error) {
	const op = "test_model"

	if provider == "" {
		provider = DefaultModelProvider
	}

	var resp backend.Envelope[any]
	err := c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   "/models/test",
		body:   backend.TestModelRequest{Message: message, ModelProvider: provider},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, unsuccessful(op, resp.Error, resp.Message)
	}
	return resp.Data, nil
}

func (c *Client) getData(ctx context.Context, op, path string) (any, error) {
	var resp backend.Envelope[any]
	if err := c.do(ctx, request{op: op, method: http.MethodGet, path: path}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, unsuccessful(op, resp.Error, resp.Message)
	}
	return resp.Data, nil
}
