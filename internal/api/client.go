// Package api is the HTTP client for the Laurelin chat backend.
//
// Client is the only component that talks to the network. Besides returning
// results it publishes the authenticated user and the current chat session on
// two broadcast channels so the UI can react without polling.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"LaurelinChat/internal/broadcast"
	"LaurelinChat/internal/session"
)

const (
	// DefaultTimeout is the default timeout for API requests
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize caps how much of a response body is read
	MaxResponseSize = 10 * 1024 * 1024
)

// Client wraps every call to the backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	tracer     trace.Tracer
	duration   metric.Float64Histogram
	now        func() time.Time

	mu    sync.RWMutex
	token string
	user  *session.User

	users    *broadcast.Channel[*session.User]
	sessions *broadcast.Channel[*session.Session]
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithTracer sets the tracer used for request spans
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) { c.tracer = tracer }
}

// WithMeter sets the meter used for request duration metrics
func WithMeter(meter metric.Meter) Option {
	return func(c *Client) {
		histogram, err := meter.Float64Histogram(
			"http.client.request.duration",
			metric.WithDescription("HTTP request duration in milliseconds"),
		)
		if err == nil {
			c.duration = histogram
		}
	}
}

// WithRateLimit throttles outgoing requests. rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithClock overrides the time source used for default session titles
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a client for the backend rooted at baseURL (e.g. http://localhost:8080/api)
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Inf, 0),
		logger:     slog.Default(),
		tracer:     otel.Tracer("laurelin/api"),
		now:        time.Now,
		users:      broadcast.New[*session.User](nil),
		sessions:   broadcast.New[*session.Session](nil),
	}
	WithMeter(otel.Meter("laurelin/api"))(c)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Users is the authenticated-user channel; nil means nobody is signed in
func (c *Client) Users() *broadcast.Channel[*session.User] {
	return c.users
}

// Sessions is the current-session channel; nil means no session
func (c *Client) Sessions() *broadcast.Channel[*session.Session] {
	return c.sessions
}

// SetCredential installs a credential (e.g. one restored from disk) and
// publishes its user
func (c *Client) SetCredential(cred session.Credential) {
	c.mu.Lock()
	c.token = cred.Token
	c.user = cred.User
	c.mu.Unlock()
	c.users.Publish(cred.User)
}

// ClearCredential forgets the credential and publishes an empty user and session
func (c *Client) ClearCredential() {
	c.mu.Lock()
	c.token = ""
	c.user = nil
	c.mu.Unlock()
	c.users.Publish(nil)
	c.sessions.Publish(nil)
}

// Credential returns the credential currently in use
func (c *Client) Credential() session.Credential {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return session.Credential{Token: c.token, User: c.user}
}

// IsAuthenticated reports whether both a token and a user are held
func (c *Client) IsAuthenticated() bool {
	return c.Credential().Valid()
}

// Close stops the broadcast channels
func (c *Client) Close() {
	c.users.Close()
	c.sessions.Close()
}

// request describes one backend call
type request struct {
	op        string
	method    string
	path      string
	body      any
	anonymous bool // send without the bearer header
}

// errorBody is the failure payload shape the backend uses
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// do performs req and decodes a 2xx JSON body into out. Every failure comes
// back as *Error.
func (c *Client) do(ctx context.Context, req request, out any) error {
	ctx, span := c.tracer.Start(ctx, "api."+req.op, trace.WithAttributes(
		attribute.String("http.request.method", req.method),
		attribute.String("url.path", req.path),
	))
	defer span.End()

	start := time.Now()
	status, err := c.roundTrip(ctx, req, out)
	if c.duration != nil {
		c.duration.Record(ctx, float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(attribute.String("op", req.op), attribute.Int("status", status)))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("backend call failed", "op", req.op, "status", status, "error", err)
		return err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", status))
	c.logger.Debug("backend call", "op", req.op, "status", status, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (c *Client) roundTrip(ctx context.Context, req request, out any) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, &Error{Op: req.op, Kind: KindTransport, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	var body io.Reader
	if req.body != nil {
		jsonData, err := json.Marshal(req.body)
		if err != nil {
			return 0, &Error{Op: req.op, Kind: KindTransport, Err: fmt.Errorf("failed to marshal request: %w", err)}
		}
		body = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return 0, &Error{Op: req.op, Kind: KindTransport, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if !req.anonymous {
		if token := c.Credential().Token; token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, &Error{Op: req.op, Kind: KindTransport, Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return resp.StatusCode, &Error{Op: req.op, Kind: KindTransport, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Op: req.op, Kind: KindStatus, Status: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(respBody, &eb) == nil {
			apiErr.Code = eb.Error
			switch {
			case eb.Message != "":
				apiErr.Message = eb.Message
			case eb.Detail != "":
				apiErr.Message = eb.Detail
			}
		}
		return resp.StatusCode, apiErr
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.StatusCode, &Error{Op: req.op, Kind: KindDecode, Status: resp.StatusCode, Err: fmt.Errorf("failed to unmarshal response: %w", err)}
		}
	}

	return resp.StatusCode, nil
}

// unsuccessful builds the error for a 2xx envelope that reports success=false
func unsuccessful(op, code, message string) *Error {
	if message == "" {
		message = code
	}
	if message == "" {
		message = "backend reported failure"
	}
	return &Error{Op: op, Kind: KindStatus, Status: http.StatusOK, Code: code, Message: message}
}
