package chatbot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"LaurelinChat/internal/api"
	"LaurelinChat/internal/auth"
	"LaurelinChat/internal/chat"
	"LaurelinChat/internal/config"
	"LaurelinChat/internal/credstore"
	"LaurelinChat/internal/telemetry"
	"LaurelinChat/internal/ui"
)

// ChatBot represents the main application
type ChatBot struct {
	config config.Config
	logger *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter

	closeLog          func() error
	shutdownTelemetry func()

	store      *credstore.Store
	client     *api.Client
	provider   *auth.GoogleProvider
	gateway    *auth.Gateway
	controller *chat.Controller
}

// NewChatBot wires logging, telemetry, the credential store, the backend
// client and the auth gateway
func NewChatBot(cfg config.Config) (*ChatBot, error) {
	logger, closeLog, err := telemetry.InitLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx := context.Background()
	tracer, meter, shutdownTelemetry, err := telemetry.InitTelemetry(ctx, cfg.LogDir, config.Version)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	store, err := credstore.Open(cfg.CredentialDBPath(), logger)
	if err != nil {
		shutdownTelemetry()
		closeLog()
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	if cfg.Debug {
		logger.Info("Debug mode enabled")
	}

	env := cfg.Active()
	client := api.New(env.APIURL,
		api.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.RequestTimeout) * time.Second}),
		api.WithLogger(logger),
		api.WithTracer(tracer),
		api.WithMeter(meter),
		api.WithRateLimit(cfg.RequestsPerSecond, max(int(cfg.RequestsPerSecond), 1)),
	)
	provider := auth.NewGoogleProvider(env.GoogleClientID, env.GoogleClientSecret, logger)
	gateway := auth.NewGateway(client, store, provider, logger)

	controller := chat.NewController(client, logger)
	if cfg.RequestTimeout > 0 {
		controller.SetTimeout(time.Duration(cfg.RequestTimeout) * time.Second)
	}

	logger.Info("chatbot initialized",
		"environment", cfg.EnvironmentName(),
		"api_url", env.APIURL,
		"version", config.Version,
	)

	return &ChatBot{
		config:            cfg,
		logger:            logger,
		tracer:            tracer,
		meter:             meter,
		closeLog:          closeLog,
		shutdownTelemetry: shutdownTelemetry,
		store:             store,
		client:            client,
		provider:          provider,
		gateway:           gateway,
		controller:        controller,
	}, nil
}

// Client returns the backend client
func (cb *ChatBot) Client() *api.Client {
	return cb.client
}

// Gateway returns the auth gateway
func (cb *ChatBot) Gateway() *auth.Gateway {
	return cb.gateway
}

// Logger returns the file logger
func (cb *ChatBot) Logger() *slog.Logger {
	return cb.logger
}

// SetDevicePrompt decides where device sign-in codes are shown
func (cb *ChatBot) SetDevicePrompt(prompt auth.Prompt) {
	cb.provider.SetPrompt(prompt)
}

// Run starts the terminal UI and blocks until it exits
func (cb *ChatBot) Run() error {
	app := ui.NewApp(ui.Options{
		Controller:  cb.controller,
		Auth:        cb.gateway,
		Users:       cb.client.Users(),
		Sessions:    cb.client.Sessions(),
		Logger:      cb.logger,
		Version:     config.Version,
		Environment: cb.config.EnvironmentName(),
		SkipSplash:  cb.config.SkipSplash,
	})

	p := tea.NewProgram(app, tea.WithAltScreen())
	cb.SetDevicePrompt(func(dc auth.DeviceCode) {
		p.Send(ui.DeviceCodeMsg(dc))
	})

	cb.logger.Info("starting terminal UI")
	if _, err := p.Run(); err != nil {
		cb.logger.Error("terminal UI failed", "error", err)
		return fmt.Errorf("failed to run terminal UI: %w", err)
	}
	cb.logger.Info("terminal UI exited")
	return nil
}

// Close releases every resource opened by NewChatBot
func (cb *ChatBot) Close() {
	cb.gateway.Close()
	cb.client.Close()
	if err := cb.store.Close(); err != nil {
		cb.logger.Warn("failed to close credential store", "error", err)
	}
	cb.shutdownTelemetry()
	cb.closeLog()
}
