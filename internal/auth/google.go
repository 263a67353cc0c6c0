package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DeviceCode is what the user needs to approve a device sign-in
type DeviceCode struct {
	VerificationURL string
	UserCode        string
	Expires         time.Time
}

// Prompt shows a device code to the user
type Prompt func(DeviceCode)

// GoogleProvider signs in with Google using the OAuth 2.0 device
// authorization grant
type GoogleProvider struct {
	config *oauth2.Config
	logger *slog.Logger

	mu     sync.Mutex
	prompt Prompt
}

// NewGoogleProvider creates a provider for the given OAuth client
func NewGoogleProvider(clientID, clientSecret string, logger *slog.Logger) *GoogleProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"email", "profile"},
		},
		logger: logger,
	}
}

// SetPrompt sets where device codes are shown
func (p *GoogleProvider) SetPrompt(prompt Prompt) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompt = prompt
}

// Token requests a device code, shows it through the prompt and waits for
// the user to approve it. Returns the Google access token.
func (p *GoogleProvider) Token(ctx context.Context) (string, error) {
	da, err := p.config.DeviceAuth(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrProviderDenied, ctx.Err())
		}
		return "", fmt.Errorf("%w: failed to request device code: %v", ErrProviderUnavailable, err)
	}

	verificationURL := da.VerificationURIComplete
	if verificationURL == "" {
		verificationURL = da.VerificationURI
	}
	p.logger.Info("waiting for device approval", "verification_url", verificationURL, "expires", da.Expiry)

	p.mu.Lock()
	prompt := p.prompt
	p.mu.Unlock()
	if prompt != nil {
		prompt(DeviceCode{VerificationURL: verificationURL, UserCode: da.UserCode, Expires: da.Expiry})
	}

	tok, err := p.config.DeviceAccessToken(ctx, da)
	if err != nil {
		var re *oauth2.RetrieveError
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return "", fmt.Errorf("%w: %v", ErrProviderDenied, err)
		case errors.As(err, &re) && (re.ErrorCode == "access_denied" || re.ErrorCode == "expired_token"):
			return "", fmt.Errorf("%w: %s", ErrProviderDenied, re.ErrorCode)
		default:
			return "", fmt.Errorf("%w: failed to obtain token: %v", ErrProviderUnavailable, err)
		}
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrProviderUnavailable)
	}
	return tok.AccessToken, nil
}
