// Package auth runs the sign-in lifecycle: identity-provider handshake,
// backend login, persistence of the credential and the published
// authentication state.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"LaurelinChat/internal/broadcast"
	"LaurelinChat/internal/session"
)

// State is the authentication state published by the Gateway
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "signed out"
	case Authenticating:
		return "signing in"
	case Authenticated:
		return "signed in"
	default:
		return "unknown"
	}
}

var (
	// ErrProviderUnavailable means the identity provider could not be reached
	ErrProviderUnavailable = errors.New("identity provider unavailable")

	// ErrProviderDenied means the user denied or abandoned the sign-in, or it expired
	ErrProviderDenied = errors.New("sign-in denied or cancelled")
)

// Provider obtains a token from the identity provider
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// Backend is the part of the API client the gateway drives
type Backend interface {
	Login(ctx context.Context, providerToken string) (session.Credential, error)
	Verify(ctx context.Context) (*session.User, error)
	SetCredential(cred session.Credential)
	ClearCredential()
}

// Store persists the credential between runs
type Store interface {
	Save(token string, user *session.User) error
	Load() (session.Credential, bool)
	Clear() error
}

// Gateway owns the authentication state
type Gateway struct {
	backend  Backend
	store    Store
	provider Provider
	logger   *slog.Logger
	now      func() time.Time
	states   *broadcast.Channel[State]
}

// NewGateway creates a gateway in the Unauthenticated state
func NewGateway(backend Backend, store Store, provider Provider, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		backend:  backend,
		store:    store,
		provider: provider,
		logger:   logger,
		now:      time.Now,
		states:   broadcast.New(Unauthenticated),
	}
}

// States is the authentication state channel
func (g *Gateway) States() *broadcast.Channel[State] {
	return g.states
}

// State returns the current authentication state
func (g *Gateway) State() State {
	return g.states.Get()
}

// LoginWithGoogle runs the provider handshake and exchanges its token with
// the backend. Errors are ErrProviderUnavailable, ErrProviderDenied or an
// *api.Error; the state returns to Unauthenticated on any of them.
func (g *Gateway) LoginWithGoogle(ctx context.Context) (*session.User, error) {
	g.states.Publish(Authenticating)

	token, err := g.provider.Token(ctx)
	if err != nil {
		g.states.Publish(Unauthenticated)
		if !errors.Is(err, ErrProviderDenied) && !errors.Is(err, ErrProviderUnavailable) {
			err = fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		g.logger.Warn("identity provider handshake failed", "error", err)
		return nil, err
	}

	cred, err := g.backend.Login(ctx, token)
	if err != nil {
		g.states.Publish(Unauthenticated)
		g.logger.Warn("backend login failed", "error", err)
		return nil, err
	}

	if err := g.store.Save(cred.Token, cred.User); err != nil {
		g.logger.Error("failed to persist credential", "error", err)
	}

	g.states.Publish(Authenticated)
	g.logger.Info("signed in", "user_id", cred.User.UserID, "email", cred.User.Email)
	return cred.User, nil
}

// Logout forgets the credential everywhere. Safe to call when signed out.
func (g *Gateway) Logout() {
	if err := g.store.Clear(); err != nil {
		g.logger.Error("failed to clear stored credential", "error", err)
	}
	g.backend.ClearCredential()
	g.states.Publish(Unauthenticated)
	g.logger.Info("signed out")
}

// Restore resumes a stored credential at startup. It reports whether the
// gateway ended up Authenticated. A credential that fails verification is
// discarded silently.
func (g *Gateway) Restore(ctx context.Context) bool {
	cred, ok := g.store.Load()
	if !ok {
		return false
	}

	if expired(cred.Token, g.now()) {
		g.logger.Info("stored credential has expired")
		g.Logout()
		return false
	}

	g.backend.SetCredential(cred)
	if _, err := g.backend.Verify(ctx); err != nil {
		g.logger.Warn("stored credential failed verification", "error", err)
		g.Logout()
		return false
	}

	g.states.Publish(Authenticated)
	g.logger.Info("restored session", "user_id", cred.User.UserID)
	return true
}

// Close stops the state channel
func (g *Gateway) Close() {
	g.states.Close()
}

// expired reports whether token is a JWT whose exp claim is before now.
// Opaque tokens are never considered expired here; the backend decides.
func expired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
