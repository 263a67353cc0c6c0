package api

import (
	"context"
	"errors"
	"net/http"

	"LaurelinChat/internal/backend"
	"LaurelinChat/internal/session"
)

// Login exchanges an identity-provider token for a backend credential.
//
// An explicit refusal (HTTP 403, or success=false in the body) is returned as
// KindRejected with the backend's code and message. Anything else that goes
// wrong keeps its original Kind but carries the generic
// authentication_failed code.
func (c *Client) Login(ctx context.Context, providerToken string) (session.Credential, error) {
	const op = "login"

	var resp backend.AuthResponse
	err := c.do(ctx, request{
		op:        op,
		method:    http.MethodPost,
		path:      "/auth/login",
		body:      backend.LoginRequest{Token: providerToken},
		anonymous: true,
	}, &resp)
	if err != nil {
		apiErr, _ := AsError(err)
		if apiErr.Kind == KindStatus && apiErr.Status == http.StatusForbidden {
			return session.Credential{}, rejected(op, apiErr.Status, apiErr.Code, apiErr.Message, err)
		}
		return session.Credential{}, &Error{
			Op:      op,
			Kind:    apiErr.Kind,
			Status:  apiErr.Status,
			Code:    CodeAuthenticationFailed,
			Message: defaultLoginMessage,
			Err:     err,
		}
	}

	if !resp.Success {
		return session.Credential{}, rejected(op, http.StatusOK, resp.Error, resp.Message, nil)
	}
	if resp.Token == "" || resp.User == nil {
		return session.Credential{}, &Error{
			Op:      op,
			Kind:    KindDecode,
			Status:  http.StatusOK,
			Code:    CodeAuthenticationFailed,
			Message: defaultLoginMessage,
			Err:     errors.New("login response is missing token or user"),
		}
	}

	cred := session.Credential{Token: resp.Token, User: resp.User}
	c.SetCredential(cred)
	c.logger.Info("logged in", "user_id", resp.User.UserID)
	return cred, nil
}

// Verify checks the current token with the backend and refreshes the user
func (c *Client) Verify(ctx context.Context) (*session.User, error) {
	const op = "verify"

	var resp backend.Envelope[*session.User]
	if err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/auth/verify"}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Data == nil {
		return nil, unsuccessful(op, resp.Error, "Token verification failed")
	}

	c.mu.Lock()
	c.user = resp.Data
	c.mu.Unlock()
	c.users.Publish(resp.Data)
	return resp.Data, nil
}

func rejected(op string, status int, code, message string, cause error) *Error {
	if code == "" {
		code = CodeNotAuthorized
	}
	if message == "" {
		message = defaultRejectedMessage
	}
	return &Error{Op: op, Kind: KindRejected, Status: status, Code: code, Message: message, Err: cause}
}
