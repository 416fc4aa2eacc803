// Package auth obtains bearer tokens for the remote platforms.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrAuthentication is returned when no token could be obtained
var ErrAuthentication = errors.New("authentication failed")

// Token is a raw bearer token, without any scheme prefix
type Token string

// Authenticator returns a bearer token for one platform account
type Authenticator interface {
	Authenticate(ctx context.Context) (Token, error)
}

// Credentials is a username/password pair typed into a login form
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) valid() bool {
	return c.Username != "" && c.Password != ""
}

// Static always returns the same token. It serves pre-issued tokens and tests.
// A copied "Bearer ..." header value is accepted too.
type Static Token

func (s Static) Authenticate(ctx context.Context) (Token, error) {
	token := stripScheme(string(s))
	if token == "" {
		return "", fmt.Errorf("%w: empty static token", ErrAuthentication)
	}
	return Token(token), nil
}

// Func adapts a function to Authenticator
type Func func(ctx context.Context) (Token, error)

func (f Func) Authenticate(ctx context.Context) (Token, error) {
	return f(ctx)
}

// stripScheme turns an Authorization header value into a raw token
func stripScheme(header string) string {
	header = strings.TrimSpace(header)
	if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(rest)
	}
	return header
}
