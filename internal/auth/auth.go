// Package auth resolves the authenticated principal that scopes every
// archive-tier operation. The remote store queries it per call, so a token
// that expires mid-session starts failing exactly when it should.
package auth

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/danmcgrath10/cyclora/internal/ride"
)

// Principal is the authenticated identity scoping remote reads/writes.
type Principal struct {
	UserID string
}

// Provider resolves the current principal. Failure to resolve one is
// ride.ErrUnauthenticated, never a transport fault.
type Provider interface {
	Principal(ctx context.Context) (Principal, error)
}

// TokenSource supplies the current bearer token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// FileTokenSource reads the token from a file on every call, so a token
// refreshed by `cyclora login` is picked up without a restart.
type FileTokenSource struct {
	Path string
}

func (s *FileTokenSource) Token(context.Context) (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("reading token from %s: %w", s.Path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// StaticTokenSource returns a fixed token. Use in tests.
type StaticTokenSource struct {
	Value string
}

func (s *StaticTokenSource) Token(context.Context) (string, error) {
	return s.Value, nil
}

// JWTProvider verifies HS256 bearer tokens and extracts the subject as the
// principal's user id.
type JWTProvider struct {
	source TokenSource
	secret []byte
}

func NewJWTProvider(source TokenSource, secret []byte) *JWTProvider {
	return &JWTProvider{source: source, secret: secret}
}

func (p *JWTProvider) Principal(ctx context.Context) (Principal, error) {
	raw, err := p.source.Token(ctx)
	if err != nil || raw == "" {
		return Principal{}, ride.ErrUnauthenticated
	}

	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("invalid token: %w", ride.ErrUnauthenticated)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, fmt.Errorf("unexpected claims: %w", ride.ErrUnauthenticated)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Principal{}, fmt.Errorf("token has no subject: %w", ride.ErrUnauthenticated)
	}

	return Principal{UserID: sub}, nil
}

// StaticProvider returns a fixed principal. Use in tests.
type StaticProvider struct {
	ID string
}

func (p *StaticProvider) Principal(context.Context) (Principal, error) {
	if p.ID == "" {
		return Principal{}, ride.ErrUnauthenticated
	}
	return Principal{UserID: p.ID}, nil
}

var (
	_ Provider = (*JWTProvider)(nil)
	_ Provider = (*StaticProvider)(nil)
)
