package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/danmcgrath10/cyclora/internal/auth"
	"github.com/danmcgrath10/cyclora/internal/ride"
)

var testSecret = []byte("unit-test-secret")

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(testSecret)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestJWTProvider_Principal(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves the subject of a valid token", func(t *testing.T) {
		raw := signToken(t, jwt.MapClaims{
			"sub": "user-42",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		p := auth.NewJWTProvider(&auth.StaticTokenSource{Value: raw}, testSecret)

		principal, err := p.Principal(ctx)
		if err != nil {
			t.Fatalf("Principal() error = %v", err)
		}
		if principal.UserID != "user-42" {
			t.Errorf("UserID = %q, want %q", principal.UserID, "user-42")
		}
	})

	t.Run("expired token is unauthenticated", func(t *testing.T) {
		raw := signToken(t, jwt.MapClaims{
			"sub": "user-42",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		p := auth.NewJWTProvider(&auth.StaticTokenSource{Value: raw}, testSecret)

		if _, err := p.Principal(ctx); !errors.Is(err, ride.ErrUnauthenticated) {
			t.Errorf("Principal() error = %v, want ErrUnauthenticated", err)
		}
	})

	t.Run("wrong signing secret is unauthenticated", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-42"})
		raw, err := token.SignedString([]byte("some-other-secret"))
		if err != nil {
			t.Fatal(err)
		}
		p := auth.NewJWTProvider(&auth.StaticTokenSource{Value: raw}, testSecret)

		if _, err := p.Principal(ctx); !errors.Is(err, ride.ErrUnauthenticated) {
			t.Errorf("Principal() error = %v, want ErrUnauthenticated", err)
		}
	})

	t.Run("missing subject is unauthenticated", func(t *testing.T) {
		raw := signToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
		p := auth.NewJWTProvider(&auth.StaticTokenSource{Value: raw}, testSecret)

		if _, err := p.Principal(ctx); !errors.Is(err, ride.ErrUnauthenticated) {
			t.Errorf("Principal() error = %v, want ErrUnauthenticated", err)
		}
	})

	t.Run("empty token is unauthenticated", func(t *testing.T) {
		p := auth.NewJWTProvider(&auth.StaticTokenSource{}, testSecret)

		if _, err := p.Principal(ctx); !errors.Is(err, ride.ErrUnauthenticated) {
			t.Errorf("Principal() error = %v, want ErrUnauthenticated", err)
		}
	})
}

func TestFileTokenSource(t *testing.T) {
	t.Run("missing file errors", func(t *testing.T) {
		s := &auth.FileTokenSource{Path: "/nonexistent/token"}
		if _, err := s.Token(context.Background()); err == nil {
			t.Fatal("Token() expected error for missing file")
		}
	})
}
