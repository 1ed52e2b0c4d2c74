package identity_test

import (
	"errors"
	"testing"
	"time"

	"github.com/fundpool/fundpool/internal/identity"
)

func TestIssueVerify_roundTrip(t *testing.T) {
	issuer := identity.NewTokenIssuer([]byte("test-secret"), "http://localhost:8080", time.Hour)

	token, err := issuer.Issue("alice")
	if err != nil {
		t.Fatal(err)
	}

	caller, err := issuer.Verify(token)
	if err != nil {
		t.Fatal(err)
	}
	if caller != "alice" {
		t.Errorf("Verify() = %q, want alice", caller)
	}
}

func TestVerify_wrongSecret(t *testing.T) {
	issuer := identity.NewTokenIssuer([]byte("secret-a"), "http://localhost:8080", time.Hour)
	other := identity.NewTokenIssuer([]byte("secret-b"), "http://localhost:8080", time.Hour)

	token, err := issuer.Issue("alice")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := other.Verify(token); !errors.Is(err, identity.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_wrongIssuer(t *testing.T) {
	issuer := identity.NewTokenIssuer([]byte("secret"), "http://a.example", time.Hour)
	other := identity.NewTokenIssuer([]byte("secret"), "http://b.example", time.Hour)

	token, err := issuer.Issue("alice")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := other.Verify(token); !errors.Is(err, identity.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_expiredToken(t *testing.T) {
	issuer := identity.NewTokenIssuer([]byte("secret"), "http://localhost:8080", -time.Minute)

	token, err := issuer.Issue("alice")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := issuer.Verify(token); !errors.Is(err, identity.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerify_garbage(t *testing.T) {
	issuer := identity.NewTokenIssuer([]byte("secret"), "http://localhost:8080", time.Hour)
	if _, err := issuer.Verify("not-a-token"); !errors.Is(err, identity.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}
