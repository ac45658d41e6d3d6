package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newService(t *testing.T, guests bool) *JWTService {
	t.Helper()
	s, err := NewJWTService(Options{Secret: "test-secret", Issuer: "holdem-live", TTL: time.Hour, AllowGuests: guests})
	if err != nil {
		t.Fatalf("NewJWTService err: %v", err)
	}
	return s
}

func TestJWT_IssueAndResolve(t *testing.T) {
	s := newService(t, false)
	token, err := s.Issue(Identity{UserID: "alice", Nickname: "Alice"})
	if err != nil {
		t.Fatalf("Issue err: %v", err)
	}
	id, err := s.Resolve(token)
	if err != nil {
		t.Fatalf("Resolve err: %v", err)
	}
	if id.UserID != "alice" || id.Nickname != "Alice" || id.Guest {
		t.Fatalf("identity=%+v", id)
	}
}

func TestJWT_RejectsForeignAndExpired(t *testing.T) {
	s := newService(t, false)
	other, err := NewJWTService(Options{Secret: "another-secret", Issuer: "holdem-live"})
	if err != nil {
		t.Fatalf("NewJWTService err: %v", err)
	}
	forged, _ := other.Issue(Identity{UserID: "mallory"})
	if _, err := s.Resolve(forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err=%v want invalid token", err)
	}

	token, _ := s.Issue(Identity{UserID: "alice"})
	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := s.Resolve(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token accepted: %v", err)
	}
}

func TestJWT_GuestsOnlyWhenAllowed(t *testing.T) {
	if _, err := newService(t, false).Resolve(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("err=%v want missing token", err)
	}
	a, err := newService(t, true).Resolve("")
	if err != nil || !a.Guest || !strings.HasPrefix(a.UserID, "guest-") {
		t.Fatalf("guest=%+v err=%v", a, err)
	}
	b, _ := newService(t, true).Resolve("")
	if a.UserID == b.UserID {
		t.Fatalf("two guests share id %s", a.UserID)
	}
}

func TestBearerToken(t *testing.T) {
	if tok, err := BearerToken("Bearer abc.def"); err != nil || tok != "abc.def" {
		t.Fatalf("tok=%q err=%v", tok, err)
	}
	if _, err := BearerToken("Basic xyz"); err == nil {
		t.Fatalf("basic auth accepted")
	}
	if _, err := BearerToken(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("err=%v", err)
	}
}
