package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is who a connection or request acts as.
type Identity struct {
	UserID   string
	Nickname string
	Guest    bool
}

// Resolver maps a bearer token to an Identity.
type Resolver interface {
	Resolve(token string) (Identity, error)
}

type Claims struct {
	Nickname string `json:"nickname,omitempty"`
	Guest    bool   `json:"guest,omitempty"`
	jwt.RegisteredClaims
}

// JWTService signs and verifies HS256 tokens. Subject carries the user id.
type JWTService struct {
	secret      []byte
	issuer      string
	ttl         time.Duration
	allowGuests bool
	now         func() time.Time
}

type Options struct {
	Secret string
	Issuer string
	TTL    time.Duration
	// AllowGuests makes an empty token resolve to a fresh guest identity.
	AllowGuests bool
}

func NewJWTService(opt Options) (*JWTService, error) {
	if opt.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if opt.TTL <= 0 {
		opt.TTL = 24 * time.Hour
	}
	return &JWTService{
		secret:      []byte(opt.Secret),
		issuer:      opt.Issuer,
		ttl:         opt.TTL,
		allowGuests: opt.AllowGuests,
		now:         time.Now,
	}, nil
}

func (s *JWTService) Issue(id Identity) (string, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return "", fmt.Errorf("user id is required")
	}
	now := s.now()
	claims := Claims{
		Nickname: id.Nickname,
		Guest:    id.Guest,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *JWTService) Resolve(raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if s.allowGuests {
			return NewGuest(), nil
		}
		return Identity{}, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.Subject, Nickname: claims.Nickname, Guest: claims.Guest}, nil
}

// NewGuest returns an identity under a random id.
func NewGuest() Identity {
	id := uuid.NewString()
	return Identity{UserID: "guest-" + id, Nickname: "Guest " + id[:4], Guest: true}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// AllowsGuests reports whether token-less callers get a guest identity.
func (s *JWTService) AllowsGuests() bool { return s.allowGuests }
