package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a bearer credential is missing, expired,
// malformed, or fails signature verification. The message is deliberately
// generic; details stay server-side.
var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the authenticated principal attached to a request after bearer
// verification.
type Identity struct {
	UserID   string
	Username string
}

// IdentityVerifier verifies a bearer credential and resolves it to an
// Identity. The core never branches on the concrete provider; local JWTs and
// external identity providers plug in behind this interface.
type IdentityVerifier interface {
	Verify(token string) (Identity, error)
}

// JWTManager is the local identity provider: it issues and verifies HS256
// access tokens carrying the user id as subject.
type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewJWTManager constructs a JWTManager. ttl <= 0 defaults to 24h.
func NewJWTManager(secret, issuer string, ttl time.Duration) *JWTManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if strings.TrimSpace(issuer) == "" {
		issuer = "prompt-backend"
	}
	return &JWTManager{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

type accessClaims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs an access token for the given user.
func (m *JWTManager) Issue(userID, username string) (string, error) {
	now := time.Now().UTC()
	claims := accessClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify implements IdentityVerifier for locally issued tokens.
func (m *JWTManager) Verify(token string) (Identity, error) {
	claims := accessClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithIssuedAt(),
	)
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: sub, Username: claims.Username}, nil
}

// TokenFromHeader extracts the credential from an "Authorization: Bearer x"
// header value. It returns ErrInvalidToken when the header is absent or not
// in bearer form.
func TokenFromHeader(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", ErrInvalidToken
	}
	return parts[1], nil
}
