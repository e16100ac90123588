// Package auth issues and checks the credentials a learner presents.
//
// AUTHENTICATION FLOWS:
//
//  1. Email + password: POST /auth/login → the service verifies the bcrypt
//     hash → the handler sets an HttpOnly "token" cookie holding a JWT.
//  2. External provider (GitHub, Google):
//     /auth/{provider}/login → provider consent → /auth/{provider}/callback.
//     If the provider identity is already linked to a user, that user gets
//     an access token. Otherwise the normalised ProviderProfile is signed
//     into a short-lived registration-session token ("reg_session" cookie)
//     and the client finishes sign-up via POST /auth/register, supplying a
//     username and track. The email from the provider only fills in a
//     blank email.
//
// Both token kinds are HS256 JWTs signed with the same secret. They are
// told apart by audience, so a registration token can never be used as an
// access token.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "learnpath"

	accessAudience  = "access"
	sessionAudience = "registration"

	// AccessTTL is the lifetime of an access token.
	AccessTTL = 24 * time.Hour
	// SessionTTL is how long a learner has to finish provider sign-up.
	SessionTTL = 15 * time.Minute
)

// ErrTokenExpired is returned by Validate and ValidateSession for tokens
// past their expiry.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the access token payload. "sub" carries the user ID.
type claims struct {
	jwt.RegisteredClaims
}

// sessionClaims is the registration-session payload: the provider identity
// waiting to be attached to a new account.
type sessionClaims struct {
	jwt.RegisteredClaims
	Profile ProviderProfile `json:"profile"`
}

// Generate signs an access token for userID valid for AccessTTL.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, AccessTTL)
}

// GenerateWithDuration signs an access token with a custom lifetime.
// Tests use a negative duration to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	return s.sign(claims{RegisteredClaims: registered(userID, accessAudience, d)})
}

// Validate parses and verifies an access token and returns its user ID.
//
// The jwt library checks the signature, expiry, issuer and audience.
// jwt.WithValidMethods pins HS256 so a token claiming "alg":"none" (or an
// RSA algorithm keyed with our secret) is rejected.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	var c claims
	if err := s.parse(tokenStr, &c, accessAudience); err != nil {
		return "", err
	}
	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}
	return c.Subject, nil
}

// GenerateSession signs a registration-session token carrying profile.
func (s *TokenService) GenerateSession(profile ProviderProfile) (string, error) {
	return s.sign(sessionClaims{
		RegisteredClaims: registered(profile.Provider+":"+profile.UID, sessionAudience, SessionTTL),
		Profile:          profile,
	})
}

// ValidateSession returns the provider profile stored in a
// registration-session token.
func (s *TokenService) ValidateSession(tokenStr string) (*ProviderProfile, error) {
	var c sessionClaims
	if err := s.parse(tokenStr, &c, sessionAudience); err != nil {
		return nil, err
	}
	if c.Profile.Provider == "" || c.Profile.UID == "" {
		return nil, fmt.Errorf("auth: session token has no provider identity")
	}
	return &c.Profile, nil
}

func registered(subject, audience string, d time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    issuer,
	}
}

func (s *TokenService) sign(c jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) parse(tokenStr string, c jwt.Claims, audience string) error {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("auth: invalid token claims")
	}
	return nil
}
