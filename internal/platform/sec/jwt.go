// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives, token management and the
// static role model.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, JWT signing, client
// fingerprinting) from the domain logic. Access and refresh tokens are signed
// with HS256 under two different secrets, so a leak of one secret can never
// forge the other token class.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/taibuivan/tasker/internal/platform/constants"
)

// Token lifetimes.
const (
	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour
)

var (
	// ErrInvalidToken covers every signature, expiry, issuer or format failure.
	ErrInvalidToken = errors.New("sec: invalid token")

	// ErrWrongTokenType is returned when a token of the other class is presented.
	ErrWrongTokenType = errors.New("sec: wrong token type")
)

// TokenClaims is the payload of both token classes.
//
// The 'sid' claim binds the token to a server-side session record; the 'jti'
// claim keeps two tokens minted within the same second distinct.
type TokenClaims struct {
	jwt.RegisteredClaims

	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
	Type      string   `json:"type"`
	SessionID string   `json:"sid"`
}

// UserID returns the 'sub' claim.
func (c *TokenClaims) UserID() string {
	return c.Subject
}

// TokenSubject is the account data embedded into a token pair.
type TokenSubject struct {
	UserID string
	Email  string
	Role   UserRole
}

// TokenPair is a freshly minted access and refresh token sharing one session.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenService signs and verifies access and refresh tokens.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	now           func() time.Time
}

// TokenOption customizes a [TokenService].
type TokenOption func(*TokenService)

// WithClock overrides the wall clock used for 'iat', 'exp' and verification.
func WithClock(now func() time.Time) TokenOption {
	return func(service *TokenService) {
		service.now = now
	}
}

// NewTokenService creates a TokenService.
//
// Parameters:
//   - accessSecret, refreshSecret: HMAC keys, must be non-empty and distinct
//   - issuer: the 'iss' claim written and required on verification
func NewTokenService(accessSecret, refreshSecret, issuer string, opts ...TokenOption) (*TokenService, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("sec: token secrets must not be empty")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("sec: access and refresh secrets must differ")
	}
	if issuer == "" {
		issuer = constants.AuthIssuer
	}

	service := &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// # Issuance

// GenerateTokens mints an access token (1h) and a refresh token (7d) that
// carry the same session identifier.
func (service *TokenService) GenerateTokens(subject TokenSubject, sessionID string) (TokenPair, error) {
	issuedAt := service.now()

	accessExpiresAt := issuedAt.Add(AccessTokenTTL)
	accessToken, err := service.sign(subject, sessionID, constants.TokenTypeAccess, issuedAt, accessExpiresAt, service.accessSecret)
	if err != nil {
		return TokenPair{}, err
	}

	refreshExpiresAt := issuedAt.Add(RefreshTokenTTL)
	refreshToken, err := service.sign(subject, sessionID, constants.TokenTypeRefresh, issuedAt, refreshExpiresAt, service.refreshSecret)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

func (service *TokenService) sign(subject TokenSubject, sessionID, tokenType string, issuedAt, expiresAt time.Time, secret []byte) (string, error) {
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.UserID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		Email:     subject.Email,
		Role:      subject.Role,
		Type:      tokenType,
		SessionID: sessionID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// # Verification

// VerifyAccess checks an access token against the access secret.
func (service *TokenService) VerifyAccess(token string) (*TokenClaims, error) {
	return service.verify(token, constants.TokenTypeAccess, service.accessSecret)
}

// VerifyRefresh checks a refresh token against the refresh secret.
func (service *TokenService) VerifyRefresh(token string) (*TokenClaims, error) {
	return service.verify(token, constants.TokenTypeRefresh, service.refreshSecret)
}

func (service *TokenService) verify(token, expectedType string, secret []byte) (*TokenClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(service.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	)

	claims := &TokenClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Type != expectedType {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}
