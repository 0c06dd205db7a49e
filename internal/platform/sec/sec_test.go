// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tasker/internal/platform/sec"
)

const (
	accessSecret  = "access-secret-0123456789abcdef0123456789"
	refreshSecret = "refresh-secret-0123456789abcdef012345678"
)

func newTokenService(t *testing.T, now func() time.Time) *sec.TokenService {
	t.Helper()
	service, err := sec.NewTokenService(accessSecret, refreshSecret, "tasker.test", sec.WithClock(now))
	require.NoError(t, err)
	return service
}

/*
TestTokenService_RoundTrip verifies that both token classes carry the same session.
*/
func TestTokenService_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	service := newTokenService(t, func() time.Time { return now })

	pair, err := service.GenerateTokens(sec.TokenSubject{UserID: "u-1", Email: "a@b.c", Role: sec.RoleUser}, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), pair.AccessExpiresAt)
	assert.Equal(t, now.Add(7*24*time.Hour), pair.RefreshExpiresAt)

	access, err := service.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", access.UserID())
	assert.Equal(t, "sid-1", access.SessionID)
	assert.Equal(t, sec.RoleUser, access.Role)
	assert.NotEmpty(t, access.ID)

	refresh, err := service.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", refresh.SessionID)
	assert.NotEqual(t, access.ID, refresh.ID)
}

/*
TestTokenService_ClassesAreNotInterchangeable verifies the distinct secrets.
*/
func TestTokenService_ClassesAreNotInterchangeable(t *testing.T) {
	service := newTokenService(t, time.Now)

	pair, err := service.GenerateTokens(sec.TokenSubject{UserID: "u-1", Role: sec.RoleUser}, "sid")
	require.NoError(t, err)

	_, err = service.VerifyAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, sec.ErrInvalidToken)

	_, err = service.VerifyRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, sec.ErrInvalidToken)
}

/*
TestTokenService_Expired verifies that an expired access token is rejected.
*/
func TestTokenService_Expired(t *testing.T) {
	now := time.Now()
	service := newTokenService(t, func() time.Time { return now })

	pair, err := service.GenerateTokens(sec.TokenSubject{UserID: "u-1", Role: sec.RoleUser}, "sid")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = service.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, sec.ErrInvalidToken)
}

func TestNewTokenService_RejectsSharedSecret(t *testing.T) {
	_, err := sec.NewTokenService(accessSecret, accessSecret, "")
	assert.Error(t, err)
}

func TestPermissionsFor(t *testing.T) {
	assert.Equal(t, []string{"users:read", "users:write", "tasks:read", "tasks:write"}, sec.PermissionsFor(sec.RoleAdmin))
	assert.Equal(t, []string{"users:read", "tasks:read", "tasks:write"}, sec.PermissionsFor(sec.RoleManager))
	assert.Equal(t, []string{"tasks:read", "tasks:write:own"}, sec.PermissionsFor(sec.RoleUser))
	assert.Empty(t, sec.PermissionsFor("GUEST"))
}

func TestPasswordHash(t *testing.T) {
	hash, err := sec.HashPassword("Str0ng!Pass")
	require.NoError(t, err)

	assert.True(t, sec.CheckPasswordHash("Str0ng!Pass", hash))
	assert.False(t, sec.CheckPasswordHash("wrong", hash))
	assert.False(t, sec.CheckPasswordHash("Str0ng!Pass", "not-a-hash"))
}

/*
TestClientFromRequest verifies IP resolution order and session id derivation.
*/
func TestClientFromRequest(t *testing.T) {
	request := httptest.NewRequest("GET", "/", nil)
	request.RemoteAddr = "[::ffff:192.0.2.7]:5123"
	request.Header.Set("User-Agent", "agent/1.0")

	client := sec.ClientFromRequest(request)
	assert.Equal(t, "192.0.2.7", client.IP)
	assert.Len(t, client.SessionID(), 16)

	request.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", sec.ClientFromRequest(request).IP)

	request.Header.Set("X-Forwarded-For", "::ffff:203.0.113.9, 10.0.0.1")
	forwarded := sec.ClientFromRequest(request)
	assert.Equal(t, "203.0.113.9", forwarded.IP)

	// sha256("agent/1.0:203.0.113.9") is stable, so the same client maps to one session.
	assert.Equal(t, forwarded.SessionID(), sec.Client{IP: "203.0.113.9", UserAgent: "agent/1.0"}.SessionID())
	assert.NotEqual(t, forwarded.SessionID(), client.SessionID())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", sec.NormalizeEmail("  Alice@Example.COM "))
	assert.Equal(t, "\u00e9@example.com", sec.NormalizeEmail("E\u0301@example.com"))
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08", sec.HashToken("test"))
}
