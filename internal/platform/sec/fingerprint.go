// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/taibuivan/tasker/internal/platform/constants"
)

// sessionIDLength is the number of hex characters kept from the fingerprint digest.
const sessionIDLength = 16

// # Client Fingerprint

// Client is the network fingerprint of a caller.
type Client struct {
	IP        string
	UserAgent string
}

// ClientFromRequest extracts the fingerprint of request.
//
// The IP is the first X-Forwarded-For entry, else X-Real-IP, else the remote
// address without its port. IPv4-mapped IPv6 addresses lose the "::ffff:" prefix.
func ClientFromRequest(request *http.Request) Client {
	return Client{
		IP:        NormalizeIP(clientAddress(request)),
		UserAgent: request.UserAgent(),
	}
}

func clientAddress(request *http.Request) string {
	if forwarded := request.Header.Get(constants.HeaderXForwardedFor); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if realIP := strings.TrimSpace(request.Header.Get(constants.HeaderXRealIP)); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}

// NormalizeIP strips the IPv4-mapped IPv6 prefix.
func NormalizeIP(ip string) string {
	return strings.TrimPrefix(ip, "::ffff:")
}

// SessionID derives the deterministic session identifier of the client: the
// first 16 hex characters of sha256("<userAgent>:<ip>").
func (c Client) SessionID() string {
	sum := sha256.Sum256([]byte(c.UserAgent + ":" + c.IP))
	return hex.EncodeToString(sum[:])[:sessionIDLength]
}

// # Email Normalization

// NormalizeEmail trims, NFC-normalizes and lower-cases an address so that
// lockout records and directory lookups agree on one spelling.
func NormalizeEmail(email string) string {
	normalized, _, err := transform.String(norm.NFC, strings.TrimSpace(email))
	if err != nil {
		normalized = strings.TrimSpace(email)
	}
	return strings.ToLower(normalized)
}
