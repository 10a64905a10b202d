// Package fingerprint derives one-way client identifiers from request metadata.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

// Unknown is used when no client address can be resolved.
const Unknown = "unknown"

// ClientAddress resolves a best-effort client address: first X-Forwarded-For
// entry, then X-Real-IP, then the transport peer host.
func ClientAddress(h http.Header, remoteAddr string) string {
	if xff := h.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(h.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if remoteAddr != "" {
		if host, _, err := net.SplitHostPort(remoteAddr); err == nil && host != "" {
			return host
		}
		return remoteAddr
	}
	return Unknown
}

// Fingerprint returns the hex SHA-256 of "address:userAgent".
func Fingerprint(address, userAgent string) string {
	sum := sha256.Sum256([]byte(address + ":" + userAgent))
	return hex.EncodeToString(sum[:])
}

// FromRequest fingerprints r by its resolved address and User-Agent.
func FromRequest(r *http.Request) string {
	return Fingerprint(ClientAddress(r.Header, r.RemoteAddr), r.UserAgent())
}
