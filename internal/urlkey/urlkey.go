// Package urlkey derives cache keys and normalized domains from URLs.
package urlkey

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// KeyLength is the length of every key returned by DeriveKey.
const KeyLength = 43

// ErrMalformedURL is returned when a URL has no usable hostname.
var ErrMalformedURL = errors.New("urlkey: malformed url")

var hostProfile = idna.New(
	idna.MapForLookup(),
	idna.StrictDomainName(false),
	idna.Transitional(false),
)

// DeriveKey hashes the exact URL string with SHA-256 and encodes the digest
// as unpadded base64url.
func DeriveKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// NormalizeDomain extracts the hostname of rawURL and normalizes it the same
// way blacklist entries are normalized.
func NormalizeDomain(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", ErrMalformedURL
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", errors.Join(ErrMalformedURL, err)
	}
	if parsed.Scheme == "" || parsed.Hostname() == "" {
		return "", ErrMalformedURL
	}

	host := normalize(parsed.Hostname())
	if host == "" {
		return "", ErrMalformedURL
	}
	return host, nil
}

// NormalizeHost normalizes a bare hostname (or a URL) taken from a feed.
// It returns an empty string when nothing usable remains.
func NormalizeHost(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	if strings.Contains(trimmed, "://") {
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return ""
		}
		trimmed = parsed.Hostname()
	}

	return normalize(trimmed)
}

// normalize strips at most one leading "www." label, so callers must apply it
// exactly once per value.
func normalize(host string) string {
	host = strings.Trim(strings.TrimSpace(host), ".")
	if host == "" {
		return ""
	}

	ascii, err := hostProfile.ToASCII(host)
	if err != nil || ascii == "" {
		ascii = host
	}
	ascii = strings.ToLower(ascii)

	return strings.TrimPrefix(ascii, "www.")
}
