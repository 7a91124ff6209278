package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
)

// HashURL returns the hex SHA-256 of a URL-bearing string, for fixed-length store keys.
func HashURL(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// ToAbsoluteURL resolves relative against base and forces the https scheme.
func ToAbsoluteURL(base, relative string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(relative)
	if err != nil {
		return "", err
	}
	resolved := b.ResolveReference(ref)
	resolved.Scheme = "https"
	return resolved.String(), nil
}
