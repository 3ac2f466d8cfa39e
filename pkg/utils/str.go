package utils

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
)

var lowerHexRe = regexp.MustCompile(`^[0-9a-f]+$`)

// RandomSecretPath generates an unguessable lowercase-hex path segment of
// length chars (length must be even, 2 hex chars per random byte).
func RandomSecretPath(length int) (string, error) {
	buf := make([]byte, length/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// IsLowerHex reports whether s is a non-empty lowercase hex string
func IsLowerHex(s string) bool {
	return s != "" && lowerHexRe.MatchString(s)
}

// FirstNonEmpty returns the first non-empty string of the two
func FirstNonEmpty(str1, str2 string) string {
	if str1 != "" {
		return str1
	}
	return str2
}
