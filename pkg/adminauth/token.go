// Package adminauth protects the admin HTTP surface with a single
// shared bearer token, hashed with PBKDF2 the same way the rest of
// the stack derives credential keys.
package adminauth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength     = 16
	iterationCount = 4096
	keyLength      = 32
)

// ErrInvalidToken is returned by Verify when the presented token does
// not match the configured hash.
var ErrInvalidToken = errors.New("adminauth: invalid token")

// Hash derives a salted PBKDF2 hash of token, encoded as
// "salt_hex:key_hex" for storage in configuration.
func Hash(token string, salt []byte) string {
	key := pbkdf2.Key([]byte(token), salt, iterationCount, keyLength, sha256.New)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(key)
}

// NewHash derives a Hash using a fresh random salt, returning the
// encoded form ready to store in Config.AdminTokenHash.
func NewHash(token string, randSalt func(int) ([]byte, error)) (string, error) {
	salt, err := randSalt(saltLength)
	if err != nil {
		return "", fmt.Errorf("adminauth: failed to generate salt: %w", err)
	}
	return Hash(token, salt), nil
}

// Verify reports whether token matches the stored "salt_hex:key_hex"
// hash, using a constant-time comparison of the derived keys.
func Verify(encodedHash, token string) error {
	parts := strings.SplitN(encodedHash, ":", 2)
	if len(parts) != 2 {
		return ErrInvalidToken
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return ErrInvalidToken
	}
	want, err := hex.DecodeString(parts[1])
	if err != nil {
		return ErrInvalidToken
	}
	got := pbkdf2.Key([]byte(token), salt, iterationCount, keyLength, sha256.New)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrInvalidToken
	}
	return nil
}

// Middleware wraps next with a bearer-token check against
// encodedHash. An empty encodedHash disables auth entirely, so admin
// servers started without a configured token run open, matching the
// rest of the stack's opt-in security posture.
func Middleware(encodedHash string, next http.Handler) http.Handler {
	if encodedHash == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || Verify(encodedHash, token) != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="pagepool-admin"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
