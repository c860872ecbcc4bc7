// Package security hashes the shared import password. Hashes are encoded as
// "v1$<iterations>$<salt>$<digest>" with raw base64 salt and digest.
package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	hashVersion   = "v1"
	iterations    = 180000
	minIterations = 100000

	MinPasswordLength = 10
)

var (
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrMalformedHash    = errors.New("malformed password hash")
)

type Hash struct {
	Iterations int
	Salt       []byte
	Digest     []byte
}

func (h Hash) String() string {
	return fmt.Sprintf("%s$%d$%s$%s", hashVersion, h.Iterations,
		base64.RawStdEncoding.EncodeToString(h.Salt),
		base64.RawStdEncoding.EncodeToString(h.Digest))
}

// Matches compares password against the hash in constant time.
func (h Hash) Matches(password string) bool {
	actual := deriveDigest(password, h.Salt, h.Iterations)
	return subtle.ConstantTimeCompare(actual, h.Digest) == 1
}

func ParseHash(encoded string) (Hash, error) {
	parts := strings.Split(strings.TrimSpace(encoded), "$")
	if len(parts) != 4 || parts[0] != hashVersion {
		return Hash{}, ErrMalformedHash
	}
	iters, err := strconv.Atoi(parts[1])
	if err != nil || iters < minIterations {
		return Hash{}, fmt.Errorf("%w: iteration count", ErrMalformedHash)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil || len(salt) == 0 {
		return Hash{}, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	digest, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(digest) != sha256.Size {
		return Hash{}, fmt.Errorf("%w: digest", ErrMalformedHash)
	}
	return Hash{Iterations: iters, Salt: salt, Digest: digest}, nil
}

func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	h := Hash{Iterations: iterations, Salt: salt, Digest: deriveDigest(password, salt, iterations)}
	return h.String(), nil
}

// VerifyPassword reports whether password matches encoded. Malformed hashes
// never match.
func VerifyPassword(password, encoded string) bool {
	h, err := ParseHash(encoded)
	if err != nil {
		return false
	}
	return h.Matches(password)
}

func deriveDigest(password string, salt []byte, rounds int) []byte {
	seed := make([]byte, 0, len(salt)+len(password))
	seed = append(seed, salt...)
	seed = append(seed, password...)
	sum := sha256.Sum256(seed)
	buf := sum[:]
	for i := 1; i < rounds; i++ {
		next := sha256.Sum256(append(buf, salt...))
		buf = next[:]
	}
	return append([]byte(nil), buf...)
}
