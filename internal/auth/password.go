package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
)

// Argon2id cost parameters. Fixed so every stored hash carries the same
// work factor; the encoded string embeds them for verification.
const (
	argonMemoryKiB = 64 * 1024
	argonTime      = 3
	argonThreads   = 2
	argonSaltLen   = 16
	argonKeyLen    = 32
)

// Password length policy. The lower bound is checked on the trimmed input
// so whitespace padding cannot satisfy it; the hash still covers the
// password exactly as supplied.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 64
)

var (
	// ErrPasswordLength rejects passwords outside the 8-64 char policy.
	ErrPasswordLength = errors.New("password must be between 8 and 64 characters")
	// ErrHashFormat signals a stored credential that does not parse as argon2id.
	ErrHashFormat = errors.New("invalid argon2id hash format")
)

// HashPassword derives an argon2id hash with a fresh random salt and
// returns it PHC-encoded ($argon2id$v=19$m=...,t=...,p=...$salt$key).
func HashPassword(password string) (string, error) {
	// Bounds are in characters, not bytes: multi-byte passwords must not
	// slip under the minimum or overshoot the maximum.
	if utf8.RuneCountInString(strings.TrimSpace(password)) < MinPasswordLength ||
		utf8.RuneCountInString(password) > MaxPasswordLength {
		return "", ErrPasswordLength
	}

	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemoryKiB, argonThreads, argonKeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemoryKiB,
		argonTime,
		argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// VerifyPassword recomputes the hash with the salt and parameters embedded
// in the stored value and compares in constant time.
func VerifyPassword(password, encoded string) (bool, error) {
	salt, key, memory, iterations, threads, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(candidate, key) == 1, nil
}

func decodeHash(encoded string) (salt, key []byte, memory, iterations uint32, threads uint8, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, ErrHashFormat
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, 0, 0, 0, ErrHashFormat
	}

	var parallelism uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return nil, nil, 0, 0, 0, ErrHashFormat
	}
	if memory == 0 || iterations == 0 || parallelism == 0 || parallelism > 255 {
		return nil, nil, 0, 0, 0, ErrHashFormat
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, 0, 0, 0, ErrHashFormat
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, nil, 0, 0, 0, ErrHashFormat
	}

	return salt, key, memory, iterations, uint8(parallelism), nil
}
