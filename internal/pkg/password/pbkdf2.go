package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	PBKDF2Algorithm         = "pbkdf2_sha256"
	DefaultPBKDF2Iterations = 600000
	pbkdf2SaltLength        = 22
)

// PBKDF2Hasher produces "pbkdf2_sha256$<iterations>$<salt>$<base64 key>".
type PBKDF2Hasher struct {
	Iterations int
}

func NewPBKDF2Hasher(iterations int) *PBKDF2Hasher {
	if iterations <= 0 {
		iterations = DefaultPBKDF2Iterations
	}
	return &PBKDF2Hasher{Iterations: iterations}
}

func (h *PBKDF2Hasher) Algorithm() string {
	return PBKDF2Algorithm
}

func (h *PBKDF2Hasher) Encode(raw string) (string, error) {
	salt, err := randomString(pbkdf2SaltLength)
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return h.encode(raw, salt, h.Iterations), nil
}

func (h *PBKDF2Hasher) encode(raw, salt string, iterations int) string {
	key := pbkdf2.Key([]byte(raw), []byte(salt), iterations, sha256.Size, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s",
		PBKDF2Algorithm, iterations, salt, base64.StdEncoding.EncodeToString(key))
}

func (h *PBKDF2Hasher) Verify(raw, encoded string) (bool, error) {
	iterations, salt, err := h.decode(encoded)
	if err != nil {
		return false, err
	}
	candidate := h.encode(raw, salt, iterations)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(encoded)) == 1, nil
}

func (h *PBKDF2Hasher) MustUpdate(encoded string) bool {
	iterations, _, err := h.decode(encoded)
	if err != nil {
		return true
	}
	return iterations != h.Iterations
}

func (h *PBKDF2Hasher) decode(encoded string) (int, string, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[0] != PBKDF2Algorithm {
		return 0, "", ErrMalformedHash
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return 0, "", ErrMalformedHash
	}
	if parts[2] == "" {
		return 0, "", ErrMalformedHash
	}
	return iterations, parts[2], nil
}
