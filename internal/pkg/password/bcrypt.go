package password

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const BcryptSHA256Algorithm = "bcrypt_sha256"

// BcryptSHA256Hasher pre-hashes the password with SHA-256 so inputs longer
// than bcrypt's 72 byte limit still count in full.
// Encoded form: "bcrypt_sha256$<bcrypt hash>".
type BcryptSHA256Hasher struct {
	Cost int
}

func NewBcryptSHA256Hasher(cost int) *BcryptSHA256Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptSHA256Hasher{Cost: cost}
}

func (h *BcryptSHA256Hasher) Algorithm() string {
	return BcryptSHA256Algorithm
}

func (h *BcryptSHA256Hasher) Encode(raw string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(prehash(raw), h.Cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return BcryptSHA256Algorithm + "$" + string(hashed), nil
}

func (h *BcryptSHA256Hasher) Verify(raw, encoded string) (bool, error) {
	data, ok := strings.CutPrefix(encoded, BcryptSHA256Algorithm+"$")
	if !ok {
		return false, ErrMalformedHash
	}
	err := bcrypt.CompareHashAndPassword([]byte(data), prehash(raw))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %w", ErrMalformedHash, err)
	}
}

func (h *BcryptSHA256Hasher) MustUpdate(encoded string) bool {
	data, ok := strings.CutPrefix(encoded, BcryptSHA256Algorithm+"$")
	if !ok {
		return true
	}
	cost, err := bcrypt.Cost([]byte(data))
	if err != nil {
		return true
	}
	return cost != h.Cost
}

func prehash(raw string) []byte {
	sum := sha256.Sum256([]byte(raw))
	return []byte(hex.EncodeToString(sum[:]))
}
