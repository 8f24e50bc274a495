package password

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// UnusablePrefix marks an encoded password that never verifies.
const UnusablePrefix = "!"

const (
	unusableSuffixLength = 40
	saltAlphabet         = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	ErrUnknownAlgorithm = errors.New("unknown password hashing algorithm")
	ErrMalformedHash    = errors.New("malformed password hash")
)

// Hasher encodes raw passwords into self-describing strings of the form
// "<algorithm>$...". Verify must run in constant time relative to the hash.
type Hasher interface {
	Algorithm() string
	Encode(raw string) (string, error)
	Verify(raw, encoded string) (bool, error)
	// MustUpdate reports whether encoded was produced with parameters that
	// differ from the hasher's current ones.
	MustUpdate(encoded string) bool
}

// Manager encodes with its preferred hasher and verifies with any known one.
type Manager struct {
	preferred Hasher
	hashers   map[string]Hasher
}

func NewManager(preferred Hasher, others ...Hasher) *Manager {
	m := &Manager{
		preferred: preferred,
		hashers:   map[string]Hasher{preferred.Algorithm(): preferred},
	}
	for _, h := range others {
		if _, ok := m.hashers[h.Algorithm()]; !ok {
			m.hashers[h.Algorithm()] = h
		}
	}
	return m
}

func (m *Manager) Preferred() Hasher {
	return m.preferred
}

// Make encodes raw with the preferred hasher. A nil raw password yields an
// unusable marker instead of a hash.
func (m *Manager) Make(raw *string) (string, error) {
	if raw == nil {
		return Unusable()
	}
	return m.preferred.Encode(*raw)
}

// Check verifies raw against encoded. mustUpdate is true when the password
// matched but encoded should be re-made with the preferred hasher.
func (m *Manager) Check(raw, encoded string) (ok bool, mustUpdate bool, err error) {
	if !IsUsable(encoded) {
		return false, false, nil
	}

	algorithm, _, found := strings.Cut(encoded, "$")
	if !found {
		return false, false, ErrMalformedHash
	}

	hasher, known := m.hashers[algorithm]
	if !known {
		return false, false, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, algorithm)
	}

	ok, err = hasher.Verify(raw, encoded)
	if err != nil || !ok {
		return false, false, err
	}

	mustUpdate = hasher.Algorithm() != m.preferred.Algorithm() || hasher.MustUpdate(encoded)
	return true, mustUpdate, nil
}

// Unusable returns a fresh unusable-password marker.
func Unusable() (string, error) {
	suffix, err := randomString(unusableSuffixLength)
	if err != nil {
		return "", err
	}
	return UnusablePrefix + suffix, nil
}

func IsUsable(encoded string) bool {
	return encoded != "" && !strings.HasPrefix(encoded, UnusablePrefix)
}

func randomString(n int) (string, error) {
	limit := big.NewInt(int64(len(saltAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		buf[i] = saltAlphabet[idx.Int64()]
	}
	return string(buf), nil
}

// NewManagerFor returns a Manager that encodes with algorithm and still
// verifies hashes made by the other built-in hasher.
func NewManagerFor(algorithm string, pbkdf2Iterations, bcryptCost int) (*Manager, error) {
	pbkdf2Hasher := NewPBKDF2Hasher(pbkdf2Iterations)
	bcryptHasher := NewBcryptSHA256Hasher(bcryptCost)

	switch algorithm {
	case PBKDF2Algorithm:
		return NewManager(pbkdf2Hasher, bcryptHasher), nil
	case BcryptSHA256Algorithm, "bcrypt":
		return NewManager(bcryptHasher, pbkdf2Hasher), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, algorithm)
	}
}
