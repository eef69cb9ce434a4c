package password

import (
	"errors"
	"fmt"
	"strings"
)

const maxPasswordBytes = 1024

var (
	// ErrEmptyPassword is returned when hashing or verifying an empty password.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrPasswordTooLong is returned when the input exceeds the hasher's limit.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrUnsupportedHash is returned for digests no configured hasher understands.
	ErrUnsupportedHash = errors.New("unsupported password hash")
	// ErrMalformedHash is returned for digests with a known prefix but a broken body.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Hasher turns plaintext passwords into one-way digests and checks them.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
}

type algorithm interface {
	Hasher
	handles(encodedHash string) bool
}

// Multi hashes with a primary algorithm and verifies digests produced by any of
// its algorithms. Digests from a non-primary algorithm always need an upgrade.
type Multi struct {
	primary algorithm
	others  []algorithm
}

// NewMulti returns a [Multi] that hashes with primary and additionally accepts
// digests produced by legacy.
func NewMulti(primary Hasher, legacy ...Hasher) (*Multi, error) {
	p, ok := primary.(algorithm)
	if !ok {
		return nil, fmt.Errorf("unsupported primary hasher %T", primary)
	}
	m := &Multi{primary: p}
	for _, h := range legacy {
		a, ok := h.(algorithm)
		if !ok {
			return nil, fmt.Errorf("unsupported legacy hasher %T", h)
		}
		m.others = append(m.others, a)
	}
	return m, nil
}

// Hash uses the primary algorithm.
func (m *Multi) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

// Verify dispatches on the digest prefix.
func (m *Multi) Verify(password, encodedHash string) (bool, error) {
	a, err := m.pick(encodedHash)
	if err != nil {
		return false, err
	}
	return a.Verify(password, encodedHash)
}

// NeedsUpgrade reports true for legacy digests and for primary digests with
// outdated parameters.
func (m *Multi) NeedsUpgrade(encodedHash string) (bool, error) {
	if m.primary.handles(encodedHash) {
		return m.primary.NeedsUpgrade(encodedHash)
	}
	if _, err := m.pick(encodedHash); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Multi) pick(encodedHash string) (algorithm, error) {
	if m.primary.handles(encodedHash) {
		return m.primary, nil
	}
	for _, a := range m.others {
		if a.handles(encodedHash) {
			return a, nil
		}
	}
	return nil, ErrUnsupportedHash
}

func checkInput(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
