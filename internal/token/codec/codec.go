// Package codec holds the pure token primitives: random segment generation,
// the peppered hash, and public-format parsing. No I/O happens here.
package codec

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
)

const (
	// Alphabet is the public token symbol set. 36 symbols, so a 4-char
	// prefix spans ~1.68M values and an 8-char core ~2.8e12.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// PrefixLength is the non-secret lookup segment of a token.
	PrefixLength = 4
	// CoreLength is the secret segment of a token.
	CoreLength = 8

	// SaltSize is the per-token salt length in bytes.
	SaltSize = 16

	separator = "-"
)

// ErrMalformedToken marks input that does not match the public token format.
var ErrMalformedToken = errors.New("malformed token")

// RandomSegment returns n uniformly distributed symbols from Alphabet drawn
// from crypto/rand. Sampling rejects bytes outside the largest multiple of
// the alphabet size so no symbol is favored by modulo reduction.
func RandomSegment(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("segment length must be positive, got %d", n)
	}

	// 252 is the largest multiple of 36 below 256.
	const max = byte(252)

	var b strings.Builder
	b.Grow(n)

	buf := make([]byte, n)
	for b.Len() < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, v := range buf {
			if v >= max {
				continue
			}
			b.WriteByte(Alphabet[int(v)%len(Alphabet)])
			if b.Len() == n {
				break
			}
		}
	}

	return b.String(), nil
}

// NewSalt returns a fresh per-token salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("read salt bytes: %w", err)
	}
	return salt, nil
}

// HashToken computes SHA-256(pepper || plaintext || salt). Deterministic for
// identical inputs; used both at issuance and at verification.
func HashToken(pepper []byte, plaintext string, salt []byte) []byte {
	h := sha256.New()
	h.Write(pepper)
	h.Write([]byte(plaintext))
	h.Write(salt)
	return h.Sum(nil)
}

// Format joins a prefix and core into the public token string.
func Format(prefix, core string) string {
	return prefix + separator + core
}

// Parse splits raw on the first separator and validates segment lengths.
// No other structural validation happens at this layer.
func Parse(raw string) (prefix, core string, err error) {
	before, after, found := strings.Cut(raw, separator)
	if !found {
		return "", "", ErrMalformedToken
	}
	if len(before) != PrefixLength || len(after) != CoreLength {
		return "", "", ErrMalformedToken
	}
	return before, after, nil
}
