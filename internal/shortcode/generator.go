// Package shortcode generates and validates short link codes.
package shortcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

// Alphabet is the 62-character set short codes are drawn from.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Well-formed codes are 6-10 alphanumeric characters.
const (
	MinLength = 6
	MaxLength = 10

	// DefaultLength is the length of generated codes.
	DefaultLength = 7
)

var codeRegex = regexp.MustCompile(`^[a-zA-Z0-9]{6,10}$`)

// IntnFunc returns a uniform random integer in [0, n).
// Injectable so that generation is deterministic under test.
type IntnFunc func(n int) int

// Generator produces candidate short codes.
// Candidate generation has no side effects; uniqueness is the caller's
// concern.
type Generator struct {
	length int
	intn   IntnFunc
}

// New creates a Generator for codes of the given length.
// A length outside the well-formed range is a misconfiguration and fails.
// A nil source defaults to crypto/rand.
func New(length int, source IntnFunc) (*Generator, error) {
	if length < MinLength || length > MaxLength {
		return nil, fmt.Errorf("short code length must be %d-%d, got %d", MinLength, MaxLength, length)
	}
	if source == nil {
		source = cryptoIntn
	}
	return &Generator{length: length, intn: source}, nil
}

// Candidate returns a random code drawn uniformly from the alphabet.
func (g *Generator) Candidate() string {
	b := make([]byte, g.length)
	for i := range b {
		b[i] = Alphabet[g.intn(len(Alphabet))]
	}
	return string(b)
}

// Length returns the configured candidate length.
func (g *Generator) Length() int {
	return g.length
}

// IsWellFormed reports whether code is a syntactically valid short code.
// Runs before any store lookup so malformed input never reaches the
// persistence layer.
func IsWellFormed(code string) bool {
	return codeRegex.MatchString(code)
}

// cryptoIntn draws from crypto/rand.
func cryptoIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand failing means the process is in a bad state;
		// a biased fallback would silently weaken codes.
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return int(v.Int64())
}
