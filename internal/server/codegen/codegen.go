// Package codegen produces one-time codes for registration and recovery.
//
// Codes are capability tokens: 12 symbols from a 32-symbol alphabet without
// look-alike characters, read from crypto/rand, giving 60 bits of entropy.
// Uniqueness is settled by the store. The caller supplies a ClaimFunc that
// persists a candidate and reports common.ErrConflict when the code is
// already taken; the generator then draws a new candidate.
package codegen

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
)

const (
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	Length   = 12

	// MaxAttempts bounds the number of candidates tried per call.
	MaxAttempts = 5
)

// ClaimFunc persists code. It must return an error matching common.ErrConflict
// when another record already holds the same code.
type ClaimFunc func(ctx context.Context, code string) error

// Generator is safe for concurrent use.
type Generator struct {
	rand        io.Reader
	maxAttempts int
}

func New() *Generator {
	return &Generator{rand: rand.Reader, maxAttempts: MaxAttempts}
}

// NewWithReader is used by tests to make candidates predictable.
func NewWithReader(r io.Reader, maxAttempts int) *Generator {
	return &Generator{rand: r, maxAttempts: maxAttempts}
}

// Generate returns one random candidate without checking uniqueness.
func (g *Generator) Generate() (string, error) {
	buf := make([]byte, Length)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	// len(Alphabet) divides 256, so masking keeps the distribution uniform.
	for i, b := range buf {
		buf[i] = Alphabet[int(b)&(len(Alphabet)-1)]
	}
	return string(buf), nil
}

// GenerateUniqueCode draws candidates until claim accepts one. Errors from
// claim other than a conflict abort immediately. After maxAttempts conflicts
// it fails with common.ErrCodeGenerationExhausted.
func (g *Generator) GenerateUniqueCode(ctx context.Context, claim ClaimFunc) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, err := g.Generate()
		if err != nil {
			return "", err
		}

		err = claim(ctx, code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, common.ErrConflict) {
			return "", err
		}
	}
	return "", common.ErrCodeGenerationExhausted
}

// Normalize upper-cases user input and strips separators so codes typed
// as "abcd-efgh-jkmn" still match.
func Normalize(input string) string {
	out := make([]byte, 0, len(input))
	for i := 0; i < len(input); i++ {
		c := input[i]
		switch {
		case c == '-' || c == ' ':
			continue
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// WellFormed reports whether s could have been produced by Generate.
func WellFormed(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isAlphabet(s[i]) {
			return false
		}
	}
	return true
}

func isAlphabet(c byte) bool {
	for i := 0; i < len(Alphabet); i++ {
		if Alphabet[i] == c {
			return true
		}
	}
	return false
}
