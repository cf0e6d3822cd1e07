// Package joincode generates the short share codes that gate group
// membership. Codes must be unpredictable: a guessable code would let anyone
// join arbitrary groups, so the generator draws from crypto/rand.
package joincode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// Alphabet is the character set join codes are drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultLength is the default join code length.
const DefaultLength = 6

// maxAttempts bounds the collision-retry loop. The code space at length 6 is
// 36^6 (~2.2e9), so hitting this bound means the registry is pathologically
// full or the random source is broken.
const maxAttempts = 100

// ErrSpaceExhausted is returned when no unused code was found within the
// retry budget.
var ErrSpaceExhausted = errors.New("joincode: code space exhausted")

// LookupFunc reports whether a code is already assigned to a group.
type LookupFunc func(ctx context.Context, code string) (bool, error)

// Generator produces unique join codes against an injected registry lookup.
type Generator struct {
	length int
	exists LookupFunc
}

// NewGenerator constructs a Generator. A non-positive length falls back to
// DefaultLength.
func NewGenerator(length int, exists LookupFunc) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	return &Generator{length: length, exists: exists}
}

// Length returns the configured code length.
func (g *Generator) Length() int {
	return g.length
}

// Generate draws codes until one is unused in the registry, up to the retry
// budget. The returned code is unique against the registry snapshot at check
// time; the storage layer's unique index is the final arbiter under
// concurrent creation.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if errCtx := ctx.Err(); errCtx != nil {
			return "", errCtx
		}
		code, errDraw := g.draw()
		if errDraw != nil {
			return "", errDraw
		}
		taken, errLookup := g.exists(ctx, code)
		if errLookup != nil {
			return "", fmt.Errorf("joincode: lookup: %w", errLookup)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrSpaceExhausted
}

// draw produces one candidate code.
func (g *Generator) draw() (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	buf := make([]byte, g.length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("joincode: random source: %w", err)
		}
		buf[i] = Alphabet[n.Int64()]
	}
	return string(buf), nil
}
