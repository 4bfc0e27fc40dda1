// Package testutil provides deterministic test doubles for the memory
// engine: tiny encoders, a failing encoder, and a controllable clock.
package testutil

import (
	"context"
	"errors"
	"strings"
	"time"
)

// TinyEncoder is a deterministic two-dimensional encoder derived from text
// length and vowel count. Useless semantically, stable forever.
type TinyEncoder struct{}

// Embed implements encoder.Encoder.
func (TinyEncoder) Embed(_ context.Context, text string) ([]float64, error) {
	vowels := 0
	for _, r := range strings.ToLower(text) {
		if strings.ContainsRune("aeiou", r) {
			vowels++
		}
	}
	return []float64{float64(len(text) % 7), float64(vowels) + 1.0}, nil
}

// WideningEncoder grows its output width by one dimension per call,
// exercising the store's dimension reconciliation.
type WideningEncoder struct {
	Base  int
	calls int
}

// Embed implements encoder.Encoder.
func (e *WideningEncoder) Embed(_ context.Context, text string) ([]float64, error) {
	base := e.Base
	if base <= 0 {
		base = 2
	}
	width := base + e.calls
	e.calls++
	vec := make([]float64, width)
	for i := range vec {
		vec[i] = float64((len(text) + i) % 5)
	}
	return vec, nil
}

// ErrEncoderDown is what FailingEncoder returns.
var ErrEncoderDown = errors.New("encoder unavailable")

// FailingEncoder always fails, for propagation tests.
type FailingEncoder struct{}

// Embed implements encoder.Encoder.
func (FailingEncoder) Embed(context.Context, string) ([]float64, error) {
	return nil, ErrEncoderDown
}

// Clock is a manually-advanced time source.
type Clock struct {
	now time.Time
}

// NewClock starts a clock at t.
func NewClock(t time.Time) *Clock { return &Clock{now: t} }

// Now returns the current fake time.
func (c *Clock) Now() time.Time { return c.now }

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) { c.now = c.now.Add(d) }
