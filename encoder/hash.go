package encoder

import (
	"context"
	"hash/fnv"
	"strings"
)

// HashEncoder is a deterministic, offline bag-of-words encoder. Each
// lower-cased token is hashed into one of Dimensions buckets and counted.
// It has no semantic quality whatsoever; it exists so demos and tests can
// run without a model while still exercising real vector plumbing.
type HashEncoder struct {
	dimensions int
}

// NewHashEncoder creates a hash encoder. Non-positive dimensions default to 64.
func NewHashEncoder(dimensions int) *HashEncoder {
	if dimensions <= 0 {
		dimensions = 64
	}
	return &HashEncoder{dimensions: dimensions}
}

// Dimensions returns the fixed output width.
func (e *HashEncoder) Dimensions() int { return e.dimensions }

// Embed implements Encoder. It never fails and ignores ctx beyond the
// standard cancellation check.
func (e *HashEncoder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float64, e.dimensions)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[int(h.Sum32())%e.dimensions]++
	}
	return vec, nil
}
