package encoder

import "context"

// Encoder turns text into an embedding vector.
//
// Implementations must be deterministic for identical input. The vector
// dimension may vary between calls; the semantic store reconciles drifting
// widths by zero-padding. Failures propagate to the caller unchanged; the
// store performs no retry.
type Encoder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Func adapts a plain function to the Encoder interface.
type Func func(ctx context.Context, text string) ([]float64, error)

// Embed implements Encoder.
func (f Func) Embed(ctx context.Context, text string) ([]float64, error) {
	return f(ctx, text)
}
