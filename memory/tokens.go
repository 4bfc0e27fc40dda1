package memory

import (
	"math"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// Tokenizer estimates the token cost of a piece of text for budget trimming.
type Tokenizer interface {
	EstimateTokens(text string) int
}

// WordEstimator is the default cost model: max(1, round(words * PerWord)).
type WordEstimator struct {
	// PerWord is the token multiplier per whitespace-separated word.
	// Zero defaults to 1.3.
	PerWord float64
}

// EstimateTokens implements Tokenizer.
func (e WordEstimator) EstimateTokens(text string) int {
	perWord := e.PerWord
	if perWord == 0 {
		perWord = 1.3
	}
	words := len(strings.Fields(text))
	cost := int(math.Round(float64(words) * perWord))
	if cost < 1 {
		cost = 1
	}
	return cost
}

// TiktokenTokenizer counts tokens with a tiktoken encoding, lazily
// initialized on first use. When the encoding cannot be loaded (for example
// with no network access to fetch encoding data) it falls back to the word
// estimator and logs a warning once.
type TiktokenTokenizer struct {
	encoding string
	logger   *zap.Logger
	fallback WordEstimator

	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
}

// NewTiktokenTokenizer creates a tiktoken-backed tokenizer. Empty encoding
// defaults to cl100k_base.
func NewTiktokenTokenizer(encoding string, logger *zap.Logger) *TiktokenTokenizer {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TiktokenTokenizer{
		encoding: encoding,
		logger:   logger.With(zap.String("component", "tokenizer")),
	}
}

func (t *TiktokenTokenizer) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = err
			t.logger.Warn("tiktoken encoding unavailable, falling back to word estimate",
				zap.String("encoding", t.encoding),
				zap.Error(err))
			return
		}
		t.enc = enc
	})
	return t.initErr
}

// EstimateTokens implements Tokenizer.
func (t *TiktokenTokenizer) EstimateTokens(text string) int {
	if err := t.init(); err != nil {
		return t.fallback.EstimateTokens(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}
