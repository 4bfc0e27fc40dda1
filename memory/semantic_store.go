package memory

import (
	"context"
	"math"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/principia-agentica/hybrid-memory-talk/encoder"
)

// SemanticStoreConfig configures a SemanticStore.
type SemanticStoreConfig struct {
	// PIIScrubAtIngest redacts email-like substrings from document text
	// before embedding and storage. The redaction is irreversible.
	PIIScrubAtIngest bool
}

// SearchResult pairs a document with its similarity score.
type SearchResult struct {
	Document Document
	Score    float64
}

// SemanticStore is an upsertable collection of text documents with
// unit-normalized embeddings and metadata-filtered cosine search. Vectors
// live in a row-aligned matrix whose width follows the encoder: when the
// encoder's output width drifts, the narrower side is zero-padded instead of
// rejected. That is a compatibility shim, not a correctness guarantee; a
// persistent width change usually means the encoder is misconfigured.
type SemanticStore struct {
	enc    encoder.Encoder
	cfg    SemanticStoreConfig
	docs   []Document
	vecs   [][]float64
	dim    int
	index  map[string]int
	logger *zap.Logger
}

// NewSemanticStore creates a semantic store around the injected encoder.
func NewSemanticStore(enc encoder.Encoder, cfg SemanticStoreConfig, logger *zap.Logger) *SemanticStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemanticStore{
		enc:    enc,
		cfg:    cfg,
		index:  make(map[string]int),
		logger: logger.With(zap.String("component", "semantic_store")),
	}
}

// Len returns the number of stored documents.
func (s *SemanticStore) Len() int { return len(s.docs) }

// Upsert stores or replaces a document. Empty text fails with MISSING_TEXT.
// When the id already exists the stored text, metadata and vector are
// replaced in the existing row; otherwise a new row is appended and a
// synthetic id (the stringified row index) is assigned if none was supplied.
// Encoder failures propagate unchanged.
func (s *SemanticStore) Upsert(ctx context.Context, doc Document) (Document, error) {
	if doc.Text == "" {
		return Document{}, NewError(ErrCodeMissingText, "document text is required")
	}

	stored := doc.clone()
	if s.cfg.PIIScrubAtIngest {
		stored.Text = ScrubEmails(stored.Text)
	}

	vec, err := s.enc.Embed(ctx, stored.Text)
	if err != nil {
		return Document{}, err
	}
	vec = normalize(vec)
	vec = s.reconcileDimension(vec)

	if row, ok := s.index[stored.ID]; ok && stored.ID != "" {
		s.vecs[row] = vec
		stored.Embedding = append([]float64(nil), vec...)
		s.docs[row] = stored
		s.logger.Debug("document replaced", zap.String("id", stored.ID))
		return stored.clone(), nil
	}

	if stored.ID == "" {
		stored.ID = strconv.Itoa(len(s.docs))
	}
	stored.Embedding = append([]float64(nil), vec...)
	s.docs = append(s.docs, stored)
	s.vecs = append(s.vecs, vec)
	s.index[stored.ID] = len(s.docs) - 1
	s.logger.Debug("document added",
		zap.String("id", stored.ID),
		zap.Int("dimension", s.dim))
	return stored.clone(), nil
}

// Search embeds the query, applies metadata filters to pick a candidate
// subset before ranking, then ranks candidates by cosine similarity (dot
// product of unit vectors) in descending order with ties broken by insertion
// order. An empty store or an empty filtered subset returns empty; callers
// decide whether to fall back to an unfiltered search.
func (s *SemanticStore) Search(ctx context.Context, query string, topK int, filters map[string]any) ([]SearchResult, error) {
	if len(s.docs) == 0 {
		return nil, nil
	}

	q, err := s.enc.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	q = normalize(q)
	q = padTo(q, s.dim)

	candidates := make([]int, 0, len(s.docs))
	for i := range s.docs {
		if matchDocumentFilters(&s.docs[i].Metadata, filters) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	results := make([]SearchResult, 0, len(candidates))
	for _, i := range candidates {
		results = append(results, SearchResult{
			Document: s.docs[i].clone(),
			Score:    dot(q, s.vecs[i]),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Get returns the stored document for id.
func (s *SemanticStore) Get(id string) (Document, bool) {
	row, ok := s.index[id]
	if !ok {
		return Document{}, false
	}
	return s.docs[row].clone(), true
}

// Documents returns a snapshot of all stored documents in insertion order.
func (s *SemanticStore) Documents() []Document {
	out := make([]Document, 0, len(s.docs))
	for i := range s.docs {
		out = append(out, s.docs[i].clone())
	}
	return out
}

// reconcileDimension brings the incoming vector and the stored matrix to a
// common width by zero-padding the narrower side. Matrix-wide when the new
// vector is wider, single-vector when it is narrower.
func (s *SemanticStore) reconcileDimension(vec []float64) []float64 {
	if len(vec) > s.dim {
		if s.dim > 0 {
			s.logger.Warn("encoder dimension grew, zero-padding stored matrix",
				zap.Int("from", s.dim),
				zap.Int("to", len(vec)))
		}
		for i := range s.vecs {
			s.vecs[i] = padTo(s.vecs[i], len(vec))
			s.docs[i].Embedding = padTo(s.docs[i].Embedding, len(vec))
		}
		s.dim = len(vec)
		return vec
	}
	if len(vec) < s.dim {
		s.logger.Warn("encoder dimension shrank, zero-padding new vector",
			zap.Int("got", len(vec)),
			zap.Int("want", s.dim))
		return padTo(vec, s.dim)
	}
	s.dim = len(vec)
	return vec
}

func padTo(vec []float64, width int) []float64 {
	if len(vec) >= width {
		return vec
	}
	padded := make([]float64, width)
	copy(padded, vec)
	return padded
}

// normalize returns the L2-normalized vector. A zero vector is treated as
// having norm 1 so normalization never divides by zero.
func normalize(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
