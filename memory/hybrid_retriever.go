package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RetrievedKind tells episodic results apart from semantic ones.
type RetrievedKind string

const (
	KindEpisodic RetrievedKind = "episodic"
	KindSemantic RetrievedKind = "semantic"
)

// RetrievedItem is the ephemeral merge product of a retrieval. It is never
// persisted; downstream consumers read Kind, Source, Text and the original
// record through Event or Document.
type RetrievedItem struct {
	Kind   RetrievedKind
	Source string
	Text   string
	Score  float64

	// Exactly one of Event / Document is set, matching Kind.
	Event    *Event
	Document *Document
}

// Identifier returns the most specific identity available for this item,
// in the order a tracing sink normalizes: id, then source. It never returns
// an empty string for items produced by Retrieve.
func (it *RetrievedItem) Identifier() string {
	switch {
	case it.Event != nil && it.Event.ID != "":
		return it.Event.ID
	case it.Document != nil && it.Document.ID != "":
		return it.Document.ID
	default:
		return it.Source
	}
}

// RetrievalMetrics receives per-call observations from the retriever.
// Implementations must be cheap; they run inline on every Retrieve.
type RetrievalMetrics interface {
	ObserveRetrieval(d time.Duration, episodic, semantic, returned, trimmed int)
}

// HybridRetrieverConfig is supplied at construction and immutable thereafter.
type HybridRetrieverConfig struct {
	// KEpi is the episodic window size. Non-positive defaults to 3.
	KEpi int

	// KSem is the semantic result count. Non-positive defaults to 3.
	KSem int

	// TokenBudget caps the estimated token cost of the merged result.
	// Zero disables trimming.
	TokenBudget int

	// RerankerEnabled turns on the lexical-overlap rerank pass.
	RerankerEnabled bool

	// EpisodicFilter is the acceptance predicate for episodic candidates.
	// Nil accepts everything.
	EpisodicFilter func(*Event) bool

	// SemanticFilter is the default metadata filter for semantic search.
	// When it yields nothing, Retrieve retries once unfiltered.
	SemanticFilter map[string]any

	// Tokenizer estimates per-item cost for budget trimming.
	// Nil defaults to the word estimator.
	Tokenizer Tokenizer

	// Metrics optionally receives per-call observations.
	Metrics RetrievalMetrics
}

// HybridRetriever composes an EpisodicStore and a SemanticStore: it merges
// their results, annotates provenance, optionally reranks, deduplicates by
// (source, text), and trims to a token budget. It owns neither store and
// holds no state between calls: given fixed store contents, fixed
// configuration, and a deterministic encoder, Retrieve is deterministic.
type HybridRetriever struct {
	episodic *EpisodicStore
	semantic *SemanticStore
	cfg      HybridRetrieverConfig
	tok      Tokenizer
	logger   *zap.Logger
}

// NewHybridRetriever creates a retriever over the two stores.
func NewHybridRetriever(episodic *EpisodicStore, semantic *SemanticStore, cfg HybridRetrieverConfig, logger *zap.Logger) *HybridRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.KEpi <= 0 {
		cfg.KEpi = 3
	}
	if cfg.KSem <= 0 {
		cfg.KSem = 3
	}
	tok := cfg.Tokenizer
	if tok == nil {
		tok = WordEstimator{}
	}
	return &HybridRetriever{
		episodic: episodic,
		semantic: semantic,
		cfg:      cfg,
		tok:      tok,
		logger:   logger.With(zap.String("component", "hybrid_retriever")),
	}
}

// Retrieve runs the merge pipeline for a query. Only encoder failures can
// surface as errors; every other stage degrades to a smaller result set.
// Output order without reranking is the episodic block (recency order)
// followed by the semantic block (similarity order).
func (r *HybridRetriever) Retrieve(ctx context.Context, query string) ([]RetrievedItem, error) {
	started := time.Now()

	events := r.episodic.TopK(r.cfg.KEpi, r.cfg.EpisodicFilter)

	sem, err := r.semantic.Search(ctx, query, r.cfg.KSem, r.cfg.SemanticFilter)
	if err != nil {
		return nil, err
	}
	if len(sem) == 0 && len(r.cfg.SemanticFilter) > 0 {
		// Explicit fallback: a configured filter that matches nothing retries
		// once without it.
		r.logger.Debug("semantic filter matched nothing, retrying unfiltered")
		sem, err = r.semantic.Search(ctx, query, r.cfg.KSem, nil)
		if err != nil {
			return nil, err
		}
	}

	items := make([]RetrievedItem, 0, len(events)+len(sem))
	for _, ev := range events {
		items = append(items, RetrievedItem{
			Kind:   KindEpisodic,
			Source: episodicSource(ev),
			Text:   ev.Text,
			Event:  ev,
		})
	}
	for i := range sem {
		doc := sem[i].Document
		items = append(items, RetrievedItem{
			Kind:     KindSemantic,
			Source:   semanticSource(&doc),
			Text:     doc.Text,
			Score:    sem[i].Score,
			Document: &doc,
		})
	}

	if r.cfg.RerankerEnabled {
		rerank(items, query)
	}
	items = dedupe(items)
	trimmed := 0
	if r.cfg.TokenBudget > 0 {
		before := len(items)
		items = r.trimToBudget(items)
		trimmed = before - len(items)
	}

	if r.cfg.Metrics != nil {
		r.cfg.Metrics.ObserveRetrieval(time.Since(started), len(events), len(sem), len(items), trimmed)
	}
	r.logger.Debug("retrieval complete",
		zap.Int("episodic", len(events)),
		zap.Int("semantic", len(sem)),
		zap.Int("returned", len(items)),
		zap.Int("trimmed", trimmed))
	return items, nil
}

// episodicSource synthesizes provenance for an event, honoring an existing
// provenance field when the caller supplied one.
func episodicSource(ev *Event) string {
	if p, ok := ev.Extra["provenance"].(string); ok && p != "" {
		return p
	}
	ts := ""
	if !ev.Timestamp.IsZero() {
		ts = ev.Timestamp.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("episodic@%s#%s", ts, ev.Type)
}

// semanticSource synthesizes provenance for a document: the metadata source
// plus its section, falling back to the document id when no section is set.
func semanticSource(doc *Document) string {
	if p, ok := doc.Metadata.Extra["provenance"].(string); ok && p != "" {
		return p
	}
	anchor := doc.Metadata.Section
	if anchor == "" {
		anchor = doc.ID
	}
	return fmt.Sprintf("%s#%s", doc.Metadata.Source, anchor)
}

// rerank rescores the merged pool in place and stable-sorts it descending:
// +1.0 for semantic items, +0.1 per word shared between the lower-cased
// query and item text, +0.05 flat for episodic items. Ties preserve the
// prior order.
func rerank(items []RetrievedItem, query string) {
	queryWords := wordSet(query)
	for i := range items {
		score := 0.0
		if items[i].Kind == KindSemantic {
			score += 1.0
		} else {
			score += 0.05
		}
		shared := 0
		for w := range wordSet(items[i].Text) {
			if queryWords[w] {
				shared++
			}
		}
		score += 0.1 * float64(shared)
		items[i].Score = score
	}
	stableSortByScore(items)
}

func stableSortByScore(items []RetrievedItem) {
	// Insertion sort keeps the implementation allocation-free and stable.
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].Score > items[j-1].Score; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = true
	}
	return set
}

// dedupe keeps the first occurrence of each (source, text) pair in current
// order.
func dedupe(items []RetrievedItem) []RetrievedItem {
	type key struct{ source, text string }
	seen := make(map[key]bool, len(items))
	out := items[:0]
	for _, it := range items {
		k := key{it.Source, it.Text}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, it)
	}
	return out
}

// trimToBudget walks items in order accumulating estimated cost and stops at
// the first item that would exceed the budget. No reordering, no partial
// inclusion, no backtracking to fit a smaller later item: the result is
// always a prefix of the pre-trim ordering.
func (r *HybridRetriever) trimToBudget(items []RetrievedItem) []RetrievedItem {
	total := 0
	for i, it := range items {
		cost := r.tok.EstimateTokens(it.Text)
		if total+cost > r.cfg.TokenBudget {
			return items[:i]
		}
		total += cost
	}
	return items
}
