// Command hybridmem runs the offline demo conversation: it seeds semantic
// memory with a few policy snippets, then walks a scripted password-reset
// exchange through the agent, printing the retrieved context and the answer.
//
// Usage:
//
//	hybridmem [-config config.yaml] [-rerank] [-trace out/traces.jsonl] [-q question]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/principia-agentica/hybrid-memory-talk/agent"
	"github.com/principia-agentica/hybrid-memory-talk/config"
	"github.com/principia-agentica/hybrid-memory-talk/encoder"
	"github.com/principia-agentica/hybrid-memory-talk/internal/metrics"
	"github.com/principia-agentica/hybrid-memory-talk/memory"
	"github.com/principia-agentica/hybrid-memory-talk/tracing"
)

func main() {
	var (
		configPath = flag.String("config", "", "optional YAML config file")
		rerank     = flag.Bool("rerank", false, "enable the lexical reranker")
		tracePath  = flag.String("trace", "", "JSONL trace sink (overrides config)")
		question   = flag.String("q", "I forgot my password, can you reset it? My email is ana@example.com", "question to ask")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	logger := buildLogger(*verbose)
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(*configPath, logger)
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}
	if *rerank {
		cfg.RerankerEnabled = true
	}
	if *tracePath != "" {
		cfg.TracePath = *tracePath
	}

	if err := run(cfg, *question, logger); err != nil {
		logger.Fatal("demo failed", zap.Error(err))
	}
}

func run(cfg config.Config, question string, logger *zap.Logger) error {
	collector := metrics.NewCollector("hybridmem", prometheus.NewRegistry(), logger)

	episodic := memory.NewEpisodicStore(memory.EpisodicStoreConfig{
		Capacity:       cfg.EpisodicCapacity,
		DefaultTTLDays: cfg.EpisodicTTLDays,
	}, logger)

	semantic := memory.NewSemanticStore(
		encoder.NewHashEncoder(64),
		memory.SemanticStoreConfig{PIIScrubAtIngest: cfg.PIIScrubAtIngest},
		logger,
	)

	ctx := context.Background()
	for _, doc := range seedDocuments() {
		if _, err := semantic.Upsert(ctx, doc); err != nil {
			return err
		}
		collector.RecordUpsert()
	}

	retriever := memory.NewHybridRetriever(episodic, semantic, memory.HybridRetrieverConfig{
		KEpi:            cfg.KEpi,
		KSem:            cfg.KSem,
		TokenBudget:     cfg.TokenBudget,
		RerankerEnabled: cfg.RerankerEnabled,
		SemanticFilter:  cfg.SemFilters,
		Metrics:         collector,
	}, logger)

	tracer := tracing.New(tracing.Config{Path: cfg.TracePath}, logger)

	a := agent.New(retriever, episodic, agent.NewAccountService(), nil, tracer, collector,
		agent.Config{Session: "demo"}, logger)

	answer, err := a.Answer(ctx, question)
	if err != nil {
		return err
	}

	items, err := retriever.Retrieve(ctx, question)
	if err != nil {
		return err
	}
	fmt.Println("Retrieved context:")
	for _, it := range items {
		fmt.Printf("  [%s] %s: %s\n", it.Kind, it.Source, it.Text)
	}
	fmt.Println()
	fmt.Println(answer)
	fmt.Printf("traces written to %s\n", cfg.TracePath)
	return nil
}

func seedDocuments() []memory.Document {
	return []memory.Document{
		{
			ID:   "policy-password",
			Text: "Customers on annual plans must verify email before password reset.",
			Metadata: memory.Metadata{
				Source: "policy.md", Section: "password", Tags: []string{"policy"},
			},
		},
		{
			ID:   "policy-checklist",
			Text: "Checklist: confirm identity, verify email, send reset link, log the action.",
			Metadata: memory.Metadata{
				Source: "policy.md", Section: "checklist", Tags: []string{"policy"},
			},
		},
		{
			ID:   "runbook-contact",
			Text: "Write to support at admin@example.com for escalations.",
			Metadata: memory.Metadata{
				Source: "runbook.md", Section: "contact", Tags: []string{"runbook"},
			},
		},
	}
}

func buildLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	return logger
}
