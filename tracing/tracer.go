// Package tracing records retrieval and answer spans as JSONL rows and,
// optionally, as OpenTelemetry spans. Tracing failures are swallowed: a
// broken sink must never affect the run being traced.
package tracing

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/principia-agentica/hybrid-memory-talk/memory"
)

// Row is one JSONL trace record.
type Row struct {
	TS           string   `json:"ts"`
	Span         string   `json:"span"`
	InputLen     int      `json:"input_len"`
	CtxLen       int      `json:"ctx_len"`
	RetrievedIDs []string `json:"retrieved_ids"`
	OutputLen    int      `json:"output_len"`
	LatencyMS    float64  `json:"latency_ms"`
}

// Config configures a Tracer.
type Config struct {
	// Path is the JSONL sink. Empty defaults to out/traces.jsonl.
	Path string

	// Disabled turns the tracer into a no-op.
	Disabled bool

	// OTel optionally mirrors every span through an OpenTelemetry tracer.
	OTel trace.Tracer

	// Now overrides the clock for tests.
	Now func() time.Time
}

type span struct {
	name    string
	started time.Time
	inputs  string
	otel    trace.Span
}

// Tracer records {inputs, retrieved ids, output, latency} per span. Instances
// are injected explicitly; there is no process-wide default.
type Tracer struct {
	path   string
	otel   trace.Tracer
	now    func() time.Time
	logger *zap.Logger

	mu       sync.Mutex
	disabled bool
	spans    map[string]*span
}

// New creates a tracer.
func New(cfg Config, logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	path := cfg.Path
	if path == "" {
		path = filepath.Join("out", "traces.jsonl")
	}
	otelTracer := cfg.OTel
	if otelTracer == nil {
		otelTracer = noop.NewTracerProvider().Tracer("hybrid-memory")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Tracer{
		path:     path,
		otel:     otelTracer,
		now:      now,
		logger:   logger.With(zap.String("component", "tracer")),
		disabled: cfg.Disabled,
		spans:    make(map[string]*span),
	}
}

// StartSpan opens a span and returns its id.
func (t *Tracer) StartSpan(name string, inputs string) string {
	if t == nil || t.disabled {
		return "disabled"
	}
	_, otelSpan := t.otel.Start(context.Background(), name)
	id := uuid.NewString()
	t.mu.Lock()
	t.spans[id] = &span{name: name, started: t.now(), inputs: inputs, otel: otelSpan}
	t.mu.Unlock()
	return id
}

// EndSpan closes a span, writing one JSONL row. Unknown span ids are ignored.
func (t *Tracer) EndSpan(id string, retrieved []memory.RetrievedItem, output string) {
	if t == nil || t.disabled || id == "disabled" {
		return
	}
	t.mu.Lock()
	sp, ok := t.spans[id]
	delete(t.spans, id)
	t.mu.Unlock()
	if !ok {
		return
	}

	latency := t.now().Sub(sp.started)
	ids := RetrievedIDs(retrieved)
	sp.otel.SetAttributes(
		attribute.Int("ctx_len", len(ids)),
		attribute.Int("input_len", len(sp.inputs)),
		attribute.Int("output_len", len(output)),
	)
	sp.otel.End()

	row := Row{
		TS:           t.now().Format("2006-01-02T15:04:05.000"),
		Span:         sp.name,
		InputLen:     len(sp.inputs),
		CtxLen:       len(ids),
		RetrievedIDs: ids,
		OutputLen:    len(output),
		LatencyMS:    float64(latency.Microseconds()) / 1000.0,
	}
	t.appendRow(row)
}

// Record is a one-shot convenience wrapping StartSpan/EndSpan.
func (t *Tracer) Record(spanName, inputs string, retrieved []memory.RetrievedItem, output string) {
	if t == nil || t.disabled {
		return
	}
	id := t.StartSpan(spanName, inputs)
	t.EndSpan(id, retrieved, output)
}

// appendRow writes one JSONL line, creating the directory as needed.
// Errors are logged and swallowed.
func (t *Tracer) appendRow(row Row) {
	line, err := json.Marshal(row)
	if err != nil {
		t.logger.Warn("trace row marshal failed", zap.Error(err))
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if dir := filepath.Dir(t.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.logger.Warn("trace dir create failed", zap.Error(err))
			return
		}
	}
	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.logger.Warn("trace sink open failed", zap.Error(err))
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		t.logger.Warn("trace write failed", zap.Error(err))
	}
}

// RetrievedIDs normalizes retrieved items to stable identifiers:
// id, then source, matching what a downstream sink needs to join on.
func RetrievedIDs(items []memory.RetrievedItem) []string {
	ids := make([]string, 0, len(items))
	for i := range items {
		ids = append(ids, items[i].Identifier())
	}
	return ids
}
