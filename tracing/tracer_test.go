package tracing

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/principia-agentica/hybrid-memory-talk/memory"
)

func readRows(t *testing.T, path string) []Row {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open trace file: %v", err)
	}
	defer f.Close()

	var rows []Row
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var row Row
		if err := json.Unmarshal(sc.Bytes(), &row); err != nil {
			t.Fatalf("bad JSONL line %q: %v", sc.Text(), err)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return rows
}

func TestTracer_WritesOneRowPerSpan(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "traces.jsonl")
	clock := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	tr := New(Config{Path: path, Now: func() time.Time {
		clock = clock.Add(5 * time.Millisecond)
		return clock
	}}, nil)

	retrieved := []memory.RetrievedItem{
		{Kind: memory.KindEpisodic, Source: "episodic@x#user_turn", Event: &memory.Event{ID: "e1"}},
		{Kind: memory.KindSemantic, Source: "policy.md#password", Document: &memory.Document{ID: "d1"}},
	}

	id := tr.StartSpan("retrieve", "forgot my password")
	tr.EndSpan(id, retrieved, "the answer")

	rows := readRows(t, path)
	if len(rows) != 1 {
		t.Fatalf("want 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.Span != "retrieve" {
		t.Fatalf("span name: %q", row.Span)
	}
	if row.InputLen != len("forgot my password") {
		t.Fatalf("input_len: %d", row.InputLen)
	}
	if row.OutputLen != len("the answer") {
		t.Fatalf("output_len: %d", row.OutputLen)
	}
	if row.CtxLen != 2 || len(row.RetrievedIDs) != 2 {
		t.Fatalf("ctx: %d ids %v", row.CtxLen, row.RetrievedIDs)
	}
	if row.RetrievedIDs[0] != "e1" || row.RetrievedIDs[1] != "d1" {
		t.Fatalf("ids not normalized: %v", row.RetrievedIDs)
	}
	if row.LatencyMS <= 0 {
		t.Fatalf("latency not measured: %v", row.LatencyMS)
	}
	if _, err := time.Parse("2006-01-02T15:04:05.000", row.TS); err != nil {
		t.Fatalf("timestamp format: %q", row.TS)
	}
}

func TestTracer_RecordAppendsRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "traces.jsonl")
	tr := New(Config{Path: path}, nil)

	tr.Record("qa", "q1", nil, "a1")
	tr.Record("qa", "q2", nil, "a2")

	rows := readRows(t, path)
	if len(rows) != 2 {
		t.Fatalf("want 2 rows, got %d", len(rows))
	}
}

func TestTracer_CreatesSinkDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "out", "traces.jsonl")
	tr := New(Config{Path: path}, nil)
	tr.Record("qa", "q", nil, "a")

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("sink not created: %v", err)
	}
}

func TestTracer_DisabledWritesNothing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "traces.jsonl")
	tr := New(Config{Path: path, Disabled: true}, nil)

	if id := tr.StartSpan("retrieve", "q"); id != "disabled" {
		t.Fatalf("disabled tracer should return the sentinel id, got %q", id)
	}
	tr.Record("qa", "q", nil, "a")

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("disabled tracer wrote a file")
	}
}

func TestTracer_NilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var tr *Tracer
	if id := tr.StartSpan("x", "y"); id != "disabled" {
		t.Fatalf("nil tracer id: %q", id)
	}
	tr.EndSpan("disabled", nil, "")
	tr.Record("x", "y", nil, "")
}

func TestTracer_UnknownSpanIDIsIgnored(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "traces.jsonl")
	tr := New(Config{Path: path}, nil)
	tr.EndSpan("never-started", nil, "out")

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("unknown span id should not produce a row")
	}
}

func TestTracer_MirrorsSpansThroughOTel(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	path := filepath.Join(t.TempDir(), "traces.jsonl")
	tr := New(Config{Path: path, OTel: provider.Tracer("test")}, nil)

	tr.Record("retrieve", "question", []memory.RetrievedItem{
		{Source: "policy.md#password", Document: &memory.Document{ID: "d1"}},
	}, "answer")

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("want 1 otel span, got %d", len(spans))
	}
	if spans[0].Name != "retrieve" {
		t.Fatalf("span name: %q", spans[0].Name)
	}
	attrs := map[string]int64{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInt64()
	}
	if attrs["ctx_len"] != 1 || attrs["input_len"] != int64(len("question")) {
		t.Fatalf("attributes: %v", attrs)
	}
}
