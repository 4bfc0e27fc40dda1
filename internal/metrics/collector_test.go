package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_ObserveRetrieval(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollector("test", reg, nil)

	c.ObserveRetrieval(50*time.Millisecond, 3, 2, 4, 1)
	c.ObserveRetrieval(10*time.Millisecond, 1, 1, 2, 0)

	if got := testutil.ToFloat64(c.retrievals); got != 2 {
		t.Fatalf("retrievals_total: %v", got)
	}
	if got := testutil.ToFloat64(c.retrievalItems.WithLabelValues("episodic")); got != 4 {
		t.Fatalf("episodic items: %v", got)
	}
	if got := testutil.ToFloat64(c.retrievalItems.WithLabelValues("semantic")); got != 3 {
		t.Fatalf("semantic items: %v", got)
	}
	if got := testutil.ToFloat64(c.trimmedItems); got != 1 {
		t.Fatalf("trimmed items: %v", got)
	}
}

func TestCollector_WriteCounters(t *testing.T) {
	t.Parallel()

	c := NewCollector("test", prometheus.NewRegistry(), nil)

	c.RecordEventLogged()
	c.RecordEventLogged()
	c.RecordUpsert()

	if got := testutil.ToFloat64(c.eventsLogged); got != 2 {
		t.Fatalf("events_logged_total: %v", got)
	}
	if got := testutil.ToFloat64(c.docsUpserted); got != 1 {
		t.Fatalf("documents_upserted_total: %v", got)
	}
}

func TestCollector_ToolCallOutcomes(t *testing.T) {
	t.Parallel()

	c := NewCollector("test", prometheus.NewRegistry(), nil)

	c.RecordToolCall("reset_password", true)
	c.RecordToolCall("reset_password", true)
	c.RecordToolCall("lookup_user", false)

	if got := testutil.ToFloat64(c.toolCalls.WithLabelValues("reset_password", "ok")); got != 2 {
		t.Fatalf("reset ok: %v", got)
	}
	if got := testutil.ToFloat64(c.toolCalls.WithLabelValues("lookup_user", "error")); got != 1 {
		t.Fatalf("lookup error: %v", got)
	}
}
