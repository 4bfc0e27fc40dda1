// Package metrics provides internal metrics collection for the memory
// engine. This package is internal and should not be imported by external
// projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Collector holds the engine's Prometheus instruments. It implements
// memory.RetrievalMetrics for the retriever and exposes direct counters for
// the write paths.
type Collector struct {
	eventsLogged   prometheus.Counter
	docsUpserted   prometheus.Counter
	retrievals     prometheus.Counter
	retrievalItems *prometheus.CounterVec
	trimmedItems   prometheus.Counter
	retrievalTime  prometheus.Histogram
	toolCalls      *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector creates and registers a collector on the given registerer.
// Tests pass their own prometheus.NewRegistry to stay isolated.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
		reg.MustRegister(c)
		return c
	}

	c := &Collector{
		eventsLogged: factory("events_logged_total", "Total events appended to episodic memory"),
		docsUpserted: factory("documents_upserted_total", "Total semantic document upserts"),
		retrievals:   factory("retrievals_total", "Total hybrid retrievals"),
		trimmedItems: factory("retrieval_items_trimmed_total", "Items dropped by token budget trimming"),
		logger:       logger.With(zap.String("component", "metrics")),
	}

	c.retrievalItems = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retrieval_items_total",
		Help:      "Retrieved items by kind before trimming",
	}, []string{"kind"})
	reg.MustRegister(c.retrievalItems)

	c.retrievalTime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "retrieval_duration_seconds",
		Help:      "Hybrid retrieval duration in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	reg.MustRegister(c.retrievalTime)

	c.toolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tool_calls_total",
		Help:      "Agent tool calls by tool and outcome",
	}, []string{"tool", "outcome"})
	reg.MustRegister(c.toolCalls)

	return c
}

// ObserveRetrieval implements memory.RetrievalMetrics.
func (c *Collector) ObserveRetrieval(d time.Duration, episodic, semantic, returned, trimmed int) {
	c.retrievals.Inc()
	c.retrievalTime.Observe(d.Seconds())
	c.retrievalItems.WithLabelValues("episodic").Add(float64(episodic))
	c.retrievalItems.WithLabelValues("semantic").Add(float64(semantic))
	c.trimmedItems.Add(float64(trimmed))
}

// RecordEventLogged counts one episodic append.
func (c *Collector) RecordEventLogged() { c.eventsLogged.Inc() }

// RecordUpsert counts one semantic upsert.
func (c *Collector) RecordUpsert() { c.docsUpserted.Inc() }

// RecordToolCall counts one agent tool invocation.
func (c *Collector) RecordToolCall(tool string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	c.toolCalls.WithLabelValues(tool, outcome).Inc()
}
