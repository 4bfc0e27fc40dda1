// Package memory implements the hybrid memory engine: a bounded, time-ordered
// episodic event log, a content-addressable semantic vector store, and a hybrid
// retriever that merges, deduplicates, optionally reranks, and budget-trims the
// results of both.
//
// The stores assume a single concurrent writer per instance and perform no
// internal locking; callers that need concurrent access must serialize writes
// (Log, Upsert) against reads (Fetch, TopK, Search) externally.
package memory
