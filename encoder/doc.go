// Package encoder defines the text-embedding capability consumed by the
// semantic store, plus two implementations: a deterministic offline hash
// encoder for demos and tests, and an OpenAI-compatible HTTP provider.
package encoder
