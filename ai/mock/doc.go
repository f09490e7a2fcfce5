// Package mock provides a test double for the ai.Embedder interface.
//
// The mock returns deterministic vectors derived from a text hash, so tests
// run without external AI services and produce stable results.
package mock
