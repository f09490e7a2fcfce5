// Package vector defines the vector store capability consumed by the
// ingestion loaders and the sync reconciler, the document model written to
// it, and the error classification used by the retry ladders.
//
// The concrete Postgres/pgvector implementation lives in vector/pgvector;
// tests use the in-memory implementation in vector/mock.
package vector
