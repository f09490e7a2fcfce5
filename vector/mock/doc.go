// Package mock provides an in-memory test double for the vector store.
package mock
