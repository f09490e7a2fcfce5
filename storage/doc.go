// Package storage defines the persistence interfaces for durable load
// progress. Concrete backends live in subpackages; storage/badger is the
// default implementation.
package storage
