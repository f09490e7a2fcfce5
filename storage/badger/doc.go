// Package badger implements the storage interfaces on BadgerDB, an
// embedded key-value store. Progress records are kept under a
// "progress:" key prefix.
package badger
