// Package reconcile applies catalog change events to the vector store,
// keeping indexed documents consistent with the catalog of record.
//
// The Reconciler favors availability over strictness: deletions of
// stale documents are best-effort, and an item that has vanished from
// the catalog by the time its event arrives is skipped rather than
// failed. Subpackage mq consumes events from an AMQP broker with
// bounded redelivery.
package reconcile
