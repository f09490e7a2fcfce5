// Package catalog provides access to the external catalog service that is
// the source of truth for item data.
//
// The package exposes a paged read interface plus single-item lookup. It
// deliberately carries no retry logic: the ingestion loaders and the
// reconciler each have their own policy for what a failed fetch means.
package catalog
