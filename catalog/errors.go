package catalog

import "errors"

var (
	// ErrItemNotFound indicates the catalog service has no item with the requested ID.
	ErrItemNotFound = errors.New("catalog item not found")

	// ErrBadResponse indicates the catalog service returned an unusable response.
	ErrBadResponse = errors.New("unexpected catalog response")
)
