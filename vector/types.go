package vector

// Document is one embeddable unit written to the vector store.
// Metadata always carries the full set of catalog keys, with nil values for
// fields absent on the source record. The metadata "id" is the catalog item
// ID as a string for exact-match lookup; it is distinct from the store's
// own document ID.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]any
}

// MetadataID returns the catalog item ID carried in metadata, or "" when
// the document has none.
func (d Document) MetadataID() string {
	id, _ := d.Metadata["id"].(string)
	return id
}
