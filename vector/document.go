package vector

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/vecsync/core"
)

// DocTypeProduct is the discriminator stored in metadata "type" marking a
// document as catalog item data.
const DocTypeProduct = "product"

// DocumentFromItem converts one catalog item into an embeddable document.
// The conversion is deterministic and side-effect-free: absent fields are
// omitted from the text body but always present as metadata keys with nil
// values, so a degenerate record still yields a usable document.
//
// The document ID is a content hash, so re-ingesting an unchanged item
// produces the same ID and overwrites in place instead of duplicating.
func DocumentFromItem(item *core.CatalogItem) Document {
	var b strings.Builder
	fmt.Fprintf(&b, "Product name: %s\n", item.Name)
	if item.Category != nil {
		fmt.Fprintf(&b, "Category: %s\n", *item.Category)
	}
	if item.Brand != nil {
		fmt.Fprintf(&b, "Brand: %s\n", *item.Brand)
	}
	if item.Price != nil {
		fmt.Fprintf(&b, "Price: %d\n", *item.Price)
	}
	if item.Spec != nil {
		fmt.Fprintf(&b, "Specification: %s\n", *item.Spec)
	}
	if item.Stock != nil {
		fmt.Fprintf(&b, "Stock: %d\n", *item.Stock)
	}
	if item.Sold != nil {
		fmt.Fprintf(&b, "Sold: %d\n", *item.Sold)
	}
	if item.CommentCount != nil {
		fmt.Fprintf(&b, "Comments: %d\n", *item.CommentCount)
	}

	content := strings.TrimSpace(b.String())
	itemID := strconv.FormatInt(item.ID, 10)

	metadata := map[string]any{
		"id":           itemID,
		"name":         item.Name,
		"category":     deref(item.Category),
		"brand":        deref(item.Brand),
		"price":        deref(item.Price),
		"stock":        deref(item.Stock),
		"image":        deref(item.Image),
		"spec":         deref(item.Spec),
		"sold":         deref(item.Sold),
		"commentCount": deref(item.CommentCount),
		"isAD":         deref(item.IsAD),
		"status":       deref(item.Status),
		"type":         DocTypeProduct,
	}

	return Document{
		ID:       fmt.Sprintf("%016x", uint64(core.IDFromContent(itemID+"\x00"+content))),
		Content:  content,
		Metadata: metadata,
	}
}

// deref unwraps an optional field into a metadata value, keeping nil for
// absent fields so every metadata key is always present.
func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
