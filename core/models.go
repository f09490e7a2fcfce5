package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// CatalogItem is one raw record from the external catalog service.
// Optional fields are pointers so that absent upstream values survive the
// round trip instead of collapsing to zero values.
type CatalogItem struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Category     *string `json:"category,omitempty"`
	Brand        *string `json:"brand,omitempty"`
	Price        *int64  `json:"price,omitempty"`
	Stock        *int    `json:"stock,omitempty"`
	Image        *string `json:"image,omitempty"`
	Spec         *string `json:"spec,omitempty"`
	Sold         *int    `json:"sold,omitempty"`
	CommentCount *int    `json:"commentCount,omitempty"`
	IsAD         *bool   `json:"isAD,omitempty"`
	Status       *int    `json:"status,omitempty"`
}

// EventType classifies a catalog change event.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// SyncEvent represents a single create/update/delete notification for one
// catalog item. Events are ephemeral: constructed at emission and consumed
// once by the reconciler. Redelivery is the transport's responsibility.
type SyncEvent struct {
	ItemID     int64        `json:"itemId"`
	EventType  EventType    `json:"eventType"`
	Item       *CatalogItem `json:"itemData,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
	Source     string       `json:"source,omitempty"`
	OperatorID string       `json:"operatorId,omitempty"`
}

// NewSyncEvent creates a SyncEvent with the timestamp defaulted to now.
func NewSyncEvent(itemID int64, eventType EventType, item *CatalogItem) *SyncEvent {
	return &SyncEvent{
		ItemID:    itemID,
		EventType: eventType,
		Item:      item,
		Timestamp: time.Now().UTC(),
	}
}
