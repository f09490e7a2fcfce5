package core

import "fmt"

// ValidateSyncEvent checks that an event is structurally usable by the
// reconciler. It does not require an embedded item payload; the reconciler
// resolves missing payloads from the catalog source.
func ValidateSyncEvent(event *SyncEvent) error {
	if event == nil {
		return ErrInvalidSyncEvent
	}
	if event.ItemID <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSyncEvent, ErrMissingItemID)
	}
	switch event.EventType {
	case EventCreate, EventUpdate, EventDelete:
		return nil
	default:
		return fmt.Errorf("%w: %w: %q", ErrInvalidSyncEvent, ErrUnknownEventType, event.EventType)
	}
}
