package storage

import (
	"encoding/json"
	"fmt"

	"github.com/poiesic/vecsync/core"
)

// MarshalProgress serializes a LoadProgress record to bytes.
// Progress records are stored as JSON because they are also returned
// verbatim on the operator status surface.
func MarshalProgress(progress *core.LoadProgress) ([]byte, error) {
	data, err := json.Marshal(progress)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalProgress deserializes a LoadProgress record from bytes.
func UnmarshalProgress(data []byte) (*core.LoadProgress, error) {
	var progress core.LoadProgress
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &progress, nil
}
