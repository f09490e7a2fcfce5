// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidSyncEvent indicates a SyncEvent failed validation.
	ErrInvalidSyncEvent = errors.New("invalid sync event")

	// ErrMissingItemID indicates an event without a usable item ID.
	ErrMissingItemID = errors.New("item id must be positive")

	// ErrUnknownEventType indicates an EventType outside CREATE/UPDATE/DELETE.
	ErrUnknownEventType = errors.New("unknown event type")
)
