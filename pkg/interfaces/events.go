package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names the notifications emitted by the runtime for presentation layers.
type EventType string

const (
	// EventListLoaded fires after a list committed a freshly fetched record set.
	EventListLoaded EventType = "listbind:loaded"
	// EventError fires whenever a list load or initialisation fails.
	EventError EventType = "listbind:error"
	// EventFilterChanged fires after a filter control updated a list's filters.
	EventFilterChanged EventType = "listbind:filter-changed"
)

// Event carries the payload of a runtime notification. Records are the
// decoded catalog records as plain maps; consumers must treat them as read-only.
type Event struct {
	ID         uuid.UUID
	Type       EventType
	ListID     string
	Records    []map[string]any
	TotalCount int
	Filters    map[string]any
	Err        error
	Context    string
	At         time.Time
}

// EventSink receives runtime notifications. Implementations must not block for long.
type EventSink interface {
	Emit(ctx context.Context, event Event)
}
