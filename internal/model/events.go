package model

import "time"

// Event categories tracked by the summary. Category membership is decided
// by reason/message matching in the aggregation layer.
const (
	EventCategoryOOM              = "OOMKilled"
	EventCategoryNodeNotReady     = "NodeNotReady"
	EventCategoryFailedScheduling = "FailedScheduling"
	EventCategoryBackOff          = "BackOff"
	EventCategoryUnhealthy        = "Unhealthy"
	EventCategoryFailedMount      = "FailedMount"
	EventCategoryEvicted          = "Evicted"
)

// CriticalEvent is one recent warning event retained in the bounded list.
type CriticalEvent struct {
	Category  string
	Reason    string
	Message   string
	Namespace string
	Object    string
	Count     int32
	FirstSeen time.Time
	LastSeen  time.Time

	// Estimated occurrences inside the summary's lookback window,
	// interpolated from first/last timestamps for repeated events.
	WindowCount int32
}

// EventSummary holds derived warning-event counters, rebuilt from the
// accumulating raw buffer as namespaces stream in.
type EventSummary struct {
	Categories    map[string]int
	TotalWarnings int
	Recent        []*CriticalEvent
	Window        time.Duration
	GeneratedAt   time.Time
}

// NewEventSummary returns an empty summary for the given lookback window.
func NewEventSummary(window time.Duration) *EventSummary {
	return &EventSummary{
		Categories: make(map[string]int),
		Window:     window,
	}
}
