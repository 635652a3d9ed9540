package aggregate

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"

	"github.com/kubeagle/kubeagle/internal/model"
)

const (
	// DefaultEventWindow is the lookback applied to warning counters.
	DefaultEventWindow = 15 * time.Minute

	// MaxRecentEvents bounds the retained per-summary event list.
	MaxRecentEvents = 50
)

// categorize maps an event onto one of the tracked categories, or ""
// when the event is noise for our purposes.
func categorize(reason, message string) string {
	switch reason {
	case "OOMKilled", "OOMKilling", "SystemOOM":
		return model.EventCategoryOOM
	case "NodeNotReady":
		return model.EventCategoryNodeNotReady
	case "FailedScheduling":
		return model.EventCategoryFailedScheduling
	case "BackOff", "CrashLoopBackOff", "ImagePullBackOff":
		return model.EventCategoryBackOff
	case "Unhealthy":
		return model.EventCategoryUnhealthy
	case "FailedMount", "FailedAttachVolume":
		return model.EventCategoryFailedMount
	case "Evicted", "Evicting":
		return model.EventCategoryEvicted
	}
	if strings.Contains(message, "OOMKilled") {
		return model.EventCategoryOOM
	}
	return ""
}

// eventCount resolves the occurrence total across the three places the
// API reports it, never below one.
func eventCount(ev *corev1.Event) int32 {
	count := ev.Count
	if count <= 0 && ev.Series != nil {
		count = ev.Series.Count
	}
	if count < 1 {
		count = 1
	}
	return count
}

func eventLastSeen(ev *corev1.Event) time.Time {
	if !ev.LastTimestamp.IsZero() {
		return ev.LastTimestamp.Time
	}
	if ev.Series != nil && !ev.Series.LastObservedTime.IsZero() {
		return ev.Series.LastObservedTime.Time
	}
	if !ev.EventTime.IsZero() {
		return ev.EventTime.Time
	}
	return ev.FirstTimestamp.Time
}

func eventFirstSeen(ev *corev1.Event) time.Time {
	if !ev.FirstTimestamp.IsZero() {
		return ev.FirstTimestamp.Time
	}
	if !ev.EventTime.IsZero() {
		return ev.EventTime.Time
	}
	return time.Time{}
}

// countInWindow estimates how many of a repeated event's occurrences
// fall inside [cutoff, now] by linear interpolation over the
// first-seen..last-seen span.
func countInWindow(total int32, firstSeen, lastSeen, cutoff time.Time) int32 {
	if total <= 1 {
		return total
	}
	if lastSeen.Before(cutoff) {
		return 0
	}
	if firstSeen.IsZero() || !firstSeen.Before(cutoff) {
		return total
	}
	span := lastSeen.Sub(firstSeen)
	if span <= 0 {
		return total
	}
	overlap := lastSeen.Sub(cutoff)
	est := int32(math.Ceil(float64(total) * overlap.Seconds() / span.Seconds()))
	if est < 1 {
		est = 1
	}
	if est > total {
		est = total
	}
	return est
}

// BuildEventSummary derives category counters and a bounded recent list
// from raw warning events, counting only occurrences estimated to fall
// inside the window ending at now.
func BuildEventSummary(events []corev1.Event, window time.Duration, now time.Time) *model.EventSummary {
	if window <= 0 {
		window = DefaultEventWindow
	}
	cutoff := now.Add(-window)

	summary := model.NewEventSummary(window)
	summary.GeneratedAt = now

	for i := range events {
		ev := &events[i]
		if ev.Type != corev1.EventTypeWarning {
			continue
		}
		lastSeen := eventLastSeen(ev)
		if lastSeen.IsZero() || lastSeen.Before(cutoff) {
			continue
		}
		total := eventCount(ev)
		windowed := countInWindow(total, eventFirstSeen(ev), lastSeen, cutoff)
		if windowed == 0 {
			continue
		}
		summary.TotalWarnings += int(windowed)

		category := categorize(ev.Reason, ev.Message)
		if category == "" {
			continue
		}
		summary.Categories[category] += int(windowed)
		summary.Recent = append(summary.Recent, &model.CriticalEvent{
			Category:    category,
			Reason:      ev.Reason,
			Message:     ev.Message,
			Namespace:   ev.InvolvedObject.Namespace,
			Object:      fmt.Sprintf("%s/%s", ev.InvolvedObject.Kind, ev.InvolvedObject.Name),
			Count:       total,
			FirstSeen:   eventFirstSeen(ev),
			LastSeen:    lastSeen,
			WindowCount: windowed,
		})
	}

	sort.SliceStable(summary.Recent, func(i, j int) bool {
		return summary.Recent[i].LastSeen.After(summary.Recent[j].LastSeen)
	})
	if len(summary.Recent) > MaxRecentEvents {
		summary.Recent = summary.Recent[:MaxRecentEvents]
	}
	return summary
}
