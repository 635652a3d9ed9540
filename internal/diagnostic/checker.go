// Package diagnostic classifies failures surfaced by external tool
// invocations: transient per-namespace errors worth one retry, timeouts,
// and connection-level failures that abort the fetch cycle.
package diagnostic

import (
	"context"
	"errors"
	"strings"
)

// Markers of transient per-namespace failures. These show up in kubectl
// stderr when an apiserver-side stream breaks mid-request; one retry with
// a short backoff usually succeeds.
var transientMarkers = []string{
	"malformed header",
	"missing http content-type",
	"connection reset by peer",
	"transport is closing",
}

// Markers of connection-level failures. A fetch cycle that hits one of
// these cannot make progress against the cluster at all.
var connectionMarkers = []string{
	"unable to connect",
	"connection refused",
	"no such host",
	"forbidden",
	"unauthorized",
	"certificate",
	"i/o timeout",
	"context was not found",
}

// IsTransientMessage reports whether a raw error string matches a known
// transient failure marker.
func IsTransientMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range transientMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is a retryable per-namespace failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return IsTransientMessage(err.Error())
}

// timeouter is implemented by the execution layer's timeout error.
type timeouter interface {
	Timeout() bool
}

// IsTimeout reports whether err represents an exceeded budget, either a
// context deadline or the execution layer's typed timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t timeouter
	if errors.As(err, &t) && t.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timed out") || strings.Contains(msg, "deadline exceeded")
}

// IsConnectionError reports whether the stderr text indicates the cluster
// is unreachable or rejecting us outright.
func IsConnectionError(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, marker := range connectionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

const maxSummaryLen = 200

// SummarizeConnectionError extracts a concise user-facing message from
// tool stderr, preferring lines that carry a known failure marker over
// whatever happens to come first.
func SummarizeConnectionError(stderr string) string {
	lines := strings.Split(stderr, "\n")

	var firstNonEmpty string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if firstNonEmpty == "" {
			firstNonEmpty = line
		}
		lower := strings.ToLower(line)
		for _, marker := range connectionMarkers {
			if strings.Contains(lower, marker) {
				return truncate(line, maxSummaryLen)
			}
		}
	}
	if firstNonEmpty == "" {
		return "cluster request failed"
	}
	return truncate(firstNonEmpty, maxSummaryLen)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
