package kubecli

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Timeout budgets. Process timeouts must exceed the apiserver-side
// --request-timeout so kubectl gets a chance to fail cleanly first.
const (
	ClusterRequestTimeout       = "30s"
	WarningEventsRequestTimeout = ClusterRequestTimeout
	NodePodEnrichRequestTimeout = "15s"
	TopMetricsRequestTimeout    = "20s"

	KubectlCommandTimeout = 45 * time.Second
	HelmCommandTimeout    = 30 * time.Second

	// Full all-namespace event queries can be massive on busy clusters;
	// a short budget fails over quickly to the warning-only query.
	fullEventsTimeout = 20 * time.Second
)

// IsFullEventsQuery reports whether args represent the unfiltered
// all-namespaces event fetch.
func IsFullEventsQuery(args []string) bool {
	if len(args) < 5 || args[0] != "get" || args[1] != "events" {
		return false
	}
	if !contains(args, "--all-namespaces") || !contains(args, "-o") || !contains(args, "json") {
		return false
	}
	for _, part := range args {
		if strings.HasPrefix(part, "--field-selector=") {
			return false
		}
	}
	return true
}

// IsWarningEventsQuery reports whether args represent the warning-only
// events fetch.
func IsWarningEventsQuery(args []string) bool {
	return len(args) >= 5 &&
		args[0] == "get" && args[1] == "events" &&
		contains(args, "--all-namespaces") &&
		contains(args, "--field-selector=type=Warning")
}

// IsPodsQuery reports whether args represent a pod inventory fetch,
// either all-namespaces or namespace-scoped.
func IsPodsQuery(args []string) bool {
	if len(args) < 4 || args[0] != "get" || args[1] != "pods" {
		return false
	}
	hasScope := contains(args, "-A")
	if !hasScope {
		for i, part := range args {
			if part == "-n" && i+1 < len(args) {
				hasScope = true
				break
			}
		}
	}
	return hasScope && contains(args, "-o") && contains(args, "json")
}

// WarningEventsArgs rewrites a full events query into the warning-only
// chunked fallback with an adjusted request timeout.
func WarningEventsArgs(args []string) []string {
	out := make([]string, 0, len(args)+3)
	for _, part := range args {
		if strings.HasPrefix(part, "--request-timeout=") {
			continue
		}
		out = append(out, part)
	}
	out = append(out,
		"--field-selector=type=Warning",
		"--chunk-size=200",
		"--request-timeout="+WarningEventsRequestTimeout,
	)
	return out
}

// requestTimeout parses a --request-timeout flag out of args.
func requestTimeout(args []string) (time.Duration, bool) {
	const prefix = "--request-timeout="
	for _, part := range args {
		if !strings.HasPrefix(part, prefix) {
			continue
		}
		value := strings.ToLower(strings.TrimSpace(part[len(prefix):]))
		value = strings.TrimSuffix(value, "s")
		if value == "" {
			return 0, false
		}
		seconds, err := strconv.ParseFloat(value, 64)
		if err != nil || seconds <= 0 {
			continue
		}
		return time.Duration(math.Ceil(seconds)) * time.Second, true
	}
	return 0, false
}

// TimeoutForArgs chooses a process timeout from the command's shape.
// Pod and warning-event queries carrying an explicit request timeout get
// generous budgets; everything else fails fast so an unreachable cluster
// does not tie up the limiter.
func TimeoutForArgs(args []string) time.Duration {
	if IsFullEventsQuery(args) {
		return fullEventsTimeout
	}

	reqTimeout, ok := requestTimeout(args)
	if !ok {
		return minDuration(KubectlCommandTimeout, 25*time.Second)
	}

	base := maxDuration(20*time.Second, reqTimeout+10*time.Second)
	switch {
	case IsPodsQuery(args):
		switch {
		case reqTimeout <= 20*time.Second:
			return maxDuration(base, 25*time.Second)
		case reqTimeout <= 30*time.Second:
			return maxDuration(base, 70*time.Second)
		default:
			return maxDuration(base, 90*time.Second)
		}
	case IsWarningEventsQuery(args):
		if reqTimeout <= 30*time.Second {
			return maxDuration(base, 60*time.Second)
		}
		return maxDuration(base, 90*time.Second)
	default:
		return minDuration(KubectlCommandTimeout, base)
	}
}

func contains(args []string, want string) bool {
	for _, part := range args {
		if part == want {
			return true
		}
	}
	return false
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
