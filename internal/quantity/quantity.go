// Package quantity converts Kubernetes resource quantity strings into
// normalized numeric units (cores, millicores, bytes) and computes the
// aggregate statistics used by the resource views.
package quantity

import (
	"math"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/api/resource"
)

// ParseCPU parses a CPU quantity string into cores.
//
// Handles nanocores ("500000000n"), microcores ("500000u"), millicores
// ("100m") and plain decimal core counts ("1.5"). Empty or unparseable
// input yields 0 rather than an error: raw payloads routinely omit
// resource fields and the aggregation passes treat absence as zero.
func ParseCPU(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return 0
	}
	return q.AsApproximateFloat64()
}

// ParseCPUMillicores parses a CPU quantity string into millicores.
func ParseCPUMillicores(s string) float64 {
	return ParseCPU(s) * 1000
}

// ParseMemory parses a memory quantity string into bytes.
//
// Handles the binary suffixes Ki/Mi/Gi/Ti and plain byte counts. Empty or
// unparseable input yields 0.
func ParseMemory(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return 0
	}
	return q.AsApproximateFloat64()
}

// Percentile95 returns the 95th percentile of values: the element at index
// max(0, ceil(n*0.95)-1) of the ascending sort. Empty input yields 0.
func Percentile95(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(math.Ceil(float64(len(sorted))*0.95)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > len(sorted)-1 {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Stats holds the (max, avg, p95) triple computed over a sample set.
type Stats struct {
	Max   float64
	Avg   float64
	P95   float64
	Count int
}

// Summarize computes max/avg/p95 over values. A zero-count Stats is
// returned for empty input.
func Summarize(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	sum := 0.0
	max := values[0]
	for _, v := range values {
		sum += v
		if v > max {
			max = v
		}
	}
	return Stats{
		Max:   max,
		Avg:   sum / float64(len(values)),
		P95:   Percentile95(values),
		Count: len(values),
	}
}

// Percent returns 100*used/allocatable, or 0 when allocatable is not
// positive.
func Percent(used, allocatable float64) float64 {
	if allocatable <= 0 {
		return 0
	}
	return used / allocatable * 100
}
