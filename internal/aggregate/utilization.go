package aggregate

import (
	"github.com/kubeagle/kubeagle/internal/quantity"
)

// NeighborPressure is the share of node pressure attributable to tenants
// other than the inspected workload, clamped at zero.
func NeighborPressure(nodeTotalPct, workloadOwnPct float64) float64 {
	if p := nodeTotalPct - workloadOwnPct; p > 0 {
		return p
	}
	return 0
}

// UtilizationStats aggregates percentage samples, e.g. across all nodes
// a workload's pods landed on, into a (max, avg, p95) triple.
func UtilizationStats(values []float64) quantity.Stats {
	return quantity.Summarize(values)
}
