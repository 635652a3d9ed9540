package aggregate

import (
	"sort"

	"github.com/kubeagle/kubeagle/internal/model"
	"github.com/kubeagle/kubeagle/internal/quantity"
)

var pressureConditions = []string{"MemoryPressure", "DiskPressure", "PIDPressure", "NetworkUnavailable"}

// AnalyzeNodes computes fleet distributions, per-group allocation and
// pod-count outliers from parsed node snapshots.
func AnalyzeNodes(nodes []*model.NodeInfo) *model.NodeAnalyses {
	a := &model.NodeAnalyses{
		ConditionCounts:  make(map[string]int),
		TaintCounts:      make(map[string]int),
		VersionCounts:    make(map[string]int),
		InstanceCounts:   make(map[string]int),
		ZoneCounts:       make(map[string]int),
		GroupAllocations: make(map[string]*model.GroupAllocation),
	}

	podCounts := make([]float64, 0, len(nodes))
	for _, n := range nodes {
		if !n.Ready {
			a.ConditionCounts["NotReady"]++
		}
		for _, cond := range pressureConditions {
			if n.Conditions[cond] == "True" {
				a.ConditionCounts[cond]++
			}
		}
		for _, taint := range n.Taints {
			a.TaintCounts[taint.Key]++
		}
		a.VersionCounts[n.KubeletVersion]++
		a.InstanceCounts[n.InstanceType]++
		a.ZoneCounts[n.Zone]++

		g := a.GroupAllocations[n.NodeGroup]
		if g == nil {
			g = &model.GroupAllocation{}
			a.GroupAllocations[n.NodeGroup] = g
		}
		g.NodeCount++
		g.PodCount += n.Totals.PodCount
		g.Allocatable.Add(model.ResourcePair{
			CPUMillicores: n.AllocatableCPUMillicores,
			MemoryBytes:   n.AllocatableMemoryBytes,
		})
		g.Requests.Add(n.Totals.Request)
		g.Limits.Add(n.Totals.Limit)

		podCounts = append(podCounts, float64(n.Totals.PodCount))
	}

	for _, g := range a.GroupAllocations {
		g.CPURequestPct = quantity.Percent(g.Requests.CPUMillicores, g.Allocatable.CPUMillicores)
		g.MemoryRequestPct = quantity.Percent(g.Requests.MemoryBytes, g.Allocatable.MemoryBytes)
	}

	a.PodCountP95 = quantity.Percentile95(podCounts)
	if a.PodCountP95 > 0 {
		for _, n := range nodes {
			if float64(n.Totals.PodCount) > a.PodCountP95 {
				a.HighPodNodes = append(a.HighPodNodes, n.Name)
			}
		}
		sort.Strings(a.HighPodNodes)
	}
	return a
}
