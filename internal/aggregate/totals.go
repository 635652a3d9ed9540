package aggregate

import (
	"sort"

	corev1 "k8s.io/api/core/v1"

	"github.com/kubeagle/kubeagle/internal/model"
	"github.com/kubeagle/kubeagle/internal/quantity"
)

func podCountsTowardNode(pod *corev1.Pod) bool {
	if pod.Spec.NodeName == "" {
		return false
	}
	return pod.Status.Phase == corev1.PodRunning || pod.Status.Phase == corev1.PodPending
}

// ComputeNodeTotals accumulates effective pod resources per node for
// pods in phase Running or Pending.
func ComputeNodeTotals(pods []corev1.Pod) map[string]model.NodeTotals {
	totals := make(map[string]model.NodeTotals)
	for i := range pods {
		pod := &pods[i]
		if !podCountsTowardNode(pod) {
			continue
		}
		eff := EffectivePodResources(pod)
		t := totals[pod.Spec.NodeName]
		t.Request.Add(eff.Request)
		t.Limit.Add(eff.Limit)
		t.PodCount++
		totals[pod.Spec.NodeName] = t
	}
	return totals
}

// MergeNodeTotals merges one namespace's partial totals into the running
// aggregate and returns the sorted names of nodes it touched, so callers
// re-render only those instead of rebuilding everything per namespace.
func MergeNodeTotals(agg, delta map[string]model.NodeTotals) []string {
	touched := make([]string, 0, len(delta))
	for name, d := range delta {
		t := agg[name]
		t.Merge(d)
		agg[name] = t
		touched = append(touched, name)
	}
	sort.Strings(touched)
	return touched
}

// ApplyNodeTotals writes totals and the derived allocation percentages
// onto the node snapshots.
func ApplyNodeTotals(nodes []*model.NodeInfo, totals map[string]model.NodeTotals) {
	for _, n := range nodes {
		t := totals[n.Name]
		n.Totals = t
		n.CPURequestPct = quantity.Percent(t.Request.CPUMillicores, n.AllocatableCPUMillicores)
		n.CPULimitPct = quantity.Percent(t.Limit.CPUMillicores, n.AllocatableCPUMillicores)
		n.MemoryRequestPct = quantity.Percent(t.Request.MemoryBytes, n.AllocatableMemoryBytes)
		n.MemoryLimitPct = quantity.Percent(t.Limit.MemoryBytes, n.AllocatableMemoryBytes)
		n.PodPct = quantity.Percent(float64(t.PodCount), float64(n.MaxPods))
	}
}

// ApplyNodeUsage writes sampled real usage onto matching node snapshots.
func ApplyNodeUsage(nodes []*model.NodeInfo, usage map[string]model.ResourcePair) {
	for _, n := range nodes {
		u, ok := usage[n.Name]
		if !ok {
			continue
		}
		n.UsageCPUMillicores = u.CPUMillicores
		n.UsageMemoryBytes = u.MemoryBytes
		n.CPUUsagePct = quantity.Percent(u.CPUMillicores, n.AllocatableCPUMillicores)
		n.MemoryUsagePct = quantity.Percent(u.MemoryBytes, n.AllocatableMemoryBytes)
		n.HasUsage = true
	}
}
