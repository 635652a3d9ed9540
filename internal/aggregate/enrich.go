package aggregate

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"

	"github.com/kubeagle/kubeagle/internal/model"
	"github.com/kubeagle/kubeagle/internal/quantity"
)

// EnrichInput bundles the cross-source facts the enrichment pass joins
// onto workload rows.
type EnrichInput struct {
	Pods  []corev1.Pod
	Nodes []*model.NodeInfo
	PDBs  []*model.PDBInfo

	// PodUsage is keyed namespace/name; absent entries mean no sample.
	PodUsage map[string]model.ResourcePair
}

type podIndexKey struct {
	namespace string
	key       model.WorkloadKey
}

func podUsageKey(namespace, name string) string {
	return namespace + "/" + name
}

func indexPods(pods []corev1.Pod) map[podIndexKey][]*corev1.Pod {
	index := make(map[podIndexKey][]*corev1.Pod)
	for i := range pods {
		pod := &pods[i]
		for _, key := range PodWorkloadKeys(pod) {
			ik := podIndexKey{namespace: pod.Namespace, key: key}
			index[ik] = append(index[ik], pod)
		}
	}
	return index
}

func indexNodes(nodes []*model.NodeInfo) map[string]*model.NodeInfo {
	index := make(map[string]*model.NodeInfo, len(nodes))
	for _, n := range nodes {
		index[n.Name] = n
	}
	return index
}

// selectorMatches reports whether every selector label is present on the
// pod with the same value.
func selectorMatches(selector, podLabels map[string]string) bool {
	if len(selector) == 0 {
		return false
	}
	for k, v := range selector {
		if podLabels[k] != v {
			return false
		}
	}
	return true
}

func podRestartDiagnostics(pod *corev1.Pod) (restarts int32, reason string, exitCode int32, hasExit bool) {
	var worst int32 = -1
	for i := range pod.Status.ContainerStatuses {
		cs := &pod.Status.ContainerStatuses[i]
		restarts += cs.RestartCount
		if cs.RestartCount <= worst {
			continue
		}
		if term := cs.LastTerminationState.Terminated; term != nil {
			worst = cs.RestartCount
			reason = term.Reason
			exitCode = term.ExitCode
			hasExit = true
		}
	}
	return restarts, reason, exitCode, hasExit
}

func podIsReady(pod *corev1.Pod) bool {
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}

func enrichRow(row *model.WorkloadRow, pods []*corev1.Pod, nodes map[string]*model.NodeInfo, pdbs []*model.PDBInfo, usage map[string]model.ResourcePair) {
	row.PodCount = len(pods)
	row.Requests = model.ResourcePair{}
	row.Limits = model.ResourcePair{}
	row.RestartReasonCounts = make(map[string]int)
	row.TotalRestarts = 0
	row.Pods = row.Pods[:0]
	row.Nodes = row.Nodes[:0]

	type nodeAccum struct {
		podCount int
		requests model.ResourcePair
		limits   model.ResourcePair
		usage    model.ResourcePair
		hasUsage bool
	}
	perNode := make(map[string]*nodeAccum)

	for _, pod := range pods {
		eff := EffectivePodResources(pod)
		row.Requests.Add(eff.Request)
		row.Limits.Add(eff.Limit)

		restarts, reason, exitCode, hasExit := podRestartDiagnostics(pod)
		row.TotalRestarts += restarts
		if reason != "" && restarts > 0 {
			row.RestartReasonCounts[reason]++
		}

		detail := &model.AssignedPodDetail{
			Name:          pod.Name,
			Namespace:     pod.Namespace,
			NodeName:      pod.Spec.NodeName,
			Phase:         string(pod.Status.Phase),
			Ready:         podIsReady(pod),
			Restarts:      restarts,
			RestartReason: reason,
			LastExitCode:  exitCode,
			HasExitCode:   hasExit,
		}
		if u, ok := usage[podUsageKey(pod.Namespace, pod.Name)]; ok {
			detail.UsageCPUMillicores = u.CPUMillicores
			detail.UsageMemoryBytes = u.MemoryBytes
			detail.HasUsage = true
		}
		row.Pods = append(row.Pods, detail)

		if pod.Spec.NodeName == "" {
			continue
		}
		acc := perNode[pod.Spec.NodeName]
		if acc == nil {
			acc = &nodeAccum{}
			perNode[pod.Spec.NodeName] = acc
		}
		acc.podCount++
		acc.requests.Add(eff.Request)
		acc.limits.Add(eff.Limit)
		if detail.HasUsage {
			acc.usage.Add(model.ResourcePair{CPUMillicores: detail.UsageCPUMillicores, MemoryBytes: detail.UsageMemoryBytes})
			acc.hasUsage = true
		}
	}

	names := make([]string, 0, len(perNode))
	for name := range perNode {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		acc := perNode[name]
		node := nodes[name]
		detail := &model.AssignedNodeDetail{
			NodeName: name,
			PodCount: acc.podCount,
		}
		if node == nil {
			row.Nodes = append(row.Nodes, detail)
			continue
		}
		detail.NodeGroup = node.NodeGroup

		ownReqCPU := quantity.Percent(acc.requests.CPUMillicores, node.AllocatableCPUMillicores)
		ownReqMem := quantity.Percent(acc.requests.MemoryBytes, node.AllocatableMemoryBytes)
		detail.Requests = model.BasisMetrics{
			NodeCPUPct:        node.CPURequestPct,
			NodeMemoryPct:     node.MemoryRequestPct,
			OwnCPUPct:         ownReqCPU,
			OwnMemoryPct:      ownReqMem,
			NeighborCPUPct:    NeighborPressure(node.CPURequestPct, ownReqCPU),
			NeighborMemoryPct: NeighborPressure(node.MemoryRequestPct, ownReqMem),
		}

		ownLimCPU := quantity.Percent(acc.limits.CPUMillicores, node.AllocatableCPUMillicores)
		ownLimMem := quantity.Percent(acc.limits.MemoryBytes, node.AllocatableMemoryBytes)
		detail.Limits = model.BasisMetrics{
			NodeCPUPct:        node.CPULimitPct,
			NodeMemoryPct:     node.MemoryLimitPct,
			OwnCPUPct:         ownLimCPU,
			OwnMemoryPct:      ownLimMem,
			NeighborCPUPct:    NeighborPressure(node.CPULimitPct, ownLimCPU),
			NeighborMemoryPct: NeighborPressure(node.MemoryLimitPct, ownLimMem),
		}

		if node.HasUsage && acc.hasUsage {
			ownUseCPU := quantity.Percent(acc.usage.CPUMillicores, node.AllocatableCPUMillicores)
			ownUseMem := quantity.Percent(acc.usage.MemoryBytes, node.AllocatableMemoryBytes)
			detail.Usage = model.BasisMetrics{
				NodeCPUPct:        node.CPUUsagePct,
				NodeMemoryPct:     node.MemoryUsagePct,
				OwnCPUPct:         ownUseCPU,
				OwnMemoryPct:      ownUseMem,
				NeighborCPUPct:    NeighborPressure(node.CPUUsagePct, ownUseCPU),
				NeighborMemoryPct: NeighborPressure(node.MemoryUsagePct, ownUseMem),
			}
			detail.HasUsage = true
		}
		row.Nodes = append(row.Nodes, detail)
	}

	row.HasPDB = false
	for _, pdb := range pdbs {
		if pdb.Namespace != row.Namespace {
			continue
		}
		for _, pod := range pods {
			if selectorMatches(pdb.Selector, pod.Labels) {
				row.HasPDB = true
				break
			}
		}
		if row.HasPDB {
			break
		}
	}
}

// EnrichWorkloads joins pod, node, PDB and usage facts onto workload
// rows in place. Rows are independent; enrichment fans out over a small
// worker pool.
func EnrichWorkloads(ctx context.Context, rows []*model.WorkloadRow, input EnrichInput) error {
	podIndex := indexPods(input.Pods)
	nodeIndex := indexNodes(input.Nodes)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, row := range rows {
		row := row
		g.Go(func() error {
			pods := podIndex[podIndexKey{namespace: row.Namespace, key: row.Key()}]
			enrichRow(row, pods, nodeIndex, input.PDBs, input.PodUsage)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	markPodCountOutliers(rows)
	return nil
}

// markPodCountOutliers flags rows whose pod count exceeds the fleet p95.
func markPodCountOutliers(rows []*model.WorkloadRow) {
	counts := make([]float64, 0, len(rows))
	for _, row := range rows {
		if row.PodCount > 0 {
			counts = append(counts, float64(row.PodCount))
		}
	}
	p95 := quantity.Percentile95(counts)
	if p95 <= 0 {
		return
	}
	for _, row := range rows {
		row.PodCountOutlier = float64(row.PodCount) > p95
	}
}
