package aggregate

import (
	corev1 "k8s.io/api/core/v1"

	"github.com/kubeagle/kubeagle/internal/model"
)

// BuildPodDistribution counts scheduled pods per node, attributing them
// to node groups through the given node snapshots.
func BuildPodDistribution(pods []corev1.Pod, nodes []*model.NodeInfo) *model.PodDistribution {
	dist := model.NewPodDistribution()
	MergePodDistribution(dist, pods, nodes)
	return dist
}

// MergePodDistribution folds one batch of pods into an accumulating
// distribution, for the per-namespace streaming path.
func MergePodDistribution(dist *model.PodDistribution, pods []corev1.Pod, nodes []*model.NodeInfo) {
	groups := make(map[string]string, len(nodes))
	for _, n := range nodes {
		groups[n.Name] = n.NodeGroup
	}
	for i := range pods {
		pod := &pods[i]
		if !podCountsTowardNode(pod) {
			continue
		}
		dist.ByNode[pod.Spec.NodeName]++
		group := groups[pod.Spec.NodeName]
		if group == "" {
			group = unknownLabel
		}
		dist.ByGroup[group]++
		dist.Total++
	}
}
