package aggregate

import (
	corev1 "k8s.io/api/core/v1"

	"github.com/kubeagle/kubeagle/internal/model"
)

// Classification labels checked in order; first non-empty wins.
var (
	nodeGroupLabels = []string{
		"eks.amazonaws.com/nodegroup",
		"alpha.eksctl.io/nodegroup-name",
		"karpenter.sh/nodepool",
		"karpenter.sh/provisioner-name",
		"kops.k8s.io/instancegroup",
	}
	instanceTypeLabels = []string{
		"node.kubernetes.io/instance-type",
		"beta.kubernetes.io/instance-type",
	}
	zoneLabels = []string{
		"topology.kubernetes.io/zone",
		"failure-domain.beta.kubernetes.io/zone",
	}
)

const (
	unknownLabel   = "Unknown"
	defaultMaxPods = 110
)

func labelValue(labels map[string]string, keys []string) string {
	for _, key := range keys {
		if v := labels[key]; v != "" {
			return v
		}
	}
	return unknownLabel
}

// ParseNode converts a raw node into its snapshot form. Totals and
// percentages are filled separately once pod totals are known.
func ParseNode(node *corev1.Node) *model.NodeInfo {
	labels := node.Labels

	info := &model.NodeInfo{
		Name:           node.Name,
		NodeGroup:      labelValue(labels, nodeGroupLabels),
		InstanceType:   labelValue(labels, instanceTypeLabels),
		Zone:           labelValue(labels, zoneLabels),
		KubeletVersion: node.Status.NodeInfo.KubeletVersion,
		OSImage:        node.Status.NodeInfo.OSImage,
		Created:        node.CreationTimestamp.Time,
		Cordoned:       node.Spec.Unschedulable,
		Labels:         labels,
		MaxPods:        defaultMaxPods,
	}
	if info.KubeletVersion == "" {
		info.KubeletVersion = unknownLabel
	}

	if cpu, ok := node.Status.Allocatable[corev1.ResourceCPU]; ok {
		info.AllocatableCPUMillicores = float64(cpu.MilliValue())
	}
	if mem, ok := node.Status.Allocatable[corev1.ResourceMemory]; ok {
		info.AllocatableMemoryBytes = float64(mem.Value())
	}
	if pods, ok := node.Status.Allocatable[corev1.ResourcePods]; ok && pods.Value() > 0 {
		info.MaxPods = int(pods.Value())
	}

	info.Conditions = make(map[string]string, len(node.Status.Conditions))
	for _, cond := range node.Status.Conditions {
		info.Conditions[string(cond.Type)] = string(cond.Status)
	}
	info.Ready = info.Conditions[string(corev1.NodeReady)] == "True"
	info.Healthy = info.Ready
	for _, pressure := range []string{"MemoryPressure", "DiskPressure", "PIDPressure", "NetworkUnavailable"} {
		if info.Conditions[pressure] == "True" {
			info.Healthy = false
		}
	}

	for _, taint := range node.Spec.Taints {
		info.Taints = append(info.Taints, model.TaintInfo{
			Key:    taint.Key,
			Value:  taint.Value,
			Effect: string(taint.Effect),
		})
	}
	return info
}

// ParseNodes converts a node list, preserving order.
func ParseNodes(nodes []corev1.Node) []*model.NodeInfo {
	out := make([]*model.NodeInfo, 0, len(nodes))
	for i := range nodes {
		out = append(out, ParseNode(&nodes[i]))
	}
	return out
}
