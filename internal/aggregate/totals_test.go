package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/kubeagle/kubeagle/internal/model"
)

func schedPod(name, node string, phase corev1.PodPhase, cpuReq string) corev1.Pod {
	return corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default"},
		Spec: corev1.PodSpec{
			NodeName:   node,
			Containers: []corev1.Container{container("app", cpuReq, "", "", "")},
		},
		Status: corev1.PodStatus{Phase: phase},
	}
}

func TestComputeNodeTotalsSkipsUnscheduledAndTerminal(t *testing.T) {
	pods := []corev1.Pod{
		schedPod("a", "node-1", corev1.PodRunning, "100m"),
		schedPod("b", "node-1", corev1.PodPending, "200m"),
		schedPod("c", "", corev1.PodPending, "400m"),
		schedPod("d", "node-1", corev1.PodSucceeded, "800m"),
	}

	totals := ComputeNodeTotals(pods)
	assert.Len(t, totals, 1)
	assert.Equal(t, 300.0, totals["node-1"].Request.CPUMillicores)
	assert.Equal(t, 2, totals["node-1"].PodCount)
}

func TestMergeNodeTotalsReturnsTouchedNodes(t *testing.T) {
	agg := map[string]model.NodeTotals{
		"node-1": {Request: model.ResourcePair{CPUMillicores: 100}, PodCount: 1},
	}
	delta := map[string]model.NodeTotals{
		"node-2": {Request: model.ResourcePair{CPUMillicores: 50}, PodCount: 1},
		"node-1": {Request: model.ResourcePair{CPUMillicores: 25}, PodCount: 2},
	}

	touched := MergeNodeTotals(agg, delta)
	assert.Equal(t, []string{"node-1", "node-2"}, touched)
	assert.Equal(t, 125.0, agg["node-1"].Request.CPUMillicores)
	assert.Equal(t, 3, agg["node-1"].PodCount)
	assert.Equal(t, 50.0, agg["node-2"].Request.CPUMillicores)
}

func TestApplyNodeTotalsPercentages(t *testing.T) {
	node := &model.NodeInfo{
		Name:                     "node-1",
		AllocatableCPUMillicores: 4000,
		AllocatableMemoryBytes:   8 * 1024 * 1024 * 1024,
		MaxPods:                  110,
	}
	totals := map[string]model.NodeTotals{
		"node-1": {
			Request:  model.ResourcePair{CPUMillicores: 1000, MemoryBytes: 4 * 1024 * 1024 * 1024},
			PodCount: 55,
		},
	}

	ApplyNodeTotals([]*model.NodeInfo{node}, totals)
	assert.Equal(t, 25.0, node.CPURequestPct)
	assert.Equal(t, 50.0, node.MemoryRequestPct)
	assert.Equal(t, 50.0, node.PodPct)
}

func TestParseNodeClassificationAndHealth(t *testing.T) {
	raw := corev1.Node{
		ObjectMeta: metav1.ObjectMeta{
			Name: "ip-10-0-1-1",
			Labels: map[string]string{
				"karpenter.sh/nodepool":            "general",
				"node.kubernetes.io/instance-type": "m5.large",
				"topology.kubernetes.io/zone":      "eu-west-1a",
			},
		},
		Spec: corev1.NodeSpec{
			Taints: []corev1.Taint{{Key: "dedicated", Value: "batch", Effect: corev1.TaintEffectNoSchedule}},
		},
		Status: corev1.NodeStatus{
			Allocatable: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse("2"),
				corev1.ResourceMemory: resource.MustParse("4Gi"),
				corev1.ResourcePods:   resource.MustParse("58"),
			},
			NodeInfo: corev1.NodeSystemInfo{KubeletVersion: "v1.29.3"},
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeReady, Status: corev1.ConditionTrue},
				{Type: corev1.NodeMemoryPressure, Status: corev1.ConditionTrue},
			},
		},
	}

	info := ParseNode(&raw)
	assert.Equal(t, "general", info.NodeGroup)
	assert.Equal(t, "m5.large", info.InstanceType)
	assert.Equal(t, "eu-west-1a", info.Zone)
	assert.Equal(t, 2000.0, info.AllocatableCPUMillicores)
	assert.Equal(t, 58, info.MaxPods)
	assert.True(t, info.Ready)
	assert.False(t, info.Healthy, "memory pressure marks the node unhealthy")
	assert.Len(t, info.Taints, 1)
}

func TestParseNodeDefaults(t *testing.T) {
	info := ParseNode(&corev1.Node{})
	assert.Equal(t, "Unknown", info.NodeGroup)
	assert.Equal(t, "Unknown", info.InstanceType)
	assert.Equal(t, "Unknown", info.Zone)
	assert.Equal(t, 110, info.MaxPods)
	assert.False(t, info.Ready)
}
