package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kubeagle/kubeagle/internal/model"
)

func ownedPod(name string, ownerKind, ownerName string, labels map[string]string) *corev1.Pod {
	ctrl := true
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: "default",
			Labels:    labels,
		},
	}
	if ownerKind != "" {
		pod.OwnerReferences = []metav1.OwnerReference{{
			Kind:       ownerKind,
			Name:       ownerName,
			Controller: &ctrl,
		}}
	}
	return pod
}

func TestPodWorkloadKeysReplicaSetWithHashLabel(t *testing.T) {
	pod := ownedPod("api-7f9c5d4b8f-x2x4z", "ReplicaSet", "api-7f9c5d4b8f",
		map[string]string{"pod-template-hash": "7f9c5d4b8f"})

	keys := PodWorkloadKeys(pod)
	assert.Contains(t, keys, model.WorkloadKey{Kind: "Deployment", Name: "api"})
}

func TestPodWorkloadKeysReplicaSetWithoutHashLabel(t *testing.T) {
	pod := ownedPod("web-front-6b9d7c-abcde", "ReplicaSet", "web-front-6b9d7c", nil)

	keys := PodWorkloadKeys(pod)
	assert.Contains(t, keys, model.WorkloadKey{Kind: "Deployment", Name: "web-front"})
}

func TestPodWorkloadKeysStatefulSetOrdinal(t *testing.T) {
	pod := ownedPod("kafka-2", "StatefulSet", "kafka", nil)

	keys := PodWorkloadKeys(pod)
	assert.Contains(t, keys, model.WorkloadKey{Kind: "StatefulSet", Name: "kafka"})
}

func TestPodWorkloadKeysStatefulSetNameFallback(t *testing.T) {
	// No owner reference at all: the ordinal suffix still identifies the set.
	pod := ownedPod("redis-cache-0", "", "", nil)

	keys := PodWorkloadKeys(pod)
	assert.Contains(t, keys, model.WorkloadKey{Kind: "StatefulSet", Name: "redis-cache"})
}

func TestPodWorkloadKeysJobAndInferredCronJob(t *testing.T) {
	pod := ownedPod("backup-29381760-k9f2d", "Job", "backup-29381760", nil)

	keys := PodWorkloadKeys(pod)
	assert.Contains(t, keys, model.WorkloadKey{Kind: "Job", Name: "backup-29381760"})
	assert.Contains(t, keys, model.WorkloadKey{Kind: "CronJob", Name: "backup"})
}

func TestPodWorkloadKeysJobNameLabel(t *testing.T) {
	pod := ownedPod("orphan-pod", "", "", map[string]string{"job-name": "sync-29381700"})

	keys := PodWorkloadKeys(pod)
	assert.Contains(t, keys, model.WorkloadKey{Kind: "Job", Name: "sync-29381700"})
	assert.Contains(t, keys, model.WorkloadKey{Kind: "CronJob", Name: "sync"})
}

func TestPodWorkloadKeysDirectOwners(t *testing.T) {
	ds := ownedPod("node-agent-w8d2k", "DaemonSet", "node-agent", nil)
	assert.Contains(t, PodWorkloadKeys(ds), model.WorkloadKey{Kind: "DaemonSet", Name: "node-agent"})

	// Lowercase plural kinds normalize too.
	dep := ownedPod("api-7f9c5d4b8f-x2x4z", "replicasets.apps", "api-7f9c5d4b8f",
		map[string]string{"pod-template-hash": "7f9c5d4b8f"})
	assert.Contains(t, PodWorkloadKeys(dep), model.WorkloadKey{Kind: "Deployment", Name: "api"})
}

func TestPodWorkloadKeysDeploymentNameFallbackGuards(t *testing.T) {
	// Suffix segments too short to be generated hashes: no deployment key.
	pod := ownedPod("my-app-v2", "", "", nil)
	for _, key := range PodWorkloadKeys(pod) {
		assert.NotEqual(t, "Deployment", key.Kind)
	}
}

func TestCanonicalWorkloadKind(t *testing.T) {
	assert.Equal(t, "Deployment", canonicalWorkloadKind("deployments.apps"))
	assert.Equal(t, "CronJob", canonicalWorkloadKind("cronjob.batch"))
	assert.Equal(t, "Node", canonicalWorkloadKind("Node"))
}
