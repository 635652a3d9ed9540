package aggregate

import (
	"strings"

	corev1 "k8s.io/api/core/v1"

	"github.com/kubeagle/kubeagle/internal/model"
)

var canonicalKinds = map[string]string{
	"deployment":       "Deployment",
	"deployments":      "Deployment",
	"deployment.apps":  "Deployment",
	"deployments.apps": "Deployment",
	"statefulset":       "StatefulSet",
	"statefulsets":      "StatefulSet",
	"statefulset.apps":  "StatefulSet",
	"statefulsets.apps": "StatefulSet",
	"daemonset":       "DaemonSet",
	"daemonsets":      "DaemonSet",
	"daemonset.apps":  "DaemonSet",
	"daemonsets.apps": "DaemonSet",
	"job":        "Job",
	"jobs":       "Job",
	"job.batch":  "Job",
	"jobs.batch": "Job",
	"cronjob":        "CronJob",
	"cronjobs":       "CronJob",
	"cronjob.batch":  "CronJob",
	"cronjobs.batch": "CronJob",
	"replicaset":       "ReplicaSet",
	"replicasets":      "ReplicaSet",
	"replicaset.apps":  "ReplicaSet",
	"replicasets.apps": "ReplicaSet",
}

func canonicalWorkloadKind(kind string) string {
	kind = strings.TrimSpace(kind)
	if canonical, ok := canonicalKinds[strings.ToLower(kind)]; ok {
		return canonical
	}
	return kind
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return len(s) > 0
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// inferDeploymentFromReplicaSet strips the generated suffix from a
// ReplicaSet name. The pod-template-hash label identifies the suffix
// exactly when present; otherwise the last dash segment is assumed.
func inferDeploymentFromReplicaSet(replicaSetName string, labels map[string]string) string {
	name := strings.TrimSpace(replicaSetName)
	if name == "" {
		return ""
	}
	if hash := strings.TrimSpace(labels["pod-template-hash"]); hash != "" && strings.HasSuffix(name, "-"+hash) {
		return name[:len(name)-len(hash)-1]
	}
	idx := strings.LastIndex(name, "-")
	if idx <= 0 {
		return ""
	}
	return name[:idx]
}

// inferDeploymentFromPodName recognizes the <deployment>-<rshash>-<podsuffix>
// shape: a hash-like two-segment suffix on the generated pod name.
func inferDeploymentFromPodName(podName string) string {
	parts := strings.Split(strings.TrimSpace(podName), "-")
	if len(parts) < 3 {
		return ""
	}
	rsHash := parts[len(parts)-2]
	podSuffix := parts[len(parts)-1]
	if len(rsHash) < 8 || len(podSuffix) < 4 {
		return ""
	}
	if !isAlnum(rsHash) || !isAlnum(podSuffix) {
		return ""
	}
	return strings.Join(parts[:len(parts)-2], "-")
}

// inferStatefulSetFromPodName recognizes the ordinal suffix of
// StatefulSet pods.
func inferStatefulSetFromPodName(podName string) string {
	name := strings.TrimSpace(podName)
	idx := strings.LastIndex(name, "-")
	if idx <= 0 {
		return ""
	}
	if !isDigits(name[idx+1:]) {
		return ""
	}
	return name[:idx]
}

// inferCronJobFromJob strips the numeric schedule suffix off a
// CronJob-generated Job name.
func inferCronJobFromJob(jobName string) string {
	name := strings.TrimSpace(jobName)
	idx := strings.LastIndex(name, "-")
	if idx <= 0 {
		return ""
	}
	if !isDigits(name[idx+1:]) {
		return ""
	}
	return name[:idx]
}

// PodWorkloadKeys derives every candidate workload key for a pod: the
// controller owner reference with ReplicaSet→Deployment and Job→CronJob
// inference, name-pattern fallbacks, and the job-name label. A pod is
// attributed to all matching keys.
func PodWorkloadKeys(pod *corev1.Pod) []model.WorkloadKey {
	keys := make(map[model.WorkloadKey]struct{})

	var owner *struct {
		kind string
		name string
	}
	for i := range pod.OwnerReferences {
		ref := &pod.OwnerReferences[i]
		if ref.Controller != nil && *ref.Controller {
			owner = &struct {
				kind string
				name string
			}{ref.Kind, ref.Name}
			break
		}
	}
	if owner == nil && len(pod.OwnerReferences) > 0 {
		ref := &pod.OwnerReferences[0]
		owner = &struct {
			kind string
			name string
		}{ref.Kind, ref.Name}
	}

	if owner != nil {
		kind := canonicalWorkloadKind(owner.kind)
		name := strings.TrimSpace(owner.name)
		if kind != "" && name != "" {
			switch kind {
			case "Deployment", "StatefulSet", "DaemonSet", "Job", "CronJob":
				keys[model.WorkloadKey{Kind: kind, Name: name}] = struct{}{}
			}
			if kind == "ReplicaSet" {
				if deployment := inferDeploymentFromReplicaSet(name, pod.Labels); deployment != "" {
					keys[model.WorkloadKey{Kind: "Deployment", Name: deployment}] = struct{}{}
				}
			}
			if kind == "Job" {
				if cronjob := inferCronJobFromJob(name); cronjob != "" {
					keys[model.WorkloadKey{Kind: "CronJob", Name: cronjob}] = struct{}{}
				}
			}
		}
	}

	if podName := strings.TrimSpace(pod.Name); podName != "" {
		if deployment := inferDeploymentFromPodName(podName); deployment != "" {
			keys[model.WorkloadKey{Kind: "Deployment", Name: deployment}] = struct{}{}
		}
		if statefulset := inferStatefulSetFromPodName(podName); statefulset != "" {
			keys[model.WorkloadKey{Kind: "StatefulSet", Name: statefulset}] = struct{}{}
		}
	}

	if jobName := strings.TrimSpace(pod.Labels["job-name"]); jobName != "" {
		keys[model.WorkloadKey{Kind: "Job", Name: jobName}] = struct{}{}
		if cronjob := inferCronJobFromJob(jobName); cronjob != "" {
			keys[model.WorkloadKey{Kind: "CronJob", Name: cronjob}] = struct{}{}
		}
	}

	out := make([]model.WorkloadKey, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	return out
}
