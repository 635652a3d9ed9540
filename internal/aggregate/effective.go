// Package aggregate joins raw pod/node facts into derived resource
// views: effective scheduling reservations, per-node totals,
// utilization statistics, neighbor pressure and event summaries.
package aggregate

import (
	corev1 "k8s.io/api/core/v1"

	"github.com/kubeagle/kubeagle/internal/model"
)

func containerResources(c *corev1.Container) (req, lim model.ResourcePair) {
	if cpu, ok := c.Resources.Requests[corev1.ResourceCPU]; ok {
		req.CPUMillicores = float64(cpu.MilliValue())
	}
	if mem, ok := c.Resources.Requests[corev1.ResourceMemory]; ok {
		req.MemoryBytes = float64(mem.Value())
	}
	if cpu, ok := c.Resources.Limits[corev1.ResourceCPU]; ok {
		lim.CPUMillicores = float64(cpu.MilliValue())
	}
	if mem, ok := c.Resources.Limits[corev1.ResourceMemory]; ok {
		lim.MemoryBytes = float64(mem.Value())
	}
	return req, lim
}

// EffectivePodResources computes the request/limit pair the scheduler
// actually reserves for a pod.
//
// Ordinary containers sum. Regular init containers run sequentially
// before the pod, so only their maximum counts; sidecar-style init
// containers (restartPolicy Always) run alongside the pod and add to the
// sum. The effective value is max(initMax, podSum + sidecarSum). A
// declared pod overhead is added to the request unconditionally and to
// the limit only where the limit is already non-zero.
func EffectivePodResources(pod *corev1.Pod) model.EffectiveResources {
	var podSumReq, podSumLim model.ResourcePair
	var sidecarReq, sidecarLim model.ResourcePair
	var initMaxReq, initMaxLim model.ResourcePair

	for i := range pod.Spec.Containers {
		req, lim := containerResources(&pod.Spec.Containers[i])
		podSumReq.Add(req)
		podSumLim.Add(lim)
	}
	for i := range pod.Spec.InitContainers {
		ic := &pod.Spec.InitContainers[i]
		req, lim := containerResources(ic)
		if ic.RestartPolicy != nil && *ic.RestartPolicy == corev1.ContainerRestartPolicyAlways {
			sidecarReq.Add(req)
			sidecarLim.Add(lim)
		} else {
			initMaxReq = initMaxReq.Max(req)
			initMaxLim = initMaxLim.Max(lim)
		}
	}

	runReq := podSumReq
	runReq.Add(sidecarReq)
	runLim := podSumLim
	runLim.Add(sidecarLim)

	eff := model.EffectiveResources{
		Request: initMaxReq.Max(runReq),
		Limit:   initMaxLim.Max(runLim),
	}

	for name, q := range pod.Spec.Overhead {
		switch name {
		case corev1.ResourceCPU:
			mc := float64(q.MilliValue())
			eff.Request.CPUMillicores += mc
			if eff.Limit.CPUMillicores > 0 {
				eff.Limit.CPUMillicores += mc
			}
		case corev1.ResourceMemory:
			b := float64(q.Value())
			eff.Request.MemoryBytes += b
			if eff.Limit.MemoryBytes > 0 {
				eff.Limit.MemoryBytes += b
			}
		}
	}
	return eff
}
