package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
)

func container(name, cpuReq, memReq, cpuLim, memLim string) corev1.Container {
	c := corev1.Container{
		Name: name,
		Resources: corev1.ResourceRequirements{
			Requests: corev1.ResourceList{},
			Limits:   corev1.ResourceList{},
		},
	}
	if cpuReq != "" {
		c.Resources.Requests[corev1.ResourceCPU] = resource.MustParse(cpuReq)
	}
	if memReq != "" {
		c.Resources.Requests[corev1.ResourceMemory] = resource.MustParse(memReq)
	}
	if cpuLim != "" {
		c.Resources.Limits[corev1.ResourceCPU] = resource.MustParse(cpuLim)
	}
	if memLim != "" {
		c.Resources.Limits[corev1.ResourceMemory] = resource.MustParse(memLim)
	}
	return c
}

func TestEffectiveResourcesInitMaxBelowPodSum(t *testing.T) {
	// Containers request 100m + 200m, init container 250m: the running
	// phase dominates at 300m.
	pod := &corev1.Pod{
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{
				container("app", "100m", "", "", ""),
				container("proxy", "200m", "", "", ""),
			},
			InitContainers: []corev1.Container{
				container("init", "250m", "", "", ""),
			},
		},
	}
	eff := EffectivePodResources(pod)
	assert.Equal(t, 300.0, eff.Request.CPUMillicores)
}

func TestEffectiveResourcesInitMaxDominates(t *testing.T) {
	// Init container at 500m exceeds the running sum of 300m.
	pod := &corev1.Pod{
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{
				container("app", "100m", "", "", ""),
				container("proxy", "200m", "", "", ""),
			},
			InitContainers: []corev1.Container{
				container("init", "500m", "", "", ""),
			},
		},
	}
	eff := EffectivePodResources(pod)
	assert.Equal(t, 500.0, eff.Request.CPUMillicores)
}

func TestEffectiveResourcesSidecarAddsToSum(t *testing.T) {
	always := corev1.ContainerRestartPolicyAlways
	sidecar := container("mesh", "150m", "", "", "")
	sidecar.RestartPolicy = &always

	pod := &corev1.Pod{
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{
				container("app", "200m", "", "", ""),
			},
			InitContainers: []corev1.Container{
				sidecar,
				container("init", "300m", "", "", ""),
			},
		},
	}
	eff := EffectivePodResources(pod)
	// max(300, 200+150) = 350
	assert.Equal(t, 350.0, eff.Request.CPUMillicores)
}

func TestEffectiveResourcesOverhead(t *testing.T) {
	pod := &corev1.Pod{
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{
				container("app", "100m", "64Mi", "", "128Mi"),
			},
			Overhead: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse("10m"),
				corev1.ResourceMemory: resource.MustParse("16Mi"),
			},
		},
	}
	eff := EffectivePodResources(pod)
	assert.Equal(t, 110.0, eff.Request.CPUMillicores)
	assert.Equal(t, float64(80*1024*1024), eff.Request.MemoryBytes)
	// CPU limit stays zero: overhead only tops up non-zero limits.
	assert.Equal(t, 0.0, eff.Limit.CPUMillicores)
	assert.Equal(t, float64(144*1024*1024), eff.Limit.MemoryBytes)
}

func TestNeighborPressure(t *testing.T) {
	assert.Equal(t, 0.0, NeighborPressure(30, 45))
	assert.Equal(t, 50.0, NeighborPressure(70, 20))
}
