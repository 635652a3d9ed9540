package datasource

import (
	"context"
	"strings"

	"github.com/kubeagle/kubeagle/internal/kubecli"
	"github.com/kubeagle/kubeagle/internal/quantity"
)

// TopPodSample is one row of `kubectl top pod` output.
type TopPodSample struct {
	Namespace          string
	Name               string
	UsageCPUMillicores float64
	UsageMemoryBytes   float64
}

// TopNodeSample is one row of `kubectl top node` output.
type TopNodeSample struct {
	Name               string
	UsageCPUMillicores float64
	UsageMemoryBytes   float64
}

// FetchTopPods samples live pod usage cluster-wide. Requires a metrics
// pipeline on the cluster; errors degrade to missing usage data.
func (c *Client) FetchTopPods(ctx context.Context) ([]TopPodSample, error) {
	args := []string{"top", "pods", "-A", "--no-headers", "--request-timeout=" + kubecli.TopMetricsRequestTimeout}
	out, err := c.Kubectl(ctx, args, TTLTop)
	if err != nil {
		return nil, err
	}

	var samples []TopPodSample
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		samples = append(samples, TopPodSample{
			Namespace:          fields[0],
			Name:               fields[1],
			UsageCPUMillicores: quantity.ParseCPUMillicores(fields[2]),
			UsageMemoryBytes:   quantity.ParseMemory(fields[3]),
		})
	}
	return samples, nil
}

// FetchTopNodes samples live node usage.
func (c *Client) FetchTopNodes(ctx context.Context) ([]TopNodeSample, error) {
	args := []string{"top", "nodes", "--no-headers", "--request-timeout=" + kubecli.TopMetricsRequestTimeout}
	out, err := c.Kubectl(ctx, args, TTLTop)
	if err != nil {
		return nil, err
	}

	var samples []TopNodeSample
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		// NAME CPU(cores) CPU% MEMORY(bytes) MEMORY%
		if len(fields) < 5 {
			continue
		}
		samples = append(samples, TopNodeSample{
			Name:               fields[0],
			UsageCPUMillicores: quantity.ParseCPUMillicores(fields[1]),
			UsageMemoryBytes:   quantity.ParseMemory(fields[3]),
		})
	}
	return samples, nil
}
