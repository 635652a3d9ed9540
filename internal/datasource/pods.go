package datasource

import (
	"context"
	"encoding/json"

	corev1 "k8s.io/api/core/v1"

	"github.com/kubeagle/kubeagle/internal/kubecli"
)

// FetchPods returns all pods cluster-wide.
func (c *Client) FetchPods(ctx context.Context) ([]corev1.Pod, error) {
	args := []string{"get", "pods", "-A", "-o", "json", "--request-timeout=" + kubecli.ClusterRequestTimeout}
	return c.fetchPodList(ctx, args)
}

// FetchPodsForNamespace returns one namespace's pods.
func (c *Client) FetchPodsForNamespace(ctx context.Context, namespace string) ([]corev1.Pod, error) {
	args := []string{"get", "pods", "-n", namespace, "-o", "json", "--request-timeout=" + kubecli.ClusterRequestTimeout}
	return c.fetchPodList(ctx, args)
}

func (c *Client) fetchPodList(ctx context.Context, args []string) ([]corev1.Pod, error) {
	out, err := c.Kubectl(ctx, args, TTLPods)
	if err != nil {
		return nil, err
	}

	var list corev1.PodList
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		return nil, &kubecli.ParseError{Source: "pod list", Err: err}
	}
	return list.Items, nil
}

// StreamPods fetches pods namespace-by-namespace, emitting partial
// updates as namespaces complete.
func (c *Client) StreamPods(ctx context.Context, onPartial PartialFunc[corev1.Pod]) ([]corev1.Pod, error) {
	namespaces := c.ListNamespaces(ctx)
	return StreamNamespaces(ctx, namespaces,
		c.FetchPodsForNamespace,
		c.FetchPods,
		onPartial,
		c.logger,
	)
}
