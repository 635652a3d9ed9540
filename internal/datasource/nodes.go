package datasource

import (
	"context"
	"encoding/json"

	corev1 "k8s.io/api/core/v1"

	"github.com/kubeagle/kubeagle/internal/kubecli"
)

// FetchNodes returns the raw node inventory.
func (c *Client) FetchNodes(ctx context.Context) ([]corev1.Node, error) {
	args := []string{"get", "nodes", "-o", "json", "--request-timeout=" + kubecli.ClusterRequestTimeout}
	out, err := c.Kubectl(ctx, args, TTLNodes)
	if err != nil {
		return nil, err
	}

	var list corev1.NodeList
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		return nil, &kubecli.ParseError{Source: "node list", Err: err}
	}
	return list.Items, nil
}
