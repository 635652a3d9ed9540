package datasource

import (
	"context"
	"encoding/json"

	corev1 "k8s.io/api/core/v1"

	"github.com/kubeagle/kubeagle/internal/kubecli"
)

// FetchWarningEventsForNamespace returns one namespace's warning events.
func (c *Client) FetchWarningEventsForNamespace(ctx context.Context, namespace string) ([]corev1.Event, error) {
	args := []string{
		"get", "events", "-n", namespace,
		"--field-selector=type=Warning",
		"-o", "json",
		"--request-timeout=" + kubecli.ClusterRequestTimeout,
	}
	return c.fetchEventList(ctx, args)
}

// FetchAllEvents issues the full all-namespaces event query. On timeout
// the runner transparently falls back to the warning-only chunked query,
// so the caller always gets at least the warning subset.
func (c *Client) FetchAllEvents(ctx context.Context) ([]corev1.Event, error) {
	args := []string{"get", "events", "--all-namespaces", "-o", "json"}
	return c.fetchEventList(ctx, args)
}

func (c *Client) fetchEventList(ctx context.Context, args []string) ([]corev1.Event, error) {
	out, err := c.Kubectl(ctx, args, TTLEvents)
	if err != nil {
		return nil, err
	}

	var list corev1.EventList
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		return nil, &kubecli.ParseError{Source: "event list", Err: err}
	}
	return list.Items, nil
}

// StreamWarningEvents fetches warning events namespace-by-namespace. The
// cluster-wide path runs the full event query; consumers filter on type,
// and the runner narrows it to the warning-only chunked query if the
// full fetch times out.
func (c *Client) StreamWarningEvents(ctx context.Context, onPartial PartialFunc[corev1.Event]) ([]corev1.Event, error) {
	namespaces := c.ListNamespaces(ctx)
	return StreamNamespaces(ctx, namespaces,
		c.FetchWarningEventsForNamespace,
		c.FetchAllEvents,
		onPartial,
		c.logger,
	)
}
