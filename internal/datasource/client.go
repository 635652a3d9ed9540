// Package datasource fetches raw cluster and release state through the
// external tools, fanning namespace-scoped queries out under bounded
// parallelism and streaming partial results back in arrival order.
package datasource

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"

	"github.com/kubeagle/kubeagle/internal/cache"
	"github.com/kubeagle/kubeagle/internal/kubecli"
	"github.com/kubeagle/kubeagle/internal/limiter"
)

// Per-source shared-cache TTLs. Inventory-ish sources change slowly and
// cache longer than live usage samples.
const (
	TTLNamespaces = 45 * time.Second
	TTLNodes      = 45 * time.Second
	TTLPods       = 20 * time.Second
	TTLEvents     = 20 * time.Second
	TTLPDBs       = 20 * time.Second
	TTLWorkloads  = 20 * time.Second
	TTLReleases   = 30 * time.Second
	TTLTop        = 10 * time.Second
)

// Client executes cached, gated tool invocations for the fetchers. One
// Client belongs to one controller; the cache's shared tier and the gate
// are process-wide.
type Client struct {
	kubeContext string
	kubectl     kubecli.Runner
	helm        kubecli.Runner
	commands    *cache.CommandCache
	gate        *limiter.Gate
	logger      *zap.Logger
}

// NewClient wires a client from its collaborators.
func NewClient(kubeContext string, kubectl, helm kubecli.Runner, commands *cache.CommandCache, gate *limiter.Gate, logger *zap.Logger) *Client {
	return &Client{
		kubeContext: kubeContext,
		kubectl:     kubectl,
		helm:        helm,
		commands:    commands,
		gate:        gate,
		logger:      logger,
	}
}

// KubeContext returns the cluster context this client is bound to.
func (c *Client) KubeContext() string { return c.kubeContext }

// InvalidateSession clears the controller-scoped cache tier and the
// shared entries for this client's context.
func (c *Client) InvalidateSession() {
	c.commands.InvalidateSession()
	c.commands.Shared().InvalidateContext(c.kubeContext)
}

// Kubectl runs a kubectl invocation through both cache tiers and the
// concurrency gate. A gate acquire timeout surfaces as a TimeoutError;
// the caller treats the fetch as failed for this cycle.
func (c *Client) Kubectl(ctx context.Context, args []string, ttl time.Duration) (string, error) {
	key := cache.NewKey(c.kubeContext, args)
	return c.commands.Execute(ctx, key, ttl, func(runCtx context.Context) (string, error) {
		release, ok := c.gate.Acquire(runCtx)
		if !ok {
			return "", &kubecli.TimeoutError{
				Tool:   "concurrency-gate",
				Args:   args,
				Budget: c.gate.AcquireTimeout(),
			}
		}
		defer release()
		return c.kubectl.Run(runCtx, args)
	})
}

// Helm runs a helm invocation through the same cache and gate.
func (c *Client) Helm(ctx context.Context, args []string, ttl time.Duration) (string, error) {
	key := cache.NewKey(c.kubeContext, append([]string{"helm"}, args...))
	return c.commands.Execute(ctx, key, ttl, func(runCtx context.Context) (string, error) {
		release, ok := c.gate.Acquire(runCtx)
		if !ok {
			return "", &kubecli.TimeoutError{
				Tool:   "concurrency-gate",
				Args:   args,
				Budget: c.gate.AcquireTimeout(),
			}
		}
		defer release()
		return c.helm.Run(runCtx, args)
	})
}

// ListNamespaces returns sorted namespace names. Failures degrade to an
// empty list so callers fall back to cluster-wide queries.
func (c *Client) ListNamespaces(ctx context.Context) []string {
	args := []string{"get", "namespaces", "-o", "json", "--request-timeout=" + kubecli.ClusterRequestTimeout}
	out, err := c.Kubectl(ctx, args, TTLNamespaces)
	if err != nil {
		c.logger.Warn("Failed to list namespaces for incremental fetch", zap.Error(err))
		return nil
	}
	if strings.TrimSpace(out) == "" {
		return nil
	}

	var list corev1.NamespaceList
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		c.logger.Warn("Failed to parse namespace list", zap.Error(err))
		return nil
	}

	names := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		if name := strings.TrimSpace(item.Name); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
