// Package cluster is the orchestration façade over the acquisition
// layers: it sequences fetches, maintains per-source fetch state, joins
// raw facts through the aggregation passes and exposes cache
// invalidation.
package cluster

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"

	"github.com/kubeagle/kubeagle/internal/aggregate"
	"github.com/kubeagle/kubeagle/internal/datasource"
	"github.com/kubeagle/kubeagle/internal/diagnostic"
	"github.com/kubeagle/kubeagle/internal/kubecli"
	"github.com/kubeagle/kubeagle/internal/model"
)

// Data source names tracked by the controller. One FetchStatus exists
// per name for the controller's lifetime.
const (
	SourceNodes     = "nodes"
	SourcePods      = "pods"
	SourceEvents    = "events"
	SourcePDBs      = "pdbs"
	SourceWorkloads = "workloads"
	SourceReleases  = "releases"
	SourceUsage     = "usage"
)

var sourceNames = []string{
	SourceNodes, SourcePods, SourceEvents, SourcePDBs,
	SourceWorkloads, SourceReleases, SourceUsage,
}

// NodesPartialFunc receives the node snapshots plus the names of nodes
// touched by the namespace batch that just merged.
type NodesPartialFunc func(nodes []*model.NodeInfo, touched []string, completed, total int)

// WorkloadsPartialFunc receives accumulated rows as namespaces complete.
type WorkloadsPartialFunc func(rows []*model.WorkloadRow, completed, total int)

// EventsPartialFunc receives the summary rebuilt after each namespace.
type EventsPartialFunc func(summary *model.EventSummary, completed, total int)

// FetchObserver receives terminal fetch-state transitions, by source
// name and state string. Implemented by the self-monitoring metrics.
type FetchObserver interface {
	ObserveFetch(source, state string)
}

// Controller orchestrates acquisition for one cluster context. Fetch
// methods are safe for concurrent use; results are owned by the caller.
type Controller struct {
	client   *datasource.Client
	observer FetchObserver
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.RWMutex
	statuses map[string]*model.FetchStatus
}

// New constructs a controller with every fetch state declared up front
// in the Loading state. observer may be nil.
func New(client *datasource.Client, observer FetchObserver, logger *zap.Logger) *Controller {
	c := &Controller{
		client:   client,
		observer: observer,
		logger:   logger,
		now:      time.Now,
		statuses: make(map[string]*model.FetchStatus, len(sourceNames)),
	}
	for _, name := range sourceNames {
		c.statuses[name] = &model.FetchStatus{State: model.FetchLoading}
	}
	return c
}

// Context returns the cluster context this controller serves.
func (c *Controller) Context() string { return c.client.KubeContext() }

// Status returns a copy of one source's fetch state.
func (c *Controller) Status(source string) model.FetchStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if st := c.statuses[source]; st != nil {
		return *st
	}
	return model.FetchStatus{}
}

// Statuses returns a copy of all fetch states.
func (c *Controller) Statuses() map[string]model.FetchStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]model.FetchStatus, len(c.statuses))
	for name, st := range c.statuses {
		out[name] = *st
	}
	return out
}

func (c *Controller) begin(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.statuses[source]
	st.State = model.FetchLoading
	st.Error = ""
	st.LastUpdated = c.now()
}

func (c *Controller) succeed(source string) {
	c.mu.Lock()
	st := c.statuses[source]
	st.State = model.FetchSuccess
	st.Error = ""
	st.LastSuccess = c.now()
	st.LastUpdated = st.LastSuccess
	c.mu.Unlock()
	if c.observer != nil {
		c.observer.ObserveFetch(source, model.FetchSuccess.String())
	}
}

func (c *Controller) fail(source string, err error) {
	c.mu.Lock()
	st := c.statuses[source]
	st.State = model.FetchError
	st.Error = err.Error()
	st.LastUpdated = c.now()
	c.mu.Unlock()
	if c.observer != nil {
		c.observer.ObserveFetch(source, model.FetchError.String())
	}
}

// cycleLogger tags all log lines of one fetch cycle with a short
// correlation id.
func (c *Controller) cycleLogger(operation string) *zap.Logger {
	return c.logger.With(
		zap.String("operation", operation),
		zap.String("cycle", uuid.NewString()[:8]),
		zap.String("context", c.client.KubeContext()),
	)
}

// CheckConnection verifies the cluster is reachable at all. Failures
// here are fatal for the cycle and carry a concise message extracted
// from the tool's error stream.
func (c *Controller) CheckConnection(ctx context.Context) error {
	_, err := c.client.Kubectl(ctx, []string{
		"get", "namespaces", "-o", "name",
		"--request-timeout=" + kubecli.ClusterRequestTimeout,
	}, datasource.TTLNamespaces)
	if err == nil {
		return nil
	}
	var procErr *kubecli.ExternalProcessError
	if errors.As(err, &procErr) {
		return errors.New(diagnostic.SummarizeConnectionError(procErr.Stderr))
	}
	return err
}

// Refresh drops the session cache and this context's shared entries so
// the next fetch cycle hits the cluster again.
func (c *Controller) Refresh() {
	c.logger.Info("invalidating caches", zap.String("context", c.client.KubeContext()))
	c.client.InvalidateSession()
}

// Reload implements the periodic cache refresh hook: it invalidates and
// re-primes the cheap inventory sources.
func (c *Controller) Reload(ctx context.Context) error {
	c.Refresh()
	if err := c.CheckConnection(ctx); err != nil {
		return err
	}
	_, err := c.FetchNodes(ctx, false, nil)
	return err
}

// FetchNodes acquires the node inventory and streams pods namespace by
// namespace, merging each namespace's scheduling totals into the node
// snapshots incrementally. The partial callback, when set, fires after
// each merge with the nodes that batch touched.
func (c *Controller) FetchNodes(ctx context.Context, force bool, onPartial NodesPartialFunc) ([]*model.NodeInfo, error) {
	log := c.cycleLogger("fetch-nodes")
	c.begin(SourceNodes)
	if force {
		c.client.InvalidateSession()
	}

	raw, err := c.client.FetchNodes(ctx)
	if err != nil {
		c.fail(SourceNodes, err)
		return nil, err
	}
	nodes := aggregate.ParseNodes(raw)
	log.Debug("node inventory parsed", zap.Int("nodes", len(nodes)))

	totals := make(map[string]model.NodeTotals)
	var mu sync.Mutex

	c.begin(SourcePods)
	allPods, podErr := c.client.StreamPods(ctx, func(namespace string, pods []corev1.Pod, completed, total int) {
		mu.Lock()
		touched := aggregate.MergeNodeTotals(totals, aggregate.ComputeNodeTotals(pods))
		aggregate.ApplyNodeTotals(nodes, totals)
		mu.Unlock()
		if onPartial != nil {
			onPartial(nodes, touched, completed, total)
		}
	})
	if podErr != nil {
		// Node identities are still useful without scheduling totals.
		log.Warn("pod streaming failed, node totals incomplete", zap.Error(podErr))
		c.fail(SourcePods, podErr)
	} else {
		c.succeed(SourcePods)
		mu.Lock()
		totals = aggregate.ComputeNodeTotals(allPods)
		aggregate.ApplyNodeTotals(nodes, totals)
		mu.Unlock()
	}

	c.applyNodeUsage(ctx, nodes, log)
	c.succeed(SourceNodes)
	return nodes, nil
}

// applyNodeUsage samples real node usage and folds it onto the
// snapshots. Usage is best-effort; absence degrades to request-based
// views only.
func (c *Controller) applyNodeUsage(ctx context.Context, nodes []*model.NodeInfo, log *zap.Logger) {
	c.begin(SourceUsage)
	samples, err := c.client.FetchTopNodes(ctx)
	if err != nil {
		log.Warn("node usage sampling unavailable", zap.Error(err))
		c.fail(SourceUsage, err)
		return
	}
	usage := make(map[string]model.ResourcePair, len(samples))
	for _, s := range samples {
		usage[s.Name] = model.ResourcePair{CPUMillicores: s.UsageCPUMillicores, MemoryBytes: s.UsageMemoryBytes}
	}
	aggregate.ApplyNodeUsage(nodes, usage)
	c.succeed(SourceUsage)
}

// FetchEvents streams warning events and rebuilds the derived summary
// as namespaces arrive.
func (c *Controller) FetchEvents(ctx context.Context, force bool, onPartial EventsPartialFunc) (*model.EventSummary, error) {
	c.begin(SourceEvents)
	if force {
		c.client.InvalidateSession()
	}

	var mu sync.Mutex
	var buffer []corev1.Event
	all, err := c.client.StreamWarningEvents(ctx, func(namespace string, events []corev1.Event, completed, total int) {
		mu.Lock()
		buffer = append(buffer, events...)
		snapshot := aggregate.BuildEventSummary(buffer, aggregate.DefaultEventWindow, c.now())
		mu.Unlock()
		if onPartial != nil {
			onPartial(snapshot, completed, total)
		}
	})
	if err != nil {
		c.fail(SourceEvents, err)
		return nil, err
	}
	summary := aggregate.BuildEventSummary(all, aggregate.DefaultEventWindow, c.now())
	c.succeed(SourceEvents)
	return summary, nil
}

// FetchPDBs acquires the disruption-budget inventory.
func (c *Controller) FetchPDBs(ctx context.Context, force bool) ([]*model.PDBInfo, error) {
	c.begin(SourcePDBs)
	if force {
		c.client.InvalidateSession()
	}
	pdbs, err := c.client.StreamPDBs(ctx, nil)
	if err != nil {
		c.fail(SourcePDBs, err)
		return nil, err
	}
	c.succeed(SourcePDBs)
	return pdbs, nil
}

// HelmReleases acquires the installed release inventory.
func (c *Controller) HelmReleases(ctx context.Context, force bool) ([]*model.HelmRelease, error) {
	c.begin(SourceReleases)
	if force {
		c.client.InvalidateSession()
	}
	releases, err := c.client.StreamHelmReleases(ctx, nil)
	if err != nil {
		c.fail(SourceReleases, err)
		return nil, err
	}
	c.succeed(SourceReleases)
	return releases, nil
}

// FetchWorkloadInventory streams the workload inventory, then runs the
// runtime-enrichment second pass joining pods, nodes, budgets and usage
// samples onto the rows in place. Enrichment inputs are best-effort:
// a missing input degrades detail, never the inventory itself.
func (c *Controller) FetchWorkloadInventory(ctx context.Context, force bool, onPartial WorkloadsPartialFunc) ([]*model.WorkloadRow, error) {
	log := c.cycleLogger("fetch-workloads")
	c.begin(SourceWorkloads)
	if force {
		c.client.InvalidateSession()
	}

	var mu sync.Mutex
	var accumulated []*model.WorkloadRow
	streamTotal := 0
	rows, err := c.client.StreamWorkloads(ctx, func(namespace string, batch []*model.WorkloadRow, completed, total int) {
		mu.Lock()
		accumulated = append(accumulated, batch...)
		snapshot := accumulated
		streamTotal = total
		mu.Unlock()
		if onPartial != nil {
			onPartial(snapshot, completed, total)
		}
	})
	if err != nil {
		c.fail(SourceWorkloads, err)
		return nil, err
	}

	input := c.collectEnrichInput(ctx, log)
	if err := aggregate.EnrichWorkloads(ctx, rows, input); err != nil {
		log.Warn("workload enrichment incomplete", zap.Error(err))
	}
	c.succeed(SourceWorkloads)
	if onPartial != nil {
		// Terminal emit after enrichment, carrying the namespace progress
		// at completion. The cluster-wide fallback path streams no
		// namespaces, so it counts as a single completed unit.
		done := streamTotal
		if done == 0 {
			done = 1
		}
		onPartial(rows, done, done)
	}
	return rows, nil
}

func (c *Controller) collectEnrichInput(ctx context.Context, log *zap.Logger) aggregate.EnrichInput {
	var input aggregate.EnrichInput

	pods, err := c.client.FetchPods(ctx)
	if err != nil {
		log.Warn("pod inventory unavailable for enrichment", zap.Error(err))
	}
	input.Pods = pods

	if raw, err := c.client.FetchNodes(ctx); err != nil {
		log.Warn("node inventory unavailable for enrichment", zap.Error(err))
	} else {
		nodes := aggregate.ParseNodes(raw)
		aggregate.ApplyNodeTotals(nodes, aggregate.ComputeNodeTotals(pods))
		c.applyNodeUsage(ctx, nodes, log)
		input.Nodes = nodes
	}

	if pdbs, err := c.client.FetchPDBs(ctx); err != nil {
		log.Warn("budget inventory unavailable for enrichment", zap.Error(err))
	} else {
		input.PDBs = pdbs
	}

	if samples, err := c.client.FetchTopPods(ctx); err != nil {
		log.Warn("pod usage sampling unavailable", zap.Error(err))
	} else {
		input.PodUsage = make(map[string]model.ResourcePair, len(samples))
		for _, s := range samples {
			input.PodUsage[s.Namespace+"/"+s.Name] = model.ResourcePair{
				CPUMillicores: s.UsageCPUMillicores,
				MemoryBytes:   s.UsageMemoryBytes,
			}
		}
	}
	return input
}

// FetchPodDistribution counts scheduled pods by node and node group.
func (c *Controller) FetchPodDistribution(ctx context.Context, nodes []*model.NodeInfo) (*model.PodDistribution, error) {
	pods, err := c.client.FetchPods(ctx)
	if err != nil {
		return nil, err
	}
	return aggregate.BuildPodDistribution(pods, nodes), nil
}

// Snapshot runs a full acquisition cycle and bundles the results.
// Individual sources degrade independently; only an unreachable cluster
// aborts the cycle.
func (c *Controller) Snapshot(ctx context.Context, force bool) (*model.ClusterSnapshot, error) {
	log := c.cycleLogger("snapshot")
	if err := c.CheckConnection(ctx); err != nil {
		return nil, err
	}

	snap := &model.ClusterSnapshot{Context: c.client.KubeContext()}

	nodes, err := c.FetchNodes(ctx, force, nil)
	if err != nil {
		log.Warn("node fetch failed", zap.Error(err))
	}
	snap.Nodes = nodes
	if len(nodes) > 0 {
		snap.Analyses = aggregate.AnalyzeNodes(nodes)
	}

	if rows, err := c.FetchWorkloadInventory(ctx, false, nil); err != nil {
		log.Warn("workload fetch failed", zap.Error(err))
	} else {
		snap.Workloads = rows
	}
	if pdbs, err := c.FetchPDBs(ctx, false); err != nil {
		log.Warn("budget fetch failed", zap.Error(err))
	} else {
		snap.PDBs = pdbs
	}
	if releases, err := c.HelmReleases(ctx, false); err != nil {
		log.Warn("release fetch failed", zap.Error(err))
	} else {
		snap.Releases = releases
	}
	if summary, err := c.FetchEvents(ctx, false, nil); err != nil {
		log.Warn("event fetch failed", zap.Error(err))
	} else {
		snap.Events = summary
	}
	if dist, err := c.FetchPodDistribution(ctx, nodes); err != nil {
		log.Warn("distribution fetch failed", zap.Error(err))
	} else {
		snap.Distribution = dist
	}

	snap.CapturedAt = c.now()
	return snap, nil
}
