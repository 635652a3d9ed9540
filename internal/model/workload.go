package model

import "time"

// WorkloadKey identifies a workload within the cluster. Pods map onto
// one or more keys through owner references or name-pattern inference.
type WorkloadKey struct {
	Kind string
	Name string
}

// BasisMetrics compares node-level and workload-own utilization on a
// single accounting basis (requests, limits, or sampled real usage).
// Neighbor values are clamped at zero.
type BasisMetrics struct {
	NodeCPUPct        float64
	NodeMemoryPct     float64
	OwnCPUPct         float64
	OwnMemoryPct      float64
	NeighborCPUPct    float64
	NeighborMemoryPct float64
}

// AssignedNodeDetail describes one node a workload has pods scheduled
// on, with the pressure attributable to co-located tenants.
type AssignedNodeDetail struct {
	NodeName  string
	NodeGroup string
	PodCount  int
	Requests  BasisMetrics
	Limits    BasisMetrics
	Usage     BasisMetrics
	HasUsage  bool
}

// AssignedPodDetail describes one pod belonging to a workload, including
// restart diagnostics gathered from container statuses.
type AssignedPodDetail struct {
	Name          string
	Namespace     string
	NodeName      string
	Phase         string
	Ready         bool
	Restarts      int32
	RestartReason string
	LastExitCode  int32
	HasExitCode   bool

	UsageCPUMillicores float64
	UsageMemoryBytes   float64
	HasUsage           bool
}

// WorkloadRow is one row of the workload inventory. Rows are created
// fresh per fetch cycle and enriched in place once runtime-usage inputs
// arrive, so a partially enriched row is always valid to read.
type WorkloadRow struct {
	Namespace string
	Kind      string
	Name      string

	DesiredReplicas int32
	ReadyReplicas   int32
	Status          string
	SingleReplica   bool

	HelmRelease string
	HasPDB      bool

	// Aggregate effective resources over the workload's pods.
	Requests ResourcePair
	Limits   ResourcePair
	PodCount int

	// Runtime enrichment, populated by the second pass.
	Nodes               []*AssignedNodeDetail
	Pods                []*AssignedPodDetail
	RestartReasonCounts map[string]int
	TotalRestarts       int32
	PodCountOutlier     bool
}

// Key returns the inventory key matching the pod-mapping pathways.
func (w *WorkloadRow) Key() WorkloadKey {
	return WorkloadKey{Kind: w.Kind, Name: w.Name}
}

// PDBInfo is a flattened PodDisruptionBudget.
type PDBInfo struct {
	Namespace          string
	Name               string
	MinAvailable       string
	MaxUnavailable     string
	Selector           map[string]string
	DisruptionsAllowed int32
	CurrentHealthy     int32
	DesiredHealthy     int32
	ExpectedPods       int32
}

// HelmRelease is one installed chart release as reported by the release
// tool's list output.
type HelmRelease struct {
	Name       string
	Namespace  string
	Revision   string
	Status     string
	Chart      string
	AppVersion string
	Updated    time.Time
}
