package model

import (
	"time"
)

// FetchState describes the lifecycle of one data source's last fetch.
type FetchState int

const (
	FetchLoading FetchState = iota
	FetchSuccess
	FetchError
)

func (s FetchState) String() string {
	switch s {
	case FetchLoading:
		return "Loading"
	case FetchSuccess:
		return "Success"
	case FetchError:
		return "Error"
	default:
		return "Unknown"
	}
}

// FetchStatus is the per-data-source record mutated only by the owning
// fetch operation. Exactly one exists per declared source name for the
// lifetime of a controller.
type FetchStatus struct {
	State       FetchState
	Error       string
	LastSuccess time.Time
	LastUpdated time.Time
}

// ResourcePair carries a CPU/memory amount in the engine's normalized
// units (millicores, bytes).
type ResourcePair struct {
	CPUMillicores float64
	MemoryBytes   float64
}

// Add accumulates other into p.
func (p *ResourcePair) Add(other ResourcePair) {
	p.CPUMillicores += other.CPUMillicores
	p.MemoryBytes += other.MemoryBytes
}

// Max returns the component-wise maximum of p and other.
func (p ResourcePair) Max(other ResourcePair) ResourcePair {
	out := p
	if other.CPUMillicores > out.CPUMillicores {
		out.CPUMillicores = other.CPUMillicores
	}
	if other.MemoryBytes > out.MemoryBytes {
		out.MemoryBytes = other.MemoryBytes
	}
	return out
}

// EffectiveResources is the request/limit pair Kubernetes actually
// reserves for a pod after init-container and overhead accounting.
type EffectiveResources struct {
	Request ResourcePair
	Limit   ResourcePair
}

// NodeTotals accumulates effective pod resources scheduled onto one node.
// Only pods in phase Running or Pending contribute.
type NodeTotals struct {
	Request  ResourcePair
	Limit    ResourcePair
	PodCount int
}

// Merge adds delta into t. Used by the streaming delta-merge path where
// per-namespace partial totals arrive incrementally.
func (t *NodeTotals) Merge(delta NodeTotals) {
	t.Request.Add(delta.Request)
	t.Limit.Add(delta.Limit)
	t.PodCount += delta.PodCount
}

// TaintInfo is a flattened node taint.
type TaintInfo struct {
	Key    string
	Value  string
	Effect string
}

// NodeInfo is the per-node snapshot rebuilt wholesale on each fetch.
// Totals and the derived percentages are additionally updated through the
// incremental delta-merge path while pods stream in namespace by
// namespace.
type NodeInfo struct {
	Name           string
	NodeGroup      string
	InstanceType   string
	Zone           string
	KubeletVersion string
	OSImage        string
	Created        time.Time

	// Allocatable capacity.
	AllocatableCPUMillicores float64
	AllocatableMemoryBytes   float64
	MaxPods                  int

	// Health.
	Ready         bool
	Healthy       bool
	Cordoned      bool
	Conditions    map[string]string
	Taints        []TaintInfo
	Labels        map[string]string

	// Derived totals over scheduled pods.
	Totals NodeTotals

	// Derived percentages against allocatable.
	CPURequestPct    float64
	CPULimitPct      float64
	MemoryRequestPct float64
	MemoryLimitPct   float64
	PodPct           float64

	// Sampled real usage, present only when a usage sample succeeded.
	UsageCPUMillicores float64
	UsageMemoryBytes   float64
	CPUUsagePct        float64
	MemoryUsagePct     float64
	HasUsage           bool
}

// PodDistribution counts scheduled pods by node and by node group.
type PodDistribution struct {
	ByNode  map[string]int
	ByGroup map[string]int
	Total   int
}

// NewPodDistribution returns an empty distribution ready for merging.
func NewPodDistribution() *PodDistribution {
	return &PodDistribution{
		ByNode:  make(map[string]int),
		ByGroup: make(map[string]int),
	}
}

// ClusterSnapshot bundles the typed results of one full acquisition
// cycle. Individual fields may be nil while their source is still
// loading; consumers read what is present.
type ClusterSnapshot struct {
	Context      string
	Nodes        []*NodeInfo
	Analyses     *NodeAnalyses
	Workloads    []*WorkloadRow
	PDBs         []*PDBInfo
	Releases     []*HelmRelease
	Events       *EventSummary
	Distribution *PodDistribution
	CapturedAt   time.Time
}
