package model

// GroupAllocation sums capacity and scheduled reservations over one node
// group.
type GroupAllocation struct {
	NodeCount   int
	PodCount    int
	Allocatable ResourcePair
	Requests    ResourcePair
	Limits      ResourcePair

	CPURequestPct    float64
	MemoryRequestPct float64
}

// NodeAnalyses holds the fleet-level breakdowns derived from node
// snapshots.
type NodeAnalyses struct {
	// Abnormal condition occurrences (NotReady, pressure conditions).
	ConditionCounts map[string]int
	TaintCounts     map[string]int
	VersionCounts   map[string]int
	InstanceCounts  map[string]int
	ZoneCounts      map[string]int

	GroupAllocations map[string]*GroupAllocation

	// Nodes carrying an outlying pod count relative to the fleet.
	HighPodNodes []string
	PodCountP95  float64
}
