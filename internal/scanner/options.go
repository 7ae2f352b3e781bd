// Package scanner implements the parallel work-stealing directory
// crawler (C2): it produces node.Node trees under the aggregation and
// ownership rules of §3, with suspend/resume/cancel and progress
// reporting per §4.2. Refreshing a single directory is done by
// internal/engine, not by this package.
package scanner

// Options configures scanner behavior (§4.2 Inputs).
type Options struct {
	// Concurrency is the worker pool size W; 0 = runtime.GOMAXPROCS(0).
	Concurrency int

	FollowJunctions   bool
	FollowMountPoints bool
	FollowSymlinks    bool
	ComputeOwner      bool
	ScanForDuplicates bool
	UseLongPaths      bool
}

func DefaultOptions() Options {
	return Options{}
}
