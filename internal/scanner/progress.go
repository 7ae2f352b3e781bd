package scanner

import "sync/atomic"

// Progress reports (tallied_bytes, estimated_total_bytes) per §4.2. For
// drives, estimated_total = reported_used = total - free; for a
// MyComputer root, totals sum across drives.
type Progress struct {
	TalliedBytes int64
	EstimatedTotalBytes int64
	DeniedDirs      int64
	RetriedEntries  int64
}

type progressCounters struct {
	tallied        atomic.Int64
	estimatedTotal atomic.Int64
	deniedDirs     atomic.Int64
	retriedEntries atomic.Int64
}

func (c *progressCounters) snapshot() Progress {
	return Progress{
		TalliedBytes:        c.tallied.Load(),
		EstimatedTotalBytes: c.estimatedTotal.Load(),
		DeniedDirs:          c.deniedDirs.Load(),
		RetriedEntries:      c.retriedEntries.Load(),
	}
}
