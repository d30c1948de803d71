// Package reporter provides progress reporting interfaces and implementations.
package reporter

import "time"

// HardwareSummary contains hardware information.
type HardwareSummary struct {
	Hostname     string
	LogicalCores int
}

// BatchStartInfo describes the queue when encoding starts.
type BatchStartInfo struct {
	TotalJobs   int
	JobNames    []string
	TotalFrames int64
}

// JobInfo identifies a job in events.
type JobInfo struct {
	ID        string
	Name      string
	OutputDir string
	Index     int // 1-based position among the jobs of this run
	Total     int
}

// JobStartInfo is emitted when a job begins.
type JobStartInfo struct {
	Job    JobInfo
	Inputs []string
	Frames int64
	Preset string
	SAR    string
}

// SegmentInfo describes one planned segment.
type SegmentInfo struct {
	Ordinal    int
	Frames     int64
	ScriptPath string
}

// SegmentPlan is emitted once a job's segment scripts have been written.
type SegmentPlan struct {
	Job         JobInfo
	Target      string // WxH
	Parallelism int
	Segments    []SegmentInfo
}

// ProgressSnapshot contains encoding progress of the running job and the
// whole queue.
type ProgressSnapshot struct {
	Job              JobInfo
	JobFramesDone    int64
	JobFramesTotal   int64
	FPS              float64 // Summed over all running segment encoders
	FramesDone       int64   // Across the whole queue
	FramesTotal      int64
	JobsDone         int
	JobsTotal        int
	SegmentsComplete int
	SegmentsTotal    int
	ETA              time.Duration
}

// JobPercent returns the completion percentage of the running job.
func (p ProgressSnapshot) JobPercent() float64 {
	return percent(p.JobFramesDone, p.JobFramesTotal)
}

// TotalPercent returns the completion percentage of the whole queue.
func (p ProgressSnapshot) TotalPercent() float64 {
	return percent(p.FramesDone, p.FramesTotal)
}

func percent(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}

// JobOutcome contains a job's final state.
type JobOutcome struct {
	Job        JobInfo
	Status     string
	Message    string
	OutputPath string
	OutputSize uint64
	Frames     int64
	Elapsed    time.Duration
}

// BatchSummary contains run completion information.
type BatchSummary struct {
	Finished  int
	Failed    int
	Cancelled int
	Total     int
	Elapsed   time.Duration
	Jobs      []JobOutcome
}

// ReporterError contains error information.
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}
