// Package worker provides types shared by the parallel segment encoder.
package worker

import (
	"sync/atomic"
)

// Task is one segment encode handed to the pool.
type Task struct {
	Ordinal int      // Segment number, used for ordering results
	Argv    []string // Encoder argument vector, executable first
	Frames  int64    // Output frames the segment should produce
}

// Result is the outcome of encoding one segment.
type Result struct {
	Ordinal  int
	Frames   int64
	ExitCode int
	LastLine string // Last status line printed by the encoder
	Error    error  // nil on success
}

// Success reports whether the segment encoded cleanly.
func (r Result) Success() bool {
	return r.Error == nil
}

// sample is one immutable observation of a running segment.
type sample struct {
	framesDone int64
	fps        float64
	line       string
}

// Status is the live state of one segment. The encoding goroutine writes it
// and progress pollers read it concurrently; each update swaps a whole
// sample so readers never observe a half-written state.
type Status struct {
	target  int64
	current atomic.Pointer[sample]
}

// NewStatus creates the status of a segment expected to produce target frames.
func NewStatus(target int64) *Status {
	s := &Status{target: target}
	s.current.Store(&sample{})
	return s
}

// Observe records a raw output line that carried no parsable progress.
func (s *Status) Observe(line string) {
	prev := s.current.Load()
	s.current.Store(&sample{framesDone: prev.framesDone, fps: prev.fps, line: line})
}

// Update records parsed progress together with the line it came from.
func (s *Status) Update(framesDone int64, fps float64, line string) {
	s.current.Store(&sample{framesDone: framesDone, fps: fps, line: line})
}

// Snapshot returns the latest frames done, clamped to the segment target,
// the latest fps and the latest output line.
func (s *Status) Snapshot() (framesDone int64, fps float64, line string) {
	cur := s.current.Load()
	framesDone = cur.framesDone
	if s.target > 0 && framesDone > s.target {
		framesDone = s.target
	}
	return framesDone, cur.fps, cur.line
}

// Target returns the number of frames the segment should produce.
func (s *Status) Target() int64 {
	return s.target
}

// Progress is the aggregated state of all segments of a job.
type Progress struct {
	SegmentsComplete int
	SegmentsTotal    int
	FramesComplete   int64
	FramesTotal      int64
	FPS              float64 // Sum of the instantaneous fps of all segments
}

// Percent returns the completion percentage.
func (p Progress) Percent() float64 {
	if p.FramesTotal == 0 {
		return 0
	}
	return float64(p.FramesComplete) / float64(p.FramesTotal) * 100
}
