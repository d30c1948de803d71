package reporter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
)

func decodeEvents(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var events []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var ev map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("invalid NDJSON line %q: %v", scanner.Text(), err)
		}
		events = append(events, ev)
	}
	return events
}

func TestProgressSnapshotPercent(t *testing.T) {
	p := ProgressSnapshot{JobFramesDone: 250, JobFramesTotal: 1000, FramesDone: 750, FramesTotal: 3000}
	if got := p.JobPercent(); got != 25 {
		t.Errorf("JobPercent() = %v, want 25", got)
	}
	if got := p.TotalPercent(); got != 25 {
		t.Errorf("TotalPercent() = %v, want 25", got)
	}
	if got := (ProgressSnapshot{}).JobPercent(); got != 0 {
		t.Errorf("empty JobPercent() = %v, want 0", got)
	}
}

func TestJSONReporterEvents(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)
	job := JobInfo{ID: "abc", Name: "movie", Index: 1, Total: 2}

	r.JobStarted(JobStartInfo{Job: job, Inputs: []string{"a.avs"}, Frames: 1000})
	r.SegmentsPlanned(SegmentPlan{Job: job, Target: "704x480", Parallelism: 2, Segments: []SegmentInfo{{Ordinal: 0, Frames: 500}, {Ordinal: 1, Frames: 500}}})
	r.JobCompleted(JobOutcome{Job: job, Status: "Failed", Message: "boom", Elapsed: 90 * time.Second})
	r.AllJobsCompleted(BatchSummary{Failed: 1, Total: 1, Jobs: []JobOutcome{{Job: job, Status: "Failed"}}})

	events := decodeEvents(t, &buf)
	wantTypes := []string{"job_started", "segments_planned", "job_completed", "all_jobs_completed"}
	if len(events) != len(wantTypes) {
		t.Fatalf("got %d events, want %d", len(events), len(wantTypes))
	}
	for i, want := range wantTypes {
		if events[i]["type"] != want {
			t.Errorf("event %d type = %v, want %s", i, events[i]["type"], want)
		}
	}

	completed := events[2]
	if completed["status"] != "Failed" || completed["message"] != "boom" {
		t.Errorf("job_completed = %v", completed)
	}
	if completed["duration_seconds"] != float64(90) {
		t.Errorf("duration_seconds = %v", completed["duration_seconds"])
	}
	if name := completed["job"].(map[string]any)["name"]; name != "movie" {
		t.Errorf("job name = %v", name)
	}
	if segs := events[1]["segments"].([]any); len(segs) != 2 {
		t.Errorf("segments = %v", segs)
	}
}

func TestJSONReporterThrottlesProgress(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)
	r.JobStarted(JobStartInfo{})
	buf.Reset()

	// First update always emits, repeats within the same bucket do not.
	r.JobProgress(ProgressSnapshot{JobFramesDone: 10, JobFramesTotal: 1000})
	r.JobProgress(ProgressSnapshot{JobFramesDone: 12, JobFramesTotal: 1000})
	r.JobProgress(ProgressSnapshot{JobFramesDone: 30, JobFramesTotal: 1000})
	r.JobProgress(ProgressSnapshot{JobFramesDone: 1000, JobFramesTotal: 1000})

	events := decodeEvents(t, &buf)
	if len(events) != 3 {
		t.Fatalf("got %d progress events, want 3", len(events))
	}
	if events[2]["percent"] != float64(100) {
		t.Errorf("last percent = %v, want 100", events[2]["percent"])
	}
}

func TestTerminalReporter(t *testing.T) {
	color.NoColor = true
	var out, errOut bytes.Buffer
	r := NewTerminalReporterWithWriters(&out, &errOut, true)
	job := JobInfo{Name: "movie", Index: 1, Total: 1}

	r.JobStarted(JobStartInfo{Job: job, Inputs: []string{"/src/ep1.avs"}, Frames: 12345, Preset: "Default", SAR: "16:15"})
	r.SegmentsPlanned(SegmentPlan{Job: job, Target: "704x480", Parallelism: 4, Segments: []SegmentInfo{{Ordinal: 0, Frames: 12345, ScriptPath: "/out/movie_seg_0.avs"}}})
	r.JobProgress(ProgressSnapshot{Job: job, JobFramesDone: 100, JobFramesTotal: 12345})
	r.JobCompleted(JobOutcome{Job: job, Status: "Failed", Message: "segment 0 failed"})
	r.Verbose("details")
	r.Error(ReporterError{Title: "Encode failed", Message: "boom"})

	text := out.String()
	for _, want := range []string{"JOB 1/1", "12,345", "ep1.avs", "1 segment(s) at 704x480, 4 parallel", "movie_seg_0.avs", "✗ failed", "segment 0 failed", "details"} {
		if !strings.Contains(text, want) {
			t.Errorf("terminal output missing %q:\n%s", want, text)
		}
	}
	if !strings.Contains(errOut.String(), "ERROR Encode failed") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestCompositeReporterFansOut(t *testing.T) {
	var a, b bytes.Buffer
	c := NewCompositeReporter(NewJSONReporterWithWriter(&a), NullReporter{}, NewJSONReporterWithWriter(&b))
	c.Warning("disk almost full")

	for _, buf := range []*bytes.Buffer{&a, &b} {
		events := decodeEvents(t, buf)
		if len(events) != 1 || events[0]["message"] != "disk almost full" {
			t.Errorf("events = %v", events)
		}
	}
}
