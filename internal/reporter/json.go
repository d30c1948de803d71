package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// JSONReporter outputs NDJSON events, one object per line.
type JSONReporter struct {
	writer             io.Writer
	mu                 sync.Mutex
	lastProgressBucket int
	lastProgressTime   time.Time
}

// NewJSONReporter creates a new JSON reporter that writes to stdout.
func NewJSONReporter() *JSONReporter {
	return NewJSONReporterWithWriter(os.Stdout)
}

// NewJSONReporterWithWriter creates a JSON reporter with a custom writer.
func NewJSONReporterWithWriter(w io.Writer) *JSONReporter {
	return &JSONReporter{
		writer:             w,
		lastProgressBucket: -1,
	}
}

func (r *JSONReporter) timestamp() int64 {
	return time.Now().Unix()
}

func (r *JSONReporter) write(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(r.writer, string(data))
}

func jobFields(job JobInfo) map[string]any {
	return map[string]any{
		"id":         job.ID,
		"name":       job.Name,
		"output_dir": job.OutputDir,
		"index":      job.Index,
		"total":      job.Total,
	}
}

func (r *JSONReporter) Hardware(summary HardwareSummary) {
	r.write(map[string]any{
		"type":          "hardware",
		"hostname":      summary.Hostname,
		"logical_cores": summary.LogicalCores,
		"timestamp":     r.timestamp(),
	})
}

func (r *JSONReporter) BatchStarted(info BatchStartInfo) {
	r.write(map[string]any{
		"type":         "batch_started",
		"total_jobs":   info.TotalJobs,
		"job_names":    info.JobNames,
		"total_frames": info.TotalFrames,
		"timestamp":    r.timestamp(),
	})
}

func (r *JSONReporter) JobStarted(info JobStartInfo) {
	r.mu.Lock()
	r.lastProgressBucket = -1
	r.lastProgressTime = time.Time{}
	r.mu.Unlock()

	r.write(map[string]any{
		"type":      "job_started",
		"job":       jobFields(info.Job),
		"inputs":    info.Inputs,
		"frames":    info.Frames,
		"preset":    info.Preset,
		"sar":       info.SAR,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) SegmentsPlanned(plan SegmentPlan) {
	segments := make([]map[string]any, len(plan.Segments))
	for i, seg := range plan.Segments {
		segments[i] = map[string]any{
			"ordinal": seg.Ordinal,
			"frames":  seg.Frames,
			"script":  seg.ScriptPath,
		}
	}

	r.write(map[string]any{
		"type":        "segments_planned",
		"job":         jobFields(plan.Job),
		"target":      plan.Target,
		"parallelism": plan.Parallelism,
		"segments":    segments,
		"timestamp":   r.timestamp(),
	})
}

func (r *JSONReporter) JobProgress(progress ProgressSnapshot) {
	const progressBucketSize = 1
	const minInterval = 5 * time.Second

	percent := progress.JobPercent()
	bucket := int(percent) / progressBucketSize
	now := time.Now()

	r.mu.Lock()
	intervalElapsed := r.lastProgressTime.IsZero() || now.Sub(r.lastProgressTime) >= minInterval
	shouldEmit := bucket > r.lastProgressBucket || intervalElapsed || percent >= 99.0

	if !shouldEmit {
		r.mu.Unlock()
		return
	}

	if bucket > r.lastProgressBucket {
		r.lastProgressBucket = bucket
	}
	r.lastProgressTime = now
	r.mu.Unlock()

	r.write(map[string]any{
		"type":              "job_progress",
		"job":               jobFields(progress.Job),
		"job_frames_done":   progress.JobFramesDone,
		"job_frames_total":  progress.JobFramesTotal,
		"percent":           percent,
		"fps":               progress.FPS,
		"frames_done":       progress.FramesDone,
		"frames_total":      progress.FramesTotal,
		"total_percent":     progress.TotalPercent(),
		"jobs_done":         progress.JobsDone,
		"jobs_total":        progress.JobsTotal,
		"segments_complete": progress.SegmentsComplete,
		"segments_total":    progress.SegmentsTotal,
		"eta_seconds":       int64(progress.ETA.Seconds()),
		"timestamp":         r.timestamp(),
	})
}

func (r *JSONReporter) JobCompleted(outcome JobOutcome) {
	r.write(map[string]any{
		"type":             "job_completed",
		"job":              jobFields(outcome.Job),
		"status":           outcome.Status,
		"message":          outcome.Message,
		"output_path":      outcome.OutputPath,
		"output_size":      outcome.OutputSize,
		"frames":           outcome.Frames,
		"duration_seconds": int64(outcome.Elapsed.Seconds()),
		"timestamp":        r.timestamp(),
	})
}

func (r *JSONReporter) AllJobsCompleted(summary BatchSummary) {
	jobs := make([]map[string]any, len(summary.Jobs))
	for i, job := range summary.Jobs {
		jobs[i] = map[string]any{
			"name":    job.Job.Name,
			"status":  job.Status,
			"message": job.Message,
		}
	}

	r.write(map[string]any{
		"type":                   "all_jobs_completed",
		"finished":               summary.Finished,
		"failed":                 summary.Failed,
		"cancelled":              summary.Cancelled,
		"total":                  summary.Total,
		"jobs":                   jobs,
		"total_duration_seconds": int64(summary.Elapsed.Seconds()),
		"timestamp":              r.timestamp(),
	})
}

func (r *JSONReporter) Warning(message string) {
	r.write(map[string]any{
		"type":      "warning",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) Error(err ReporterError) {
	r.write(map[string]any{
		"type":       "error",
		"title":      err.Title,
		"message":    err.Message,
		"context":    err.Context,
		"suggestion": err.Suggestion,
		"timestamp":  r.timestamp(),
	})
}

func (r *JSONReporter) Verbose(message string) {
	r.write(map[string]any{
		"type":      "verbose",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}
