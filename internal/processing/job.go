// Package processing sequences batch jobs through segment planning, parallel
// encoding and merging.
package processing

import (
	"errors"
	"fmt"
	"time"

	"github.com/five82/avsbatch/internal/config"
	"github.com/five82/avsbatch/internal/encode"
	"github.com/five82/avsbatch/internal/script"
	"github.com/five82/avsbatch/internal/segment"
)

// JobStatus is the lifecycle state of a job.
type JobStatus int

const (
	StatusQueued JobStatus = iota
	StatusRunning
	StatusFinished
	StatusCancelled
	StatusFailed
)

// Status messages recorded on terminal jobs.
const (
	MessageCompleted   = "Completed"
	buildFailurePrefix = "Failed to build segments due to: "
)

// ErrInvalidTransition is returned for a status change the lifecycle forbids.
var ErrInvalidTransition = errors.New("invalid job status transition")

func (s JobStatus) String() string {
	switch s {
	case StatusQueued:
		return "Queued"
	case StatusRunning:
		return "Running"
	case StatusFinished:
		return "Finished"
	case StatusCancelled:
		return "Cancelled"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether no further transition can leave s.
func (s JobStatus) IsTerminal() bool {
	return s == StatusFinished || s == StatusCancelled || s == StatusFailed
}

func isValidTransition(from, to JobStatus) bool {
	switch from {
	case StatusQueued:
		return to == StatusRunning || to == StatusCancelled
	case StatusRunning:
		return to.IsTerminal()
	default:
		return false
	}
}

// Job is one entry of the batch queue.
type Job struct {
	ID        string
	Name      string
	Clips     []*script.Clip
	Target    script.Dimension // Zero selects the most common clip dimension
	SAR       string
	OutputDir string
	Preset    config.EncoderPreset
	Cleanup   bool

	Status     JobStatus
	Message    string
	Segments   []segment.Segment // Set once segments are built
	OutputPath string
	Started    time.Time
	Completed  time.Time
}

// Inputs returns the script paths of the job's clips.
func (j Job) Inputs() []string {
	paths := make([]string, len(j.Clips))
	for i, c := range j.Clips {
		paths[i] = c.Path
	}
	return paths
}

// Frames returns the number of frames the job will encode, counting
// deinterlaced clips twice.
func (j Job) Frames() int64 {
	var total int64
	for _, c := range j.Clips {
		total += c.OutputFrames()
	}
	return total
}

// Elapsed returns how long the job ran, or has been running.
func (j Job) Elapsed() time.Duration {
	switch {
	case j.Started.IsZero():
		return 0
	case j.Completed.IsZero():
		return time.Since(j.Started)
	default:
		return j.Completed.Sub(j.Started)
	}
}

// Builder returns the segment builder for the job under cfg.
func (j Job) Builder(cfg *config.Config) segment.Builder {
	return segment.Builder{
		OutputDir:   j.OutputDir,
		JobName:     j.Name,
		ScriptExt:   cfg.ScriptExt,
		EncodedExt:  cfg.EncodedExt,
		Parallelism: encode.EffectiveParallelism(cfg.Parallelism),
	}
}

func (j *Job) transition(to JobStatus) error {
	if !isValidTransition(j.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}
	j.Status = to
	return nil
}

func (j Job) clone() Job {
	j.Clips = append([]*script.Clip(nil), j.Clips...)
	j.Segments = append([]segment.Segment(nil), j.Segments...)
	return j
}

// NewJob parses the inputs of spec and applies the configured defaults.
func NewJob(spec config.JobSpec, cfg *config.Config, parser *script.Parser) (Job, error) {
	if err := spec.Validate(); err != nil {
		return Job{}, err
	}
	preset, err := cfg.Preset(spec.Preset)
	if err != nil {
		return Job{}, err
	}

	job := Job{
		Name:      spec.Name,
		SAR:       spec.SAR,
		OutputDir: spec.OutputDir,
		Preset:    preset,
		Cleanup:   cfg.Cleanup,
	}
	if job.SAR == "" {
		job.SAR = cfg.SAR
	}
	if spec.Cleanup != nil {
		job.Cleanup = *spec.Cleanup
	}
	if spec.Target != "" {
		if job.Target, err = script.ParseDimension(spec.Target); err != nil {
			return Job{}, err
		}
	}

	for _, path := range spec.Inputs {
		clip, err := parser.ParseFile(path)
		if err != nil {
			return Job{}, fmt.Errorf("%s: %w", path, err)
		}
		job.Clips = append(job.Clips, clip)
	}
	return job, nil
}
