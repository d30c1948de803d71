// Package avsbatch provides a Go library for batch encoding AviSynth scripts
// with x264.
//
// Each job concatenates one or more input scripts, splits the frames into
// segments that are encoded in parallel, and merges the segments into one
// container with mkvmerge. Jobs run one at a time in queue order.
//
// Basic usage:
//
//	encoder, err := avsbatch.New(
//	    avsbatch.WithParallelism(4),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer encoder.Close()
//
//	if _, err := encoder.AddJobFile("jobs.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	result, err := encoder.Encode(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Finished %d of %d jobs\n", result.FinishedCount, result.TotalJobs)
package avsbatch

import (
	"context"
	"fmt"

	"github.com/five82/avsbatch/internal/config"
	"github.com/five82/avsbatch/internal/discovery"
	"github.com/five82/avsbatch/internal/logging"
	"github.com/five82/avsbatch/internal/processing"
	"github.com/five82/avsbatch/internal/reporter"
	"github.com/five82/avsbatch/internal/script"
	"github.com/five82/avsbatch/internal/watch"
)

// Re-exported types
type (
	Config        = config.Config
	JobSpec       = config.JobSpec
	EncoderPreset = config.EncoderPreset
	Reporter      = reporter.Reporter
	Job           = processing.Job
	JobStatus     = processing.JobStatus
	Progress      = reporter.ProgressSnapshot
	RunLogger     = logging.RunLogger
)

const (
	StatusQueued    = processing.StatusQueued
	StatusRunning   = processing.StatusRunning
	StatusFinished  = processing.StatusFinished
	StatusCancelled = processing.StatusCancelled
	StatusFailed    = processing.StatusFailed
)

// LoadConfig reads a YAML config file. An empty path searches the standard
// locations and falls back to the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg, _, err := config.Load(path)
	return cfg, err
}

// LoadJobFile reads the jobs defined in a YAML job file.
func LoadJobFile(path string) ([]JobSpec, error) {
	return config.LoadJobFile(path)
}

// FindJobFiles finds job files in a directory.
func FindJobFiles(dir string) ([]string, error) {
	return discovery.FindJobFiles(dir)
}

// Encoder queues jobs and encodes them.
type Encoder struct {
	config *config.Config
	parser *script.Parser
	sched  *processing.Scheduler
	log    *logging.RunLogger
}

// Result is the outcome of one job.
type Result struct {
	ID         string
	Name       string
	Status     JobStatus
	Message    string
	OutputFile string
	Frames     int64
}

// BatchResult contains the outcome of every job in the queue.
type BatchResult struct {
	Results        []Result
	FinishedCount  int
	FailedCount    int
	CancelledCount int
	TotalJobs      int
}

type settings struct {
	config    *config.Config
	reporter  reporter.Reporter
	handler   EventHandler
	log       *logging.RunLogger
	schedOpts []processing.Option
}

// Option configures the encoder.
type Option func(*settings)

// New creates a new Encoder with the given options. Close releases it.
func New(opts ...Option) (*Encoder, error) {
	s := &settings{config: config.NewConfig()}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.config.Validate(); err != nil {
		return nil, err
	}

	var reporters []reporter.Reporter
	if s.reporter != nil {
		reporters = append(reporters, s.reporter)
	}
	if s.handler != nil {
		reporters = append(reporters, newEventReporter(s.handler))
	}
	var rep reporter.Reporter = reporter.NullReporter{}
	switch len(reporters) {
	case 1:
		rep = reporters[0]
	case 2:
		rep = reporter.NewCompositeReporter(reporters...)
	}

	schedOpts := append([]processing.Option{
		processing.WithReporter(rep),
		processing.WithRunLogger(s.log),
	}, s.schedOpts...)

	return &Encoder{
		config: s.config,
		parser: script.NewParser(nil),
		sched:  processing.NewScheduler(s.config, schedOpts...),
		log:    s.log,
	}, nil
}

// WithConfig replaces the default configuration. Options applied after it
// modify cfg.
func WithConfig(cfg *Config) Option {
	return func(s *settings) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

// WithParallelism sets how many segments each job is split into and encoded
// at once. Zero uses one encoder per logical CPU.
func WithParallelism(n int) Option {
	return func(s *settings) { s.config.Parallelism = n }
}

// WithPreset selects the encoder preset used by jobs that name none.
func WithPreset(name string) Option {
	return func(s *settings) { s.config.ActivePreset = name }
}

// WithSAR sets the default sample aspect ratio, such as "16:15".
func WithSAR(sar string) Option {
	return func(s *settings) { s.config.SAR = sar }
}

// WithCleanup sets whether segment files are removed after a successful merge.
func WithCleanup(enable bool) Option {
	return func(s *settings) { s.config.Cleanup = enable }
}

// WithEncoderPath sets the x264 executable.
func WithEncoderPath(path string) Option {
	return func(s *settings) { s.config.Encoder = path }
}

// WithMergerPath sets the mkvmerge executable.
func WithMergerPath(path string) Option {
	return func(s *settings) { s.config.Merger = path }
}

// WithReporter receives every scheduler event.
func WithReporter(rep Reporter) Option {
	return func(s *settings) { s.reporter = rep }
}

// WithEventHandler receives job and batch events.
func WithEventHandler(handler EventHandler) Option {
	return func(s *settings) { s.handler = handler }
}

// WithRunLogger writes job lifecycle lines to a run log created by
// logging.Setup.
func WithRunLogger(log *RunLogger) Option {
	return func(s *settings) { s.log = log }
}

// Config returns the encoder's configuration.
func (e *Encoder) Config() *Config {
	return e.config
}

// AddJob parses the job's input scripts and queues it. Returns the job ID.
func (e *Encoder) AddJob(spec JobSpec) (string, error) {
	job, err := processing.NewJob(spec, e.config, e.parser)
	if err != nil {
		return "", err
	}
	ids, err := e.sched.Add(job)
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AddJobFile queues every job in a job file. No job is queued when any of
// them fails to parse.
func (e *Encoder) AddJobFile(path string) ([]string, error) {
	specs, err := config.LoadJobFile(path)
	if err != nil {
		return nil, err
	}
	return e.addSpecs(specs)
}

func (e *Encoder) addSpecs(specs []JobSpec) ([]string, error) {
	jobs := make([]processing.Job, 0, len(specs))
	for _, spec := range specs {
		job, err := processing.NewJob(spec, e.config, e.parser)
		if err != nil {
			return nil, fmt.Errorf("job %s: %w", spec.Name, err)
		}
		jobs = append(jobs, job)
	}
	return e.sched.Add(jobs...)
}

// Remove drops jobs from the queue, cancelling the running one if it is among
// them.
func (e *Encoder) Remove(ids ...string) (int, error) {
	return e.sched.Remove(ids...)
}

// Jobs returns a copy of the queue.
func (e *Encoder) Jobs() []Job {
	return e.sched.Jobs()
}

// Progress returns the current progress of the queue.
func (e *Encoder) Progress() Progress {
	return e.sched.Snapshot()
}

// Start begins encoding the queue and returns immediately.
func (e *Encoder) Start() error {
	return e.sched.Encode()
}

// Wait blocks until the queue has drained or ctx is done.
func (e *Encoder) Wait(ctx context.Context) error {
	return e.sched.Wait(ctx)
}

// Cancel interrupts the running job; the rest of the queue continues.
func (e *Encoder) Cancel() error {
	return e.sched.Cancel()
}

// CancelAll cancels the running job and every queued job.
func (e *Encoder) CancelAll() error {
	return e.sched.CancelAll()
}

// Encode runs the queue to completion. When ctx is done every remaining job
// is cancelled and ctx's error is returned along with the partial result.
func (e *Encoder) Encode(ctx context.Context) (*BatchResult, error) {
	if err := e.sched.Encode(); err != nil {
		return nil, err
	}
	if err := e.sched.Wait(ctx); err != nil {
		if cancelErr := e.sched.CancelAll(); cancelErr != nil {
			return nil, cancelErr
		}
		if waitErr := e.sched.Wait(context.Background()); waitErr != nil {
			return nil, waitErr
		}
		return e.Results(), err
	}
	return e.Results(), nil
}

// Watch queues the jobs of every job file created in dir until ctx is done,
// starting the encoder whenever new jobs arrive. Job files already in dir
// are queued first.
func (e *Encoder) Watch(ctx context.Context, dir string) error {
	w := watch.New(dir, func(_ string, specs []JobSpec) error {
		if _, err := e.addSpecs(specs); err != nil {
			return err
		}
		return e.sched.Encode()
	}, watch.WithExisting(), watch.WithRunLogger(e.log))
	return w.Run(ctx)
}

// Results summarizes the terminal jobs in the queue.
func (e *Encoder) Results() *BatchResult {
	batch := &BatchResult{}
	for _, j := range e.sched.Jobs() {
		if !j.Status.IsTerminal() {
			continue
		}
		batch.Results = append(batch.Results, Result{
			ID:         j.ID,
			Name:       j.Name,
			Status:     j.Status,
			Message:    j.Message,
			OutputFile: j.OutputPath,
			Frames:     j.Frames(),
		})
		batch.TotalJobs++
		switch j.Status {
		case StatusFinished:
			batch.FinishedCount++
		case StatusFailed:
			batch.FailedCount++
		case StatusCancelled:
			batch.CancelledCount++
		}
	}
	return batch
}

// Close interrupts the running job and releases the encoder.
func (e *Encoder) Close() {
	e.sched.Close()
}
