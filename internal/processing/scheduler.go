package processing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/five82/avsbatch/internal/config"
	"github.com/five82/avsbatch/internal/encode"
	coreerrors "github.com/five82/avsbatch/internal/errors"
	"github.com/five82/avsbatch/internal/logging"
	"github.com/five82/avsbatch/internal/merge"
	"github.com/five82/avsbatch/internal/metrics"
	"github.com/five82/avsbatch/internal/reporter"
	"github.com/five82/avsbatch/internal/script"
	"github.com/five82/avsbatch/internal/util"
	"github.com/five82/avsbatch/internal/worker"
	"github.com/five82/avsbatch/internal/x264"
)

// ErrClosed is returned by calls on a closed scheduler.
var ErrClosed = errors.New("scheduler is closed")

// MergeFunc joins a job's encoded segments. merge.Run is the production merger.
type MergeFunc func(req merge.Request) (string, error)

// Scheduler runs queued jobs one at a time. A single goroutine owns the
// queue; public methods hand it closures over a channel and each job's
// encode and merge run on their own goroutine, reporting back over a
// completion channel.
//
// Reporter methods are called from the scheduler goroutine and must not call
// back into the Scheduler.
type Scheduler struct {
	cfg    *config.Config
	rep    reporter.Reporter
	log    *logging.RunLogger
	runner encode.RunFunc
	merger MergeFunc

	ops       chan func()
	finished  chan pipelineResult
	quit      chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once

	// Owned by the scheduler goroutine.
	jobs     []*Job
	running  *activeJob
	active   bool // Encode was called and the queue has not drained yet
	stopping bool // CancelAll was called during this run
	runStart time.Time
	outcomes []reporter.JobOutcome
	waiters  []chan struct{}
}

type activeJob struct {
	job     *Job
	info    reporter.JobInfo
	pool    *encode.Pool
	cancel  context.CancelFunc
	removed bool
}

type pipelineResult struct {
	output    string
	err       error
	cancelled bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithReporter sets the progress reporter.
func WithReporter(rep reporter.Reporter) Option {
	return func(s *Scheduler) {
		if rep != nil {
			s.rep = rep
		}
	}
}

// WithRunLogger sets the per-run log file.
func WithRunLogger(log *logging.RunLogger) Option {
	return func(s *Scheduler) { s.log = log }
}

// WithEncodeRunner replaces the segment encoder runner.
func WithEncodeRunner(run encode.RunFunc) Option {
	return func(s *Scheduler) { s.runner = run }
}

// WithMerger replaces the segment merger.
func WithMerger(m MergeFunc) Option {
	return func(s *Scheduler) { s.merger = m }
}

// NewScheduler creates a scheduler and starts its goroutine. Call Close to
// stop it.
func NewScheduler(cfg *config.Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:      cfg,
		rep:      reporter.NullReporter{},
		runner:   x264.Run,
		merger:   merge.Run,
		ops:      make(chan func()),
		finished: make(chan pipelineResult, 1),
		quit:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.loop()
	return s
}

// call runs fn on the scheduler goroutine and waits for it to return.
func (s *Scheduler) call(fn func()) error {
	done := make(chan struct{})
	select {
	case s.ops <- func() { fn(); close(done) }:
	case <-s.loopDone:
		return ErrClosed
	}
	<-done
	return nil
}

// Add queues jobs and returns their assigned IDs.
func (s *Scheduler) Add(jobs ...Job) ([]string, error) {
	for _, j := range jobs {
		if len(j.Clips) == 0 {
			return nil, fmt.Errorf("job %q has no clips", j.Name)
		}
	}

	ids := make([]string, len(jobs))
	err := s.call(func() {
		for i, j := range jobs {
			job := j.clone()
			job.ID = uuid.NewString()
			job.Status = StatusQueued
			job.Message = ""
			s.jobs = append(s.jobs, &job)
			ids[i] = job.ID
			s.log.Info("Queued job %s (%s frames)", job.Name, util.FormatFrames(job.Frames()))
		}
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Remove drops the given jobs from the queue. A running job among them is
// cancelled and dropped once its pipeline has stopped. Returns the number
// of jobs removed or cancelled.
func (s *Scheduler) Remove(ids ...string) (int, error) {
	removed := 0
	err := s.call(func() {
		drop := make(map[string]bool, len(ids))
		for _, id := range ids {
			drop[id] = true
		}
		kept := s.jobs[:0]
		for _, j := range s.jobs {
			switch {
			case !drop[j.ID]:
				kept = append(kept, j)
			case s.running != nil && s.running.job == j:
				s.running.removed = true
				s.running.cancel()
				kept = append(kept, j)
				removed++
			default:
				removed++
			}
		}
		clear(s.jobs[len(kept):])
		s.jobs = kept
	})
	return removed, err
}

// Encode starts working through the queue. It returns immediately and is a
// no-op while a run is already in progress.
func (s *Scheduler) Encode() error {
	return s.call(func() {
		if s.active {
			return
		}
		s.active = true
		s.stopping = false
		s.runStart = time.Now()
		s.outcomes = nil

		info := reporter.BatchStartInfo{}
		for _, j := range s.jobs {
			if j.Status == StatusQueued {
				info.TotalJobs++
				info.JobNames = append(info.JobNames, j.Name)
				info.TotalFrames += j.Frames()
			}
		}
		s.rep.BatchStarted(info)
		s.log.Info("Encoding %d queued job(s)", info.TotalJobs)
		s.startNext()
	})
}

// Cancel interrupts the running job. Queued jobs still run afterwards.
func (s *Scheduler) Cancel() error {
	return s.call(func() {
		if s.running != nil {
			s.log.Warn("Cancelling job %s", s.running.job.Name)
			s.running.cancel()
		}
	})
}

// CancelAll cancels every queued job, interrupts the running one and ends
// the run once it has stopped.
func (s *Scheduler) CancelAll() error {
	return s.call(func() {
		for _, j := range s.jobs {
			if j.Status == StatusQueued {
				s.finish(j, reporter.JobInfo{ID: j.ID, Name: j.Name, OutputDir: j.OutputDir}, StatusCancelled, "")
			}
		}
		if s.running != nil {
			s.stopping = true
			s.log.Warn("Cancelling job %s", s.running.job.Name)
			s.running.cancel()
		} else if s.active {
			s.finishRun()
		}
	})
}

// Wait blocks until the current run has drained the queue, or ctx is done.
// It returns immediately when no run is in progress.
func (s *Scheduler) Wait(ctx context.Context) error {
	idle := make(chan struct{})
	err := s.call(func() {
		if !s.active {
			close(idle)
			return
		}
		s.waiters = append(s.waiters, idle)
	})
	if err != nil {
		return err
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Jobs returns a copy of every job in queue order.
func (s *Scheduler) Jobs() []Job {
	var jobs []Job
	_ = s.call(func() {
		jobs = make([]Job, len(s.jobs))
		for i, j := range s.jobs {
			jobs[i] = j.clone()
		}
	})
	return jobs
}

// Snapshot returns the current progress of the running job and the queue.
func (s *Scheduler) Snapshot() reporter.ProgressSnapshot {
	var snap reporter.ProgressSnapshot
	_ = s.call(func() { snap = s.snapshot() })
	return snap
}

// Running reports whether a run is in progress.
func (s *Scheduler) Running() bool {
	var active bool
	_ = s.call(func() { active = s.active })
	return active
}

// Close interrupts the running job, waits for it to stop and shuts the
// scheduler goroutine down. Queued jobs stay queued.
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
	<-s.loopDone
}

func (s *Scheduler) loop() {
	defer close(s.loopDone)

	ticker := time.NewTicker(s.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case fn := <-s.ops:
			fn()
		case res := <-s.finished:
			s.complete(res)
			s.startNext()
		case <-ticker.C:
			s.poll()
		case <-s.quit:
			if s.running != nil {
				s.running.cancel()
				s.complete(<-s.finished)
			}
			s.releaseWaiters()
			return
		}
	}
}

func (s *Scheduler) pollInterval() time.Duration {
	if s.cfg.PollInterval > 0 {
		return s.cfg.PollInterval
	}
	return config.DefaultPollInterval
}

// startNext starts the earliest queued job whose segments can be built.
// Jobs whose segments cannot be built fail and the next one is tried.
func (s *Scheduler) startNext() {
	for {
		if s.stopping {
			s.finishRun()
			return
		}
		job := s.nextQueued()
		if job == nil {
			s.finishRun()
			return
		}
		if s.start(job) {
			return
		}
	}
}

func (s *Scheduler) nextQueued() *Job {
	for _, j := range s.jobs {
		if j.Status == StatusQueued {
			return j
		}
	}
	return nil
}

// start builds the job's segments and launches its pipeline. It reports
// false when the job failed before encoding.
func (s *Scheduler) start(job *Job) bool {
	if err := job.transition(StatusRunning); err != nil {
		logging.Error("cannot start job", "job", job.Name, "error", err)
		return false
	}
	job.Started = time.Now()

	queued := 0
	for _, j := range s.jobs {
		if j.Status == StatusQueued {
			queued++
		}
	}
	index := len(s.outcomes) + 1
	info := reporter.JobInfo{
		ID:        job.ID,
		Name:      job.Name,
		OutputDir: job.OutputDir,
		Index:     index,
		Total:     index + queued,
	}

	s.rep.JobStarted(reporter.JobStartInfo{
		Job:    info,
		Inputs: job.Inputs(),
		Frames: job.Frames(),
		Preset: job.Preset.Name,
		SAR:    job.SAR,
	})
	s.log.Info("Started job %s: %s", job.Name, strings.Join(job.Inputs(), ", "))

	builder := job.Builder(s.cfg)
	parallelism := builder.Parallelism
	target := script.SelectTargetDimension(job.Clips, job.Target)
	segments, err := builder.Build(job.Clips, target)
	if err != nil {
		s.rep.Error(reporter.ReporterError{
			Title:   "Segment Build Error",
			Message: err.Error(),
			Context: fmt.Sprintf("Job: %s", job.Name),
		})
		s.finish(job, info, StatusFailed, buildFailurePrefix+err.Error())
		return false
	}
	job.Segments = segments

	plan := reporter.SegmentPlan{Job: info, Target: target.String(), Parallelism: parallelism}
	tasks := make([]worker.Task, len(segments))
	for i, seg := range segments {
		argv := x264.EncodeArgs(s.cfg.Encoder, job.Preset.Args, job.SAR, seg.OutputPath, seg.ScriptPath)
		tasks[i] = worker.Task{Ordinal: seg.Ordinal, Argv: argv, Frames: seg.FrameCount}
		plan.Segments = append(plan.Segments, reporter.SegmentInfo{
			Ordinal:    seg.Ordinal,
			Frames:     seg.FrameCount,
			ScriptPath: seg.ScriptPath,
		})
		s.log.Debug("Segment %d command: %s", seg.Ordinal, util.CommandString(argv))
	}
	s.rep.SegmentsPlanned(plan)

	req := merge.Request{
		Executable:   s.cfg.Merger,
		OutputDir:    job.OutputDir,
		JobName:      job.Name,
		ContainerExt: s.cfg.ContainerExt,
		Segments:     segments,
		Cleanup:      job.Cleanup,
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool := encode.NewPool(parallelism, tasks,
		encode.WithRunner(s.runner),
		encode.WithResultCallback(s.segmentDone),
	)
	s.running = &activeJob{job: job, info: info, pool: pool, cancel: cancel}

	go func() {
		s.finished <- s.runPipeline(ctx, pool, req)
	}()
	return true
}

// runPipeline encodes all segments and merges them. It runs on its own
// goroutine and touches no scheduler state.
func (s *Scheduler) runPipeline(ctx context.Context, pool *encode.Pool, req merge.Request) pipelineResult {
	results := pool.Encode(ctx)
	if ctx.Err() != nil {
		return pipelineResult{cancelled: true}
	}
	if err := encode.FirstFailure(results); err != nil {
		return pipelineResult{err: err}
	}

	s.log.Info("Merging %d segment(s): %s", len(req.Segments), util.CommandString(req.Args()))
	start := time.Now()
	output, err := s.merger(req)
	metrics.ObserveMerge(time.Since(start))
	if err != nil {
		return pipelineResult{err: err}
	}
	return pipelineResult{output: output}
}

func (s *Scheduler) segmentDone(res worker.Result) {
	switch {
	case res.Success():
		metrics.RecordSegment("success")
	case coreerrors.IsInterrupted(res.Error):
		metrics.RecordSegment("interrupted")
	default:
		metrics.RecordSegment("failed")
		s.log.Error("Segment %d failed: %v (last output: %s)", res.Ordinal, res.Error, res.LastLine)
	}
}

// complete records the outcome of the running job's pipeline.
func (s *Scheduler) complete(res pipelineResult) {
	s.poll()

	r := s.running
	s.running = nil
	r.cancel()

	switch {
	case res.cancelled:
		s.finish(r.job, r.info, StatusCancelled, "")
	case res.err != nil:
		s.finish(r.job, r.info, StatusFailed, res.err.Error())
	default:
		r.job.OutputPath = res.output
		s.finish(r.job, r.info, StatusFinished, MessageCompleted)
	}

	if r.removed {
		for i, j := range s.jobs {
			if j == r.job {
				s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
				break
			}
		}
	}
}

// finish moves job to a terminal status and notifies listeners.
func (s *Scheduler) finish(job *Job, info reporter.JobInfo, status JobStatus, message string) {
	if err := job.transition(status); err != nil {
		logging.Error("cannot finish job", "job", job.Name, "error", err)
		return
	}
	job.Completed = time.Now()
	job.Message = message

	outcome := reporter.JobOutcome{
		Job:        info,
		Status:     status.String(),
		Message:    message,
		OutputPath: job.OutputPath,
		Frames:     job.Frames(),
		Elapsed:    job.Elapsed(),
	}
	if job.OutputPath != "" {
		outcome.OutputSize, _ = util.GetFileSize(job.OutputPath)
	}
	s.outcomes = append(s.outcomes, outcome)

	metrics.RecordJob(strings.ToLower(status.String()))
	s.rep.JobCompleted(outcome)

	elapsed := util.FormatDuration(outcome.Elapsed)
	switch status {
	case StatusFailed:
		s.log.Error("Job %s failed after %s: %s", job.Name, elapsed, message)
	case StatusCancelled:
		s.log.Warn("Job %s cancelled after %s", job.Name, elapsed)
	default:
		s.log.Info("Job %s finished in %s: %s", job.Name, elapsed, job.OutputPath)
	}
}

// finishRun ends the current run and wakes Wait callers.
func (s *Scheduler) finishRun() {
	if !s.active {
		return
	}
	s.active = false
	s.stopping = false

	summary := reporter.BatchSummary{
		Total:   len(s.outcomes),
		Elapsed: time.Since(s.runStart),
		Jobs:    s.outcomes,
	}
	for _, o := range s.outcomes {
		switch o.Status {
		case StatusFinished.String():
			summary.Finished++
		case StatusFailed.String():
			summary.Failed++
		case StatusCancelled.String():
			summary.Cancelled++
		}
	}
	s.outcomes = nil

	s.rep.AllJobsCompleted(summary)
	s.log.Info("All jobs completed: %d finished, %d failed, %d cancelled",
		summary.Finished, summary.Failed, summary.Cancelled)
	s.releaseWaiters()
}

func (s *Scheduler) releaseWaiters() {
	for _, w := range s.waiters {
		close(w)
	}
	s.waiters = nil
}

// poll publishes the running job's progress.
func (s *Scheduler) poll() {
	if s.running == nil {
		return
	}
	snap := s.snapshot()
	metrics.SetProgress(snap.FramesDone, snap.FPS)
	s.rep.JobProgress(snap)
}

// snapshot aggregates progress. Frames of terminal jobs that got as far as
// building segments count as done.
func (s *Scheduler) snapshot() reporter.ProgressSnapshot {
	var snap reporter.ProgressSnapshot
	for _, j := range s.jobs {
		frames := j.Frames()
		snap.FramesTotal += frames
		if j.Status.IsTerminal() {
			snap.JobsDone++
			if j.Segments != nil {
				snap.FramesDone += frames
			}
		}
	}
	snap.JobsTotal = len(s.jobs)

	if r := s.running; r != nil {
		p := r.pool.Progress()
		snap.Job = r.info
		snap.JobFramesDone = p.FramesComplete
		snap.JobFramesTotal = p.FramesTotal
		snap.FPS = p.FPS
		snap.SegmentsComplete = p.SegmentsComplete
		snap.SegmentsTotal = p.SegmentsTotal
		snap.ETA = util.EstimateRemaining(p.FramesComplete, p.FramesTotal, p.FPS)
		snap.FramesDone += p.FramesComplete
	}
	return snap
}
