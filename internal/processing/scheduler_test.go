package processing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/five82/avsbatch/internal/config"
	"github.com/five82/avsbatch/internal/encode"
	coreerrors "github.com/five82/avsbatch/internal/errors"
	"github.com/five82/avsbatch/internal/merge"
	"github.com/five82/avsbatch/internal/reporter"
	"github.com/five82/avsbatch/internal/script"
	"github.com/five82/avsbatch/internal/x264"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorder is a reporter that keeps the events the tests look at.
type recorder struct {
	reporter.NullReporter
	mu        sync.Mutex
	batches   int
	started   []string
	completed []reporter.JobOutcome
	summaries []reporter.BatchSummary
}

func (r *recorder) BatchStarted(reporter.BatchStartInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches++
}

func (r *recorder) JobStarted(info reporter.JobStartInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, info.Job.Name)
}

func (r *recorder) JobCompleted(o reporter.JobOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, o)
}

func (r *recorder) AllJobsCompleted(s reporter.BatchSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, s)
}

// fakeMerger records merge requests without running anything.
type fakeMerger struct {
	mu       sync.Mutex
	requests []merge.Request
}

func (m *fakeMerger) merge(req merge.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return req.OutputPath(), nil
}

func (m *fakeMerger) jobNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for _, r := range m.requests {
		names = append(names, r.JobName)
	}
	return names
}

func newClip(t *testing.T, name string, frames int64) *script.Clip {
	t.Helper()
	cmds := []script.Command{
		{Kind: script.KindIndexedSource, Text: `DGDecode_mpeg2source("` + name + `.d2v")`},
		script.NewTrim(0, frames-1),
		{Kind: script.KindCrop, Text: "crop(0,0,0,0)"},
	}
	clip, err := script.NewClip(name+".avs", cmds, script.Dimension{Width: 720, Height: 480})
	if err != nil {
		t.Fatalf("NewClip() error = %v", err)
	}
	return clip
}

func newJob(t *testing.T, name string, frames int64) Job {
	t.Helper()
	return Job{
		Name:      name,
		Clips:     []*script.Clip{newClip(t, name, frames)},
		SAR:       config.DefaultSAR,
		OutputDir: t.TempDir(),
		Preset:    config.EncoderPreset{Name: "test", Args: config.Args{"--crf", "20"}},
	}
}

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Parallelism = 2
	cfg.PollInterval = 10 * time.Millisecond
	return cfg
}

func scriptPath(argv []string) string {
	return argv[len(argv)-1]
}

// runner dispatches on the segment script name. Scripts of jobs named
// slow* block until cancelled, bad_seg_1 exits with code 2 and everything
// else succeeds.
func runner(started chan<- string) encode.RunFunc {
	return func(ctx context.Context, argv []string, onLine x264.LineCallback) x264.Result {
		name := filepath.Base(scriptPath(argv))
		switch {
		case strings.HasPrefix(name, "slow"):
			onLine("[ 10/100 ], 5.00 fps, 800 kb/s")
			started <- name
			<-ctx.Done()
			return x264.Result{ExitCode: -1, Error: coreerrors.NewEncodeInterruptedError(name)}
		case name == "bad_seg_1.avs":
			return x264.Result{ExitCode: 2, LastLine: "x264 [error]: boom", Error: coreerrors.NewEncodeError(name, 2, "boom")}
		default:
			onLine("encoded 100 frames, 30.00 fps")
			return x264.Result{Success: true, LastLine: "encoded 100 frames, 30.00 fps"}
		}
	}
}

func newScheduler(t *testing.T, rec *recorder, m *fakeMerger, started chan string) *Scheduler {
	t.Helper()
	s := NewScheduler(testConfig(),
		WithReporter(rec),
		WithEncodeRunner(runner(started)),
		WithMerger(m.merge),
	)
	t.Cleanup(s.Close)
	return s
}

func waitIdle(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func awaitStarts(t *testing.T, started <-chan string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-started:
		case <-time.After(10 * time.Second):
			t.Fatalf("only %d of %d segments started", i, n)
		}
	}
}

func statuses(jobs []Job) []string {
	var out []string
	for _, j := range jobs {
		out = append(out, j.Name+":"+j.Status.String())
	}
	return out
}

func TestSchedulerRunsJobsInOrder(t *testing.T) {
	rec := &recorder{}
	m := &fakeMerger{}
	s := newScheduler(t, rec, m, make(chan string, 8))

	first, second := newJob(t, "first", 100), newJob(t, "second", 300)
	ids, err := s.Add(first, second)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if len(ids) != 2 || ids[0] == ids[1] || ids[0] == "" {
		t.Fatalf("ids = %v", ids)
	}

	if err := s.Encode(); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	waitIdle(t, s)

	jobs := s.Jobs()
	if diff := cmp.Diff([]string{"first:Finished", "second:Finished"}, statuses(jobs)); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
	for _, j := range jobs {
		if j.Message != MessageCompleted {
			t.Errorf("%s message = %q", j.Name, j.Message)
		}
		if j.OutputPath != filepath.Join(j.OutputDir, j.Name+".mkv") {
			t.Errorf("%s output = %q", j.Name, j.OutputPath)
		}
		if j.Started.IsZero() || j.Completed.Before(j.Started) {
			t.Errorf("%s timestamps = %v .. %v", j.Name, j.Started, j.Completed)
		}
	}

	if diff := cmp.Diff([]string{"first", "second"}, m.jobNames()); diff != "" {
		t.Errorf("merge order mismatch (-want +got):\n%s", diff)
	}
	segs := m.requests[1].Segments
	if len(segs) != 2 || segs[0].Ordinal != 0 || segs[1].Ordinal != 1 {
		t.Errorf("second job merged segments %+v", segs)
	}
	if segs[0].FrameCount+segs[1].FrameCount != 300 {
		t.Errorf("segment frames do not add up to the job's frames")
	}
	if _, err := os.Stat(segs[0].ScriptPath); err != nil {
		t.Errorf("segment script not written: %v", err)
	}

	if len(rec.summaries) != 1 || rec.summaries[0].Finished != 2 || rec.summaries[0].Total != 2 {
		t.Errorf("summaries = %+v", rec.summaries)
	}
}

func TestSchedulerFailureDoesNotStopQueue(t *testing.T) {
	rec := &recorder{}
	m := &fakeMerger{}
	s := newScheduler(t, rec, m, make(chan string, 8))

	if _, err := s.Add(newJob(t, "bad", 200), newJob(t, "good", 100)); err != nil {
		t.Fatal(err)
	}
	if err := s.Encode(); err != nil {
		t.Fatal(err)
	}
	waitIdle(t, s)

	jobs := s.Jobs()
	if diff := cmp.Diff([]string{"bad:Failed", "good:Finished"}, statuses(jobs)); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(jobs[0].Message, "2") {
		t.Errorf("failure message %q should carry the exit code", jobs[0].Message)
	}
	if diff := cmp.Diff([]string{"good"}, m.jobNames()); diff != "" {
		t.Errorf("failed job must not be merged (-want +got):\n%s", diff)
	}
}

func TestSchedulerBuildFailure(t *testing.T) {
	rec := &recorder{}
	m := &fakeMerger{}
	s := newScheduler(t, rec, m, make(chan string, 8))

	broken := newJob(t, "broken", 100)
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	broken.OutputDir = filepath.Join(blocker, "out")

	if _, err := s.Add(broken, newJob(t, "next", 100)); err != nil {
		t.Fatal(err)
	}
	if err := s.Encode(); err != nil {
		t.Fatal(err)
	}
	waitIdle(t, s)

	jobs := s.Jobs()
	if diff := cmp.Diff([]string{"broken:Failed", "next:Finished"}, statuses(jobs)); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(jobs[0].Message, "Failed to build segments due to: ") {
		t.Errorf("message = %q", jobs[0].Message)
	}
	if jobs[0].Segments != nil {
		t.Error("failed build should leave no segments")
	}
}

func TestSchedulerCancelRunsRemainingJobs(t *testing.T) {
	rec := &recorder{}
	m := &fakeMerger{}
	started := make(chan string, 8)
	s := newScheduler(t, rec, m, started)

	if _, err := s.Add(newJob(t, "slow", 200), newJob(t, "after", 100)); err != nil {
		t.Fatal(err)
	}
	if err := s.Encode(); err != nil {
		t.Fatal(err)
	}
	awaitStarts(t, started, 2)

	if err := s.Cancel(); err != nil {
		t.Fatal(err)
	}
	waitIdle(t, s)

	jobs := s.Jobs()
	if diff := cmp.Diff([]string{"slow:Cancelled", "after:Finished"}, statuses(jobs)); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
	if jobs[0].Message != "" {
		t.Errorf("cancelled message = %q, want empty", jobs[0].Message)
	}
	if diff := cmp.Diff([]string{"after"}, m.jobNames()); diff != "" {
		t.Errorf("cancelled job must not be merged (-want +got):\n%s", diff)
	}
}

func TestSchedulerCancelAll(t *testing.T) {
	rec := &recorder{}
	m := &fakeMerger{}
	started := make(chan string, 8)
	s := newScheduler(t, rec, m, started)

	if _, err := s.Add(newJob(t, "done", 50), newJob(t, "slow", 200), newJob(t, "queued", 100)); err != nil {
		t.Fatal(err)
	}
	if err := s.Encode(); err != nil {
		t.Fatal(err)
	}
	awaitStarts(t, started, 2)

	snap := s.Snapshot()
	if snap.JobFramesDone != 20 || snap.JobFramesTotal != 200 {
		t.Errorf("job progress = %d/%d, want 20/200", snap.JobFramesDone, snap.JobFramesTotal)
	}
	if snap.FPS != 10 {
		t.Errorf("fps = %v, want the sum 10", snap.FPS)
	}
	if snap.FramesDone != 70 || snap.FramesTotal != 350 {
		t.Errorf("queue progress = %d/%d, want 70/350", snap.FramesDone, snap.FramesTotal)
	}
	if snap.JobsDone != 1 || snap.JobsTotal != 3 || snap.Job.Name != "slow" {
		t.Errorf("snapshot = %+v", snap)
	}

	if err := s.CancelAll(); err != nil {
		t.Fatal(err)
	}
	waitIdle(t, s)

	if diff := cmp.Diff([]string{"done:Finished", "slow:Cancelled", "queued:Cancelled"}, statuses(s.Jobs())); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if diff := cmp.Diff([]string{"done", "slow"}, rec.started); diff != "" {
		t.Errorf("started jobs mismatch (-want +got):\n%s", diff)
	}
	if len(rec.summaries) != 1 || rec.summaries[0].Cancelled != 2 || rec.summaries[0].Finished != 1 {
		t.Errorf("summaries = %+v", rec.summaries)
	}
}

func TestSchedulerEncodeIsIdempotent(t *testing.T) {
	rec := &recorder{}
	started := make(chan string, 8)
	s := newScheduler(t, rec, &fakeMerger{}, started)

	if _, err := s.Add(newJob(t, "slow", 100)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := s.Encode(); err != nil {
			t.Fatal(err)
		}
	}
	awaitStarts(t, started, 2)
	if !s.Running() {
		t.Error("expected an active run")
	}
	if err := s.CancelAll(); err != nil {
		t.Fatal(err)
	}
	waitIdle(t, s)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.batches != 1 || len(rec.started) != 1 {
		t.Errorf("batches = %d, started = %v", rec.batches, rec.started)
	}
}

func TestSchedulerRemove(t *testing.T) {
	rec := &recorder{}
	started := make(chan string, 8)
	s := newScheduler(t, rec, &fakeMerger{}, started)

	ids, err := s.Add(newJob(t, "slow", 100), newJob(t, "dropped", 400), newJob(t, "kept", 100))
	if err != nil {
		t.Fatal(err)
	}

	n, err := s.Remove(ids[1])
	if err != nil || n != 1 {
		t.Fatalf("Remove() = %d, %v", n, err)
	}
	if got := s.Snapshot().FramesTotal; got != 200 {
		t.Errorf("FramesTotal = %d after removal, want 200", got)
	}

	if err := s.Encode(); err != nil {
		t.Fatal(err)
	}
	awaitStarts(t, started, 2)

	if n, err := s.Remove(ids[0]); err != nil || n != 1 {
		t.Fatalf("Remove(running) = %d, %v", n, err)
	}
	waitIdle(t, s)

	if diff := cmp.Diff([]string{"kept:Finished"}, statuses(s.Jobs())); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
}

func TestSchedulerAddRejectsEmptyJob(t *testing.T) {
	s := NewScheduler(testConfig())
	defer s.Close()

	if _, err := s.Add(Job{Name: "empty"}); err == nil {
		t.Error("expected error for a job without clips")
	}
}

func TestSchedulerClosed(t *testing.T) {
	s := NewScheduler(testConfig())
	s.Close()
	s.Close()

	if err := s.Encode(); !errors.Is(err, ErrClosed) {
		t.Errorf("Encode() after Close = %v, want ErrClosed", err)
	}
	if err := s.Wait(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Wait() after Close = %v, want ErrClosed", err)
	}
}

func TestSchedulerCloseInterruptsRunningJob(t *testing.T) {
	started := make(chan string, 8)
	s := NewScheduler(testConfig(), WithEncodeRunner(runner(started)), WithMerger((&fakeMerger{}).merge))

	if _, err := s.Add(newJob(t, "slow", 100)); err != nil {
		t.Fatal(err)
	}
	if err := s.Encode(); err != nil {
		t.Fatal(err)
	}
	awaitStarts(t, started, 2)
	s.Close()
}
