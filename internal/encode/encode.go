// Package encode runs segment encoders in parallel and aggregates their progress.
package encode

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/five82/avsbatch/internal/errors"
	"github.com/five82/avsbatch/internal/logging"
	"github.com/five82/avsbatch/internal/util"
	"github.com/five82/avsbatch/internal/worker"
	"github.com/five82/avsbatch/internal/x264"
)

// RunFunc executes one encoder command. x264.Run is the production runner.
type RunFunc func(ctx context.Context, argv []string, onLine x264.LineCallback) x264.Result

// ResultCallback is called as each segment finishes, in completion order.
type ResultCallback func(result worker.Result)

// Pool encodes a fixed set of segment tasks with bounded parallelism.
type Pool struct {
	parallelism int
	tasks       []worker.Task
	statuses    []*worker.Status
	completed   atomic.Int32
	run         RunFunc
	onResult    ResultCallback
}

// Option configures a Pool.
type Option func(*Pool)

// WithRunner replaces the encoder runner.
func WithRunner(run RunFunc) Option {
	return func(p *Pool) { p.run = run }
}

// WithResultCallback registers a callback for finished segments.
func WithResultCallback(cb ResultCallback) Option {
	return func(p *Pool) { p.onResult = cb }
}

// EffectiveParallelism resolves a configured parallelism, where 0 means one
// encoder per logical CPU.
func EffectiveParallelism(parallelism int) int {
	if parallelism <= 0 {
		return max(util.LogicalCores(), 1)
	}
	return parallelism
}

// NewPool creates a pool for tasks.
func NewPool(parallelism int, tasks []worker.Task, opts ...Option) *Pool {
	p := &Pool{
		parallelism: EffectiveParallelism(parallelism),
		tasks:       tasks,
		statuses:    make([]*worker.Status, len(tasks)),
		run:         x264.Run,
	}
	for i, t := range tasks {
		p.statuses[i] = worker.NewStatus(t.Frames)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Encode runs every task and blocks until all of them have finished. A failed
// segment does not stop its siblings. Cancelling ctx interrupts running
// encoders and keeps queued ones from starting. Results are returned in
// segment order.
func (p *Pool) Encode(ctx context.Context) []worker.Result {
	results := make([]worker.Result, len(p.tasks))
	resultChan := make(chan worker.Result, len(p.tasks))

	// Start result collector
	var collectorWg sync.WaitGroup
	collectorWg.Add(1)
	go func() {
		defer collectorWg.Done()
		for res := range resultChan {
			p.completed.Add(1)
			if p.onResult != nil {
				p.onResult(res)
			}
		}
	}()

	g := new(errgroup.Group)
	g.SetLimit(p.parallelism)
	for i := range p.tasks {
		i := i
		g.Go(func() error {
			res := p.runSegment(ctx, p.tasks[i], p.statuses[i])
			results[i] = res
			resultChan <- res
			return nil
		})
	}

	// Barrier: every segment has exited before results are returned.
	_ = g.Wait()
	close(resultChan)
	collectorWg.Wait()

	sort.SliceStable(results, func(a, b int) bool { return results[a].Ordinal < results[b].Ordinal })
	return results
}

// runSegment encodes one segment, feeding its status lines into status.
func (p *Pool) runSegment(ctx context.Context, task worker.Task, status *worker.Status) worker.Result {
	cmdline := util.CommandString(task.Argv)
	if ctx.Err() != nil {
		return worker.Result{
			Ordinal:  task.Ordinal,
			Frames:   task.Frames,
			ExitCode: -1,
			Error:    errors.NewEncodeInterruptedError(cmdline),
		}
	}

	logging.Debug("encoding segment", "ordinal", task.Ordinal, "command", cmdline)

	res := p.run(ctx, task.Argv, func(line string) {
		if prog, ok := x264.ParseProgressLine(line); ok {
			status.Update(prog.FramesDone, prog.FPS, line)
			return
		}
		status.Observe(line)
	})

	if res.Success {
		// The summary line reports the final count; make sure a segment
		// that printed none still counts as done.
		status.Update(status.Target(), 0, res.LastLine)
	} else {
		frames, _, line := status.Snapshot()
		status.Update(frames, 0, line)
		logging.Warn("segment failed", "ordinal", task.Ordinal, "error", res.Error)
	}

	return worker.Result{
		Ordinal:  task.Ordinal,
		Frames:   task.Frames,
		ExitCode: res.ExitCode,
		LastLine: res.LastLine,
		Error:    res.Error,
	}
}

// Progress aggregates the live state of all segments. Frames are the sum of
// each segment's latest count, clamped to its target, and fps is the sum of
// each segment's latest rate.
func (p *Pool) Progress() worker.Progress {
	prog := worker.Progress{
		SegmentsTotal:    len(p.tasks),
		SegmentsComplete: int(p.completed.Load()),
	}
	for i, s := range p.statuses {
		frames, fps, _ := s.Snapshot()
		prog.FramesComplete += frames
		prog.FramesTotal += p.tasks[i].Frames
		prog.FPS += fps
	}
	return prog
}

// LastLines returns the most recent output line of every segment, in order.
func (p *Pool) LastLines() []string {
	lines := make([]string, len(p.statuses))
	for i, s := range p.statuses {
		_, _, lines[i] = s.Snapshot()
	}
	return lines
}

// FirstFailure returns the error of the lowest-numbered failed segment, or nil.
func FirstFailure(results []worker.Result) error {
	for _, r := range results {
		if r.Error != nil {
			return r.Error
		}
	}
	return nil
}
