package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/five82/avsbatch/internal/util"
)

// TerminalReporter outputs human-friendly text to the terminal.
type TerminalReporter struct {
	mu         sync.Mutex
	out        io.Writer
	errOut     io.Writer
	progress   *progressbar.ProgressBar
	maxPercent float64
	verbose    bool
	cyan       *color.Color
	green      *color.Color
	yellow     *color.Color
	red        *color.Color
	magenta    *color.Color
	bold       *color.Color
	faint      *color.Color
}

// NewTerminalReporter creates a new terminal reporter.
func NewTerminalReporter(verbose bool) *TerminalReporter {
	return NewTerminalReporterWithWriters(os.Stdout, os.Stderr, verbose)
}

// NewTerminalReporterWithWriters creates a terminal reporter writing text to
// out and the progress bar and errors to errOut.
func NewTerminalReporterWithWriters(out, errOut io.Writer, verbose bool) *TerminalReporter {
	return &TerminalReporter{
		out:     out,
		errOut:  errOut,
		verbose: verbose,
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow, color.Bold),
		red:     color.New(color.FgRed, color.Bold),
		magenta: color.New(color.FgMagenta),
		bold:    color.New(color.Bold),
		faint:   color.New(color.Faint),
	}
}

func (r *TerminalReporter) finishProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
	r.maxPercent = 0
}

// printLabel prints a bold label with fixed width padding followed by a value.
// Width is applied to the plain text before styling to ensure proper alignment.
func (r *TerminalReporter) printLabel(width int, label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", width, label)
	_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) heading(title string) {
	_, _ = fmt.Fprintln(r.out)
	_, _ = r.cyan.Fprintln(r.out, title)
}

func (r *TerminalReporter) Hardware(summary HardwareSummary) {
	r.heading("HARDWARE")
	r.printLabel(10, "Hostname:", summary.Hostname)
	r.printLabel(10, "Cores:", fmt.Sprintf("%d logical", summary.LogicalCores))
}

func (r *TerminalReporter) BatchStarted(info BatchStartInfo) {
	r.heading("QUEUE")
	_, _ = fmt.Fprintf(r.out, "  Encoding %d job(s), %s frames\n", info.TotalJobs, util.FormatFrames(info.TotalFrames))
	for i, name := range info.JobNames {
		_, _ = fmt.Fprintf(r.out, "  %d. %s\n", i+1, name)
	}
}

func (r *TerminalReporter) JobStarted(info JobStartInfo) {
	r.finishProgress()

	r.heading(strings.ToUpper(fmt.Sprintf("JOB %d/%d", info.Job.Index, info.Job.Total)))
	r.printLabel(8, "Name:", r.bold.Sprint(info.Job.Name))
	r.printLabel(8, "Output:", info.Job.OutputDir)
	r.printLabel(8, "Frames:", util.FormatFrames(info.Frames))
	r.printLabel(8, "Preset:", info.Preset)
	r.printLabel(8, "SAR:", info.SAR)
	for _, in := range info.Inputs {
		_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.magenta.Sprint("›"), util.GetFilename(in))
	}
}

func (r *TerminalReporter) SegmentsPlanned(plan SegmentPlan) {
	_, _ = fmt.Fprintf(r.out, "  %s %d segment(s) at %s, %d parallel\n",
		r.magenta.Sprint("›"), len(plan.Segments), plan.Target, plan.Parallelism)
	if r.verbose {
		for _, seg := range plan.Segments {
			_, _ = fmt.Fprintf(r.out, "    %d: %s frames (%s)\n",
				seg.Ordinal, util.FormatFrames(seg.Frames), util.GetFilename(seg.ScriptPath))
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.progress = progressbar.NewOptions64(
		100,
		progressbar.OptionSetDescription(""),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(r.errOut),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "Encoding [",
			BarEnd:        "]",
		}),
	)
}

func (r *TerminalReporter) JobProgress(progress ProgressSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress == nil {
		return
	}

	clamped := min(max(progress.JobPercent(), 0), 100)
	if clamped >= r.maxPercent {
		r.maxPercent = clamped
		_ = r.progress.Set64(int64(clamped))
	}

	desc := fmt.Sprintf("segments %d/%d, fps %.1f, eta %s, queue %.1f%%",
		progress.SegmentsComplete, progress.SegmentsTotal, progress.FPS,
		util.FormatDuration(progress.ETA), progress.TotalPercent())
	r.progress.Describe(desc)
}

func (r *TerminalReporter) JobCompleted(outcome JobOutcome) {
	r.finishProgress()

	var status string
	switch outcome.Status {
	case "Finished":
		status = color.New(color.FgGreen, color.Bold).Sprint("✓ finished")
	case "Cancelled":
		status = r.yellow.Sprint("cancelled")
	default:
		status = r.red.Sprint("✗ " + strings.ToLower(outcome.Status))
	}

	_, _ = fmt.Fprintf(r.out, "  %s %s in %s\n", r.bold.Sprint(outcome.Job.Name), status,
		util.FormatDuration(outcome.Elapsed))
	if outcome.Message != "" && outcome.Status != "Finished" {
		_, _ = fmt.Fprintf(r.out, "  %s\n", r.faint.Sprint(outcome.Message))
	}
	if outcome.OutputPath != "" {
		_, _ = fmt.Fprintf(r.out, "  %s %s (%s)\n", r.bold.Sprint("Saved to"),
			r.green.Sprint(outcome.OutputPath), util.FormatBytes(outcome.OutputSize))
	}
}

func (r *TerminalReporter) AllJobsCompleted(summary BatchSummary) {
	r.finishProgress()

	r.heading("SUMMARY")
	_, _ = fmt.Fprintf(r.out, "  %s\n", r.bold.Sprintf("%d of %d finished", summary.Finished, summary.Total))
	_, _ = fmt.Fprintf(r.out, "  Failed: %s, cancelled: %s\n",
		r.red.Sprint(summary.Failed), r.yellow.Sprint(summary.Cancelled))
	_, _ = fmt.Fprintf(r.out, "  Time: %s\n", util.FormatDuration(summary.Elapsed))

	for _, job := range summary.Jobs {
		_, _ = fmt.Fprintf(r.out, "  - %s: %s\n", job.Job.Name, job.Status)
	}
}

func (r *TerminalReporter) Warning(message string) {
	_, _ = fmt.Fprintln(r.out)
	_, _ = r.yellow.Fprintf(r.out, "WARN: %s\n", message)
}

func (r *TerminalReporter) Error(err ReporterError) {
	_, _ = fmt.Fprintln(r.errOut)
	_, _ = r.red.Fprintf(r.errOut, "ERROR %s\n", err.Title)
	_, _ = fmt.Fprintf(r.errOut, "  %s\n", err.Message)
	if err.Context != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Suggestion: %s\n", err.Suggestion)
	}
}

func (r *TerminalReporter) Verbose(message string) {
	if !r.verbose {
		return
	}
	_, _ = fmt.Fprintf(r.out, "  %s\n", r.faint.Sprint(message))
}
