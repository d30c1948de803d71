package avsbatch

import (
	"time"

	"github.com/five82/avsbatch/internal/reporter"
)

// Event types
const (
	EventTypeJobStarted    = "job_started"
	EventTypeJobProgress   = "job_progress"
	EventTypeJobCompleted  = "job_completed"
	EventTypeBatchComplete = "batch_complete"
	EventTypeWarning       = "warning"
	EventTypeError         = "error"
)

// Event is implemented by every event passed to an EventHandler.
type Event interface {
	Type() string
	Timestamp() time.Time
}

// EventHandler receives encoder events. It is called from the encoder's
// scheduling goroutine and must not call back into the Encoder. Returned
// errors are ignored.
type EventHandler func(Event) error

// BaseEvent carries the fields shared by all events.
type BaseEvent struct {
	EventType string    `json:"type"`
	Time      time.Time `json:"timestamp"`
}

func (e BaseEvent) Type() string         { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

func newBase(eventType string) BaseEvent {
	return BaseEvent{EventType: eventType, Time: time.Now()}
}

// JobStartedEvent is sent when a job starts encoding.
type JobStartedEvent struct {
	BaseEvent
	JobID  string   `json:"job_id"`
	Name   string   `json:"name"`
	Inputs []string `json:"inputs"`
	Frames int64    `json:"frames"`
}

// JobProgressEvent reports the running job's progress.
type JobProgressEvent struct {
	BaseEvent
	JobID        string  `json:"job_id"`
	Percent      float64 `json:"percent"`
	TotalPercent float64 `json:"total_percent"`
	FPS          float64 `json:"fps"`
	ETASeconds   int64   `json:"eta_seconds"`
}

// JobCompletedEvent is sent when a job reaches a terminal status.
type JobCompletedEvent struct {
	BaseEvent
	JobID      string `json:"job_id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	OutputFile string `json:"output_file"`
}

// BatchCompleteEvent is sent when the queue has drained.
type BatchCompleteEvent struct {
	BaseEvent
	Finished  int `json:"finished"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}

// WarningEvent carries a warning message.
type WarningEvent struct {
	BaseEvent
	Message string `json:"message"`
}

// ErrorEvent carries an error report.
type ErrorEvent struct {
	BaseEvent
	Title      string `json:"title"`
	Message    string `json:"message"`
	Context    string `json:"context"`
	Suggestion string `json:"suggestion"`
}

// eventReporter adapts EventHandler to the Reporter interface.
type eventReporter struct {
	handler EventHandler
}

func newEventReporter(handler EventHandler) *eventReporter {
	return &eventReporter{handler: handler}
}

func (r *eventReporter) Hardware(reporter.HardwareSummary)    {}
func (r *eventReporter) BatchStarted(reporter.BatchStartInfo) {}
func (r *eventReporter) SegmentsPlanned(reporter.SegmentPlan) {}
func (r *eventReporter) Verbose(string)                       {}

func (r *eventReporter) JobStarted(info reporter.JobStartInfo) {
	_ = r.handler(JobStartedEvent{
		BaseEvent: newBase(EventTypeJobStarted),
		JobID:     info.Job.ID,
		Name:      info.Job.Name,
		Inputs:    info.Inputs,
		Frames:    info.Frames,
	})
}

func (r *eventReporter) JobProgress(p reporter.ProgressSnapshot) {
	_ = r.handler(JobProgressEvent{
		BaseEvent:    newBase(EventTypeJobProgress),
		JobID:        p.Job.ID,
		Percent:      p.JobPercent(),
		TotalPercent: p.TotalPercent(),
		FPS:          p.FPS,
		ETASeconds:   int64(p.ETA.Seconds()),
	})
}

func (r *eventReporter) JobCompleted(o reporter.JobOutcome) {
	_ = r.handler(JobCompletedEvent{
		BaseEvent:  newBase(EventTypeJobCompleted),
		JobID:      o.Job.ID,
		Name:       o.Job.Name,
		Status:     o.Status,
		Message:    o.Message,
		OutputFile: o.OutputPath,
	})
}

func (r *eventReporter) AllJobsCompleted(s reporter.BatchSummary) {
	_ = r.handler(BatchCompleteEvent{
		BaseEvent: newBase(EventTypeBatchComplete),
		Finished:  s.Finished,
		Failed:    s.Failed,
		Cancelled: s.Cancelled,
		Total:     s.Total,
	})
}

func (r *eventReporter) Warning(message string) {
	_ = r.handler(WarningEvent{
		BaseEvent: newBase(EventTypeWarning),
		Message:   message,
	})
}

func (r *eventReporter) Error(e reporter.ReporterError) {
	_ = r.handler(ErrorEvent{
		BaseEvent:  newBase(EventTypeError),
		Title:      e.Title,
		Message:    e.Message,
		Context:    e.Context,
		Suggestion: e.Suggestion,
	})
}
