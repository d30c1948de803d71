package reporter

// Reporter defines the interface for progress reporting.
type Reporter interface {
	Hardware(summary HardwareSummary)
	BatchStarted(info BatchStartInfo)
	JobStarted(info JobStartInfo)
	SegmentsPlanned(plan SegmentPlan)
	JobProgress(progress ProgressSnapshot)
	JobCompleted(outcome JobOutcome)
	AllJobsCompleted(summary BatchSummary)
	Warning(message string)
	Error(err ReporterError)
	Verbose(message string)
}

// NullReporter is a no-op reporter that discards all updates.
type NullReporter struct{}

func (NullReporter) Hardware(HardwareSummary)      {}
func (NullReporter) BatchStarted(BatchStartInfo)   {}
func (NullReporter) JobStarted(JobStartInfo)       {}
func (NullReporter) SegmentsPlanned(SegmentPlan)   {}
func (NullReporter) JobProgress(ProgressSnapshot)  {}
func (NullReporter) JobCompleted(JobOutcome)       {}
func (NullReporter) AllJobsCompleted(BatchSummary) {}
func (NullReporter) Warning(string)                {}
func (NullReporter) Error(ReporterError)           {}
func (NullReporter) Verbose(string)                {}
