package reporter

// CompositeReporter fans out events to multiple reporters.
type CompositeReporter struct {
	reporters []Reporter
}

// NewCompositeReporter creates a composite reporter.
func NewCompositeReporter(reporters ...Reporter) *CompositeReporter {
	return &CompositeReporter{reporters: reporters}
}

func (c *CompositeReporter) Hardware(summary HardwareSummary) {
	for _, r := range c.reporters {
		r.Hardware(summary)
	}
}

func (c *CompositeReporter) BatchStarted(info BatchStartInfo) {
	for _, r := range c.reporters {
		r.BatchStarted(info)
	}
}

func (c *CompositeReporter) JobStarted(info JobStartInfo) {
	for _, r := range c.reporters {
		r.JobStarted(info)
	}
}

func (c *CompositeReporter) SegmentsPlanned(plan SegmentPlan) {
	for _, r := range c.reporters {
		r.SegmentsPlanned(plan)
	}
}

func (c *CompositeReporter) JobProgress(progress ProgressSnapshot) {
	for _, r := range c.reporters {
		r.JobProgress(progress)
	}
}

func (c *CompositeReporter) JobCompleted(outcome JobOutcome) {
	for _, r := range c.reporters {
		r.JobCompleted(outcome)
	}
}

func (c *CompositeReporter) AllJobsCompleted(summary BatchSummary) {
	for _, r := range c.reporters {
		r.AllJobsCompleted(summary)
	}
}

func (c *CompositeReporter) Warning(message string) {
	for _, r := range c.reporters {
		r.Warning(message)
	}
}

func (c *CompositeReporter) Error(err ReporterError) {
	for _, r := range c.reporters {
		r.Error(err)
	}
}

func (c *CompositeReporter) Verbose(message string) {
	for _, r := range c.reporters {
		r.Verbose(message)
	}
}
