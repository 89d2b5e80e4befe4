package jobs

import "time"

// Status represents the lifecycle of a reconciliation job.
type Status string

const (
	StatusPending     Status = "pending"
	StatusNormalizing Status = "normalizing"
	StatusMatching    Status = "matching"
	StatusReporting   Status = "reporting"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusNormalizing,
	StatusMatching,
	StatusReporting,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// processingStatuses are the in-flight states a crashed daemon can leave
// behind; ResetStuck returns them to pending.
var processingStatuses = map[Status]struct{}{
	StatusNormalizing: {},
	StatusMatching:    {},
	StatusReporting:   {},
}

// Valid reports whether the status is a known lifecycle state.
func (s Status) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// Terminal reports whether a job in this status will receive no further work.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one reconciliation request moving through the pipeline.
type Job struct {
	ID    int64
	Token string

	Status       Status
	ErrorMessage string

	CarrierAPath string
	CarrierBPath string

	TimeTolerance     int64
	DurationTolerance int64
	GroupCeiling      int

	// ReconDate anchors bare time-of-day values in the uploads, YYYY-MM-DD.
	ReconDate string

	SummaryJSON string
	ReportDir   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Settings are the per-job matching parameters captured at submission time.
type Settings struct {
	TimeTolerance     int64
	DurationTolerance int64
	GroupCeiling      int
	ReconDate         string
}
