package entity

type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeSkipped OutcomeStatus = "skipped"
)

// Outcome is what a worker handler reports for a single consumed job.
// Jobs never fail the consume loop: a job that cannot produce a usable
// result is Skipped (and still acknowledged), never retried. Reason is
// set only on the skip path.
type Outcome struct {
	Status OutcomeStatus
	Reason string
}

func Success() Outcome {
	return Outcome{Status: OutcomeSuccess}
}

func Skipped(reason string) Outcome {
	return Outcome{Status: OutcomeSkipped, Reason: reason}
}
