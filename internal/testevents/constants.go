package testevents

// Response outcomes counted by the replay.
const (
	OutcomeDelivered    = "delivered"
	OutcomeDeduplicated = "deduplicated"
	OutcomeSuppressed   = "suppressed"
	OutcomeRejected     = "rejected"
	OutcomeFailed       = "failed"
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
	defaultWorkers       = 8
)
