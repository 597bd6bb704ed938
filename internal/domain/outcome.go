package domain

// OutcomeKind classifies what happened to an intent.
type OutcomeKind string

const (
	OutcomeSent    OutcomeKind = "sent"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeFailed  OutcomeKind = "failed"
)

// Skip and failure reasons recorded on outcomes.
const (
	SkipDuplicate = "duplicate"
	SkipInFlight  = "in_flight"

	FailTimeout   = "timeout"
	FailCancelled = "cancelled"
	FailUncertain = "uncertain"
	FailRejected  = "rejected"
	FailGuard     = "guard"
)

// DispatchOutcome is the result of executing one intent.
type DispatchOutcome struct {
	Key    Key         `json:"key"`
	Kind   OutcomeKind `json:"kind"`
	Reason string      `json:"reason,omitempty"`
	Err    error       `json:"-"`
}

// Error returns the failure message, if any.
func (o DispatchOutcome) Error() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
