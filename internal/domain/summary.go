package domain

import "time"

// State is a step of the per-event orchestration.
type State string

const (
	StateReceived    State = "received"
	StateValidated   State = "validated"
	StateScanning    State = "scanning"
	StateDispatching State = "dispatching"
	StateCompleted   State = "completed"
)

// Summary aggregates one invocation.
type Summary struct {
	ReportID       string            `json:"reportId"`
	CorrelationID  string            `json:"correlationId,omitempty"`
	State          State             `json:"state"`
	NoOpReason     string            `json:"noOpReason,omitempty"`
	UsersScanned   int               `json:"usersScanned"`
	UsersMatched   int               `json:"usersMatched"`
	MatchedBy      map[Reason]int    `json:"matchedBy,omitempty"`
	IntentsSent    int               `json:"intentsSent"`
	IntentsSkipped int               `json:"intentsSkipped"`
	IntentsFailed  int               `json:"intentsFailed"`
	RegionFaults   []RegionFault     `json:"regionFaults,omitempty"`
	Outcomes       []DispatchOutcome `json:"-"`
	Cancelled      bool              `json:"cancelled,omitempty"`
	Duration       time.Duration     `json:"duration"`
}

// Record folds a dispatch outcome into the counters.
func (s *Summary) Record(o DispatchOutcome) {
	switch o.Kind {
	case OutcomeSent:
		s.IntentsSent++
	case OutcomeSkipped:
		s.IntentsSkipped++
	case OutcomeFailed:
		s.IntentsFailed++
	}
	s.Outcomes = append(s.Outcomes, o)
}

// RecordMatch counts a matched user under its reason.
func (s *Summary) RecordMatch(reason Reason) {
	if s.MatchedBy == nil {
		s.MatchedBy = make(map[Reason]int)
	}
	s.UsersMatched++
	s.MatchedBy[reason]++
}
