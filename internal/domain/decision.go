package domain

// Reason explains why a user was or was not matched.
type Reason string

const (
	ReasonNational Reason = "national"
	ReasonLocal    Reason = "local"
	ReasonNone     Reason = "none"
)

// RegionFault records a stored region that could not be evaluated.
type RegionFault struct {
	UserID string `json:"userId"`
	Region string `json:"region"`
	Error  string `json:"error"`
}

// MatchDecision is the resolver's verdict for one (user, report) pair.
type MatchDecision struct {
	UserID   string        `json:"userId"`
	ReportID string        `json:"reportId"`
	Matched  bool          `json:"matched"`
	Reason   Reason        `json:"reason"`
	Faults   []RegionFault `json:"faults,omitempty"`
}
