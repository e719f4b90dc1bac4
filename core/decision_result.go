package core

// DecisionResult represents the outcome of a business decision in a Decide function.
//
// IMPORTANT: DecisionResult should only be constructed using the provided factory methods:
// SuccessDecision(events...) or RejectedDecision(err).
type DecisionResult struct {
	Outcome string     // "success" or "rejected"
	Events  LoanEvents // empty for rejected decisions
	Err     error
}

const (
	successOutcome  = "success"
	rejectedOutcome = "rejected"
)

// SuccessDecision creates a DecisionResult with the events that describe the state changes to apply, in order.
func SuccessDecision(events ...LoanEvent) DecisionResult {
	return DecisionResult{
		Outcome: successOutcome,
		Events:  events,
	}
}

// RejectedDecision creates a DecisionResult for a business rule violation. Nothing is to be applied.
func RejectedDecision(err error) DecisionResult {
	return DecisionResult{
		Outcome: rejectedOutcome,
		Err:     err,
	}
}

// IsRejected reports whether the decision rejected the command.
func (r DecisionResult) IsRejected() bool {
	return r.Outcome == rejectedOutcome
}

// HasError returns the error if there is one, otherwise nil.
func (r DecisionResult) HasError() error {
	if r.Outcome == rejectedOutcome {
		return r.Err
	}

	return nil
}
