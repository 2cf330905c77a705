package booking

import "time"

// Policy is the slice of run configuration the decision engine consults.
type Policy struct {
	AllowAlternativeDates bool
	AllowWaitlist         bool
	AutoPollIfFull        bool
}

type ActionKind int

const (
	ActionProceed ActionKind = iota
	ActionJoinWaitlist
	ActionRetryLater
	ActionAbort
	ActionStop
)

func (k ActionKind) String() string {
	switch k {
	case ActionProceed:
		return "proceed"
	case ActionJoinWaitlist:
		return "join_waitlist"
	case ActionRetryLater:
		return "retry_later"
	case ActionAbort:
		return "abort"
	default:
		return "stop"
	}
}

// Action is the decision engine's directive for the session. Date/Alternative
// are set for a proceed against an alternative date, Detail/Message for an
// abort, Result for a policy stop.
type Action struct {
	Kind        ActionKind
	Date        time.Time
	Alternative bool
	Detail      ErrorDetail
	Message     string
	Result      Result
}

// Decide maps an outcome to the next action. The invariant this table
// preserves: retry is triggered only by capacity-related outcomes, never by
// errors. Attempt capping belongs to the scheduler, not here.
func Decide(o Outcome, requested time.Time, p Policy) Action {
	switch o.Kind {
	case OutcomeError:
		return Action{Kind: ActionAbort, Detail: o.Detail, Message: o.Message}
	case OutcomeAvailable:
		return Action{Kind: ActionProceed, Date: requested}
	case OutcomeAlternativeDates:
		if p.AllowAlternativeDates {
			if d, ok := ChooseAlternativeDate(requested, o.AlternativeDates); ok {
				return Action{Kind: ActionProceed, Date: d, Alternative: true}
			}
		}
		// No usable alternative: same handling as a full date.
		return fullDate(p)
	case OutcomeWaitlistOffered:
		if p.AllowWaitlist {
			return Action{Kind: ActionJoinWaitlist}
		}
		if p.AutoPollIfFull {
			return Action{Kind: ActionRetryLater}
		}
		return Action{Kind: ActionStop, Result: Result{
			Kind:   ResultAbortedByPolicy,
			Detail: "waitlist offered but allow_waitlist is false",
		}}
	default:
		return fullDate(p)
	}
}

func fullDate(p Policy) Action {
	if p.AutoPollIfFull {
		return Action{Kind: ActionRetryLater}
	}
	return Action{Kind: ActionStop, Result: Result{
		Kind:   ResultAbortedByPolicy,
		Detail: "no availability and auto_poll_if_full is false",
	}}
}
