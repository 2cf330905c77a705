package booking

import "time"

// OutcomeKind is the classified result of one availability check.
type OutcomeKind int

const (
	OutcomeUnavailable OutcomeKind = iota
	OutcomeAvailable
	OutcomeWaitlistOffered
	OutcomeAlternativeDates
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAvailable:
		return "available"
	case OutcomeWaitlistOffered:
		return "waitlist_offered"
	case OutcomeAlternativeDates:
		return "alternative_dates_offered"
	case OutcomeError:
		return "error"
	default:
		return "unavailable"
	}
}

// ErrorDetail distinguishes structural failures. None of these are retried.
type ErrorDetail string

const (
	ErrLoginFailed       ErrorDetail = "login_failed"
	ErrUnexpectedPage    ErrorDetail = "unexpected_page"
	ErrChallengeRequired ErrorDetail = "challenge_required"
	ErrOther             ErrorDetail = "other"
)

// Outcome is the classified result of one check. AlternativeDates is set only
// for OutcomeAlternativeDates; Detail/Step only for OutcomeError.
type Outcome struct {
	Kind             OutcomeKind
	AlternativeDates []time.Time
	Detail           ErrorDetail
	Step             string
	Message          string
}
