package booking

import (
	"fmt"
	"time"
)

// Failure reports a structural problem observed by the gateway: a login
// rejection, an unexpected page, a security challenge. It satisfies error so
// gateways can return it directly.
type Failure struct {
	Step    string
	Kind    ErrorDetail
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s at %s: %s", f.Kind, f.Step, f.Message)
}

// Failf builds a Failure for the given step.
func Failf(step string, kind ErrorDetail, format string, args ...any) *Failure {
	return &Failure{Step: step, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Report is the structured page state after an availability check. It carries
// signals only, no markup; the classifier turns it into an Outcome.
type Report struct {
	Date       time.Time
	SpacesFree int
	PartySize  int

	// WaitlistOpen is set when the service explicitly offers a waiting-list
	// control for the requested date.
	WaitlistOpen bool

	// AlternativeDates lists other dates the service surfaced as bookable.
	AlternativeDates []time.Time

	// Failure, when non-nil, supersedes every other field.
	Failure *Failure
}

// FailureReport wraps a gateway error into a Report so that every attempt,
// broken or not, flows through the classifier.
func FailureReport(step string, err error) Report {
	if f, ok := err.(*Failure); ok {
		return Report{Failure: f}
	}
	return Report{Failure: &Failure{Step: step, Kind: ErrOther, Message: err.Error()}}
}
