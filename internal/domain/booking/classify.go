package booking

import (
	"sort"
	"time"
)

// Classify maps a structured availability report to exactly one Outcome.
// Pure function: it never touches the gateway.
//
// Precedence: structural failure, then open capacity, then an explicit
// waiting-list offer, then alternative dates (only when the run allows them),
// then plain unavailability.
func Classify(rep Report, allowAlternatives bool) Outcome {
	if rep.Failure != nil {
		kind := rep.Failure.Kind
		if kind == "" {
			kind = ErrOther
		}
		return Outcome{
			Kind:    OutcomeError,
			Detail:  kind,
			Step:    rep.Failure.Step,
			Message: rep.Failure.Message,
		}
	}
	if rep.PartySize > 0 && rep.SpacesFree >= rep.PartySize {
		return Outcome{Kind: OutcomeAvailable}
	}
	if rep.WaitlistOpen {
		return Outcome{Kind: OutcomeWaitlistOffered}
	}
	if allowAlternatives && len(rep.AlternativeDates) > 0 {
		dates := make([]time.Time, len(rep.AlternativeDates))
		copy(dates, rep.AlternativeDates)
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		return Outcome{Kind: OutcomeAlternativeDates, AlternativeDates: dates}
	}
	return Outcome{Kind: OutcomeUnavailable}
}
