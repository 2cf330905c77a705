package booking

import (
	"testing"
	"time"
)

var allPolicies = []Policy{
	{},
	{AllowAlternativeDates: true},
	{AllowWaitlist: true},
	{AutoPollIfFull: true},
	{AllowAlternativeDates: true, AllowWaitlist: true},
	{AllowAlternativeDates: true, AutoPollIfFull: true},
	{AllowWaitlist: true, AutoPollIfFull: true},
	{AllowAlternativeDates: true, AllowWaitlist: true, AutoPollIfFull: true},
}

// Errors abort unconditionally, whatever the policy says.
func TestDecideErrorAlwaysAborts(t *testing.T) {
	requested := date("2026-03-01")
	for _, detail := range []ErrorDetail{ErrLoginFailed, ErrUnexpectedPage, ErrChallengeRequired, ErrOther} {
		for _, p := range allPolicies {
			act := Decide(Outcome{Kind: OutcomeError, Detail: detail}, requested, p)
			if act.Kind != ActionAbort {
				t.Fatalf("Decide(error %s, %+v) = %s, want abort", detail, p, act.Kind)
			}
			if act.Detail != detail {
				t.Fatalf("abort detail = %s, want %s", act.Detail, detail)
			}
		}
	}
}

func TestDecideAvailable(t *testing.T) {
	requested := date("2026-03-01")
	for _, p := range allPolicies {
		act := Decide(Outcome{Kind: OutcomeAvailable}, requested, p)
		if act.Kind != ActionProceed {
			t.Fatalf("Decide(available, %+v) = %s, want proceed", p, act.Kind)
		}
		if !act.Date.Equal(requested) || act.Alternative {
			t.Fatalf("proceed should target the requested date: %+v", act)
		}
	}
}

func TestDecideUnavailable(t *testing.T) {
	requested := date("2026-03-01")

	act := Decide(Outcome{Kind: OutcomeUnavailable}, requested, Policy{AutoPollIfFull: true})
	if act.Kind != ActionRetryLater {
		t.Fatalf("with auto_poll_if_full, want retry_later, got %s", act.Kind)
	}

	act = Decide(Outcome{Kind: OutcomeUnavailable}, requested, Policy{})
	if act.Kind != ActionStop {
		t.Fatalf("without auto_poll_if_full, want stop, got %s", act.Kind)
	}
	if act.Result.Kind != ResultAbortedByPolicy {
		t.Fatalf("stop result = %s, want aborted_by_policy", act.Result.Kind)
	}
}

func TestDecideWaitlist(t *testing.T) {
	requested := date("2026-03-01")
	out := Outcome{Kind: OutcomeWaitlistOffered}

	tests := []struct {
		name string
		p    Policy
		want ActionKind
	}{
		{"allowed", Policy{AllowWaitlist: true}, ActionJoinWaitlist},
		{"allowed wins over polling", Policy{AllowWaitlist: true, AutoPollIfFull: true}, ActionJoinWaitlist},
		{"polling fallback", Policy{AutoPollIfFull: true}, ActionRetryLater},
		{"policy stop", Policy{}, ActionStop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act := Decide(out, requested, tt.p)
			if act.Kind != tt.want {
				t.Errorf("Decide(waitlist, %+v) = %s, want %s", tt.p, act.Kind, tt.want)
			}
			if tt.want == ActionStop && act.Result.Kind != ResultAbortedByPolicy {
				t.Errorf("stop result = %s, want aborted_by_policy", act.Result.Kind)
			}
		})
	}
}

func TestDecideAlternativeDates(t *testing.T) {
	requested := date("2026-03-01")
	alts := []time.Time{date("2026-02-27"), date("2026-03-03"), date("2026-03-06")}
	out := Outcome{Kind: OutcomeAlternativeDates, AlternativeDates: alts}

	act := Decide(out, requested, Policy{AllowAlternativeDates: true})
	if act.Kind != ActionProceed || !act.Alternative {
		t.Fatalf("want proceed against alternative, got %+v", act)
	}
	if !act.Date.Equal(date("2026-03-03")) {
		t.Fatalf("chose %s, want earliest on/after requested (2026-03-03)", act.Date.Format("2006-01-02"))
	}

	// All candidates before the requested date: fall through to the
	// unavailable handling.
	early := Outcome{Kind: OutcomeAlternativeDates, AlternativeDates: []time.Time{date("2026-02-20")}}
	act = Decide(early, requested, Policy{AllowAlternativeDates: true, AutoPollIfFull: true})
	if act.Kind != ActionRetryLater {
		t.Fatalf("no usable alternative with polling, want retry_later, got %s", act.Kind)
	}
	act = Decide(early, requested, Policy{AllowAlternativeDates: true})
	if act.Kind != ActionStop {
		t.Fatalf("no usable alternative without polling, want stop, got %s", act.Kind)
	}
}

func TestChooseAlternativeDate(t *testing.T) {
	requested := date("2026-03-01")

	if _, ok := ChooseAlternativeDate(requested, nil); ok {
		t.Fatal("empty candidates should not choose")
	}
	if _, ok := ChooseAlternativeDate(requested, []time.Time{date("2026-02-28")}); ok {
		t.Fatal("candidates before the requested date should not choose")
	}
	got, ok := ChooseAlternativeDate(requested, []time.Time{date("2026-03-10"), date("2026-03-01"), date("2026-03-04")})
	if !ok || !got.Equal(requested) {
		t.Fatalf("got %v ok=%v, want the requested date itself", got, ok)
	}
}
