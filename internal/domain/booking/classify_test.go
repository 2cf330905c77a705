package booking

import (
	"errors"
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		rep      Report
		allowAlt bool
		want     OutcomeKind
	}{
		{
			name: "open capacity matching party size",
			rep:  Report{SpacesFree: 4, PartySize: 4},
			want: OutcomeAvailable,
		},
		{
			name: "capacity above party size",
			rep:  Report{SpacesFree: 10, PartySize: 2},
			want: OutcomeAvailable,
		},
		{
			name: "capacity below party size",
			rep:  Report{SpacesFree: 1, PartySize: 2},
			want: OutcomeUnavailable,
		},
		{
			name: "waitlist control offered",
			rep:  Report{SpacesFree: 0, PartySize: 2, WaitlistOpen: true},
			want: OutcomeWaitlistOffered,
		},
		{
			name: "waitlist wins over alternatives",
			rep: Report{
				PartySize:        2,
				WaitlistOpen:     true,
				AlternativeDates: []time.Time{date("2026-03-02")},
			},
			allowAlt: true,
			want:     OutcomeWaitlistOffered,
		},
		{
			name: "alternatives surfaced and allowed",
			rep: Report{
				PartySize:        2,
				AlternativeDates: []time.Time{date("2026-03-02")},
			},
			allowAlt: true,
			want:     OutcomeAlternativeDates,
		},
		{
			name: "alternatives surfaced but not allowed",
			rep: Report{
				PartySize:        2,
				AlternativeDates: []time.Time{date("2026-03-02")},
			},
			want: OutcomeUnavailable,
		},
		{
			name: "failure supersedes capacity",
			rep: Report{
				SpacesFree: 8,
				PartySize:  2,
				Failure:    &Failure{Step: "login", Kind: ErrLoginFailed, Message: "401"},
			},
			want: OutcomeError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.rep, tt.allowAlt)
			if got.Kind != tt.want {
				t.Errorf("Classify() = %s, want %s", got.Kind, tt.want)
			}
		})
	}
}

func TestClassifyErrorDetail(t *testing.T) {
	rep := Report{Failure: &Failure{Step: "wizard", Kind: ErrChallengeRequired, Message: "captcha"}}
	out := Classify(rep, false)
	if out.Kind != OutcomeError || out.Detail != ErrChallengeRequired || out.Step != "wizard" {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	// A failure without a kind defaults to Other.
	out = Classify(Report{Failure: &Failure{Step: "check", Message: "boom"}}, false)
	if out.Detail != ErrOther {
		t.Fatalf("detail = %s, want %s", out.Detail, ErrOther)
	}
}

func TestClassifySortsAlternatives(t *testing.T) {
	rep := Report{
		PartySize: 2,
		AlternativeDates: []time.Time{
			date("2026-03-09"), date("2026-03-02"), date("2026-03-05"),
		},
	}
	out := Classify(rep, true)
	if out.Kind != OutcomeAlternativeDates {
		t.Fatalf("kind = %s", out.Kind)
	}
	for i := 1; i < len(out.AlternativeDates); i++ {
		if out.AlternativeDates[i].Before(out.AlternativeDates[i-1]) {
			t.Fatalf("alternatives not sorted: %v", out.AlternativeDates)
		}
	}
}

func TestFailureReport(t *testing.T) {
	f := Failf("login", ErrLoginFailed, "status %d", 403)
	rep := FailureReport("login", f)
	if rep.Failure != f {
		t.Fatalf("typed failure should pass through unchanged")
	}

	rep = FailureReport("check", errors.New("connection refused"))
	if rep.Failure == nil || rep.Failure.Kind != ErrOther || rep.Failure.Step != "check" {
		t.Fatalf("plain error not wrapped: %+v", rep.Failure)
	}
}
