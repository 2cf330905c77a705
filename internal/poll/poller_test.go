package poll

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/example/hutbook/internal/domain/booking"
)

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func TestRunStopsOnTerminalResult(t *testing.T) {
	p := &Poller{Interval: time.Second, Sleep: noSleep}
	res := p.Run(context.Background(), func(ctx context.Context, n int) (booking.Result, bool) {
		return booking.Result{Kind: booking.ResultBooked}, false
	})
	if res.Kind != booking.ResultBooked || res.Attempts != 1 {
		t.Fatalf("got %+v, want booked after 1 attempt", res)
	}
}

func TestRunExhaustsAttempts(t *testing.T) {
	const n = 5
	calls := 0
	p := &Poller{Interval: time.Second, MaxAttempts: n, Sleep: noSleep}
	res := p.Run(context.Background(), func(ctx context.Context, attempt int) (booking.Result, bool) {
		calls++
		if attempt != calls {
			t.Fatalf("attempt number %d, want %d", attempt, calls)
		}
		return booking.Result{Kind: booking.ResultAbortedByPolicy}, true
	})
	if calls != n {
		t.Fatalf("ran %d attempts, want exactly %d", calls, n)
	}
	if res.Kind != booking.ResultExhaustedAttempts || res.Attempts != n {
		t.Fatalf("got %+v, want exhausted_attempts after %d", res, n)
	}
}

func TestRunUnboundedKeepsRetrying(t *testing.T) {
	// Bounded stand-in for the unbounded loop: assert it is still retrying
	// far past any plausible internal cap, then cancel.
	const limit = 10000
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	p := &Poller{Interval: time.Second, Sleep: noSleep}
	res := p.Run(ctx, func(ctx context.Context, attempt int) (booking.Result, bool) {
		calls++
		if calls >= limit {
			cancel()
		}
		return booking.Result{}, true
	})
	if calls < limit {
		t.Fatalf("loop stopped on its own after %d attempts", calls)
	}
	if res.Kind != booking.ResultAbortedByPolicy || res.Detail != "interrupted" {
		t.Fatalf("cancelled loop should report interrupted, got %+v", res)
	}
}

func TestRunCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Poller{
		Interval: time.Hour,
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}
	res := p.Run(ctx, func(ctx context.Context, n int) (booking.Result, bool) {
		return booking.Result{}, true
	})
	if res.Kind != booking.ResultAbortedByPolicy || res.Detail != "interrupted" {
		t.Fatalf("got %+v, want interrupted policy abort", res)
	}
	if res.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", res.Attempts)
	}
}

func TestWaitDurationBounds(t *testing.T) {
	interval := 300 * time.Second
	jitter := 30 * time.Second
	p := &Poller{Interval: interval, Jitter: jitter, Rand: rand.New(rand.NewSource(1))}

	lo, hi := interval-jitter, interval+jitter
	for i := 0; i < 10000; i++ {
		d := p.WaitDuration()
		if d < lo || d > hi {
			t.Fatalf("wait %v outside [%v, %v]", d, lo, hi)
		}
	}
}

func TestWaitDurationNeverNegative(t *testing.T) {
	p := &Poller{Interval: time.Second, Jitter: 10 * time.Second, Rand: rand.New(rand.NewSource(7))}
	for i := 0; i < 10000; i++ {
		if d := p.WaitDuration(); d < 0 {
			t.Fatalf("negative wait %v", d)
		}
	}
}

func TestWaitDurationNoJitter(t *testing.T) {
	p := &Poller{Interval: 42 * time.Second}
	if d := p.WaitDuration(); d != 42*time.Second {
		t.Fatalf("wait = %v, want exactly the interval", d)
	}
}

// Config {allow_waitlist: true} with outcomes [Unavailable, WaitlistOffered]:
// one retry, then the waitlist join terminates the loop.
func TestRunRetryThenWaitlist(t *testing.T) {
	outcomes := []booking.Outcome{
		{Kind: booking.OutcomeUnavailable},
		{Kind: booking.OutcomeWaitlistOffered},
	}
	policy := booking.Policy{AllowWaitlist: true, AutoPollIfFull: true}
	requested := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	p := &Poller{Interval: time.Second, Sleep: noSleep}
	res := p.Run(context.Background(), func(ctx context.Context, attempt int) (booking.Result, bool) {
		act := booking.Decide(outcomes[attempt-1], requested, policy)
		switch act.Kind {
		case booking.ActionRetryLater:
			return booking.Result{}, true
		case booking.ActionJoinWaitlist:
			return booking.Result{Kind: booking.ResultWaitlisted}, false
		default:
			t.Fatalf("unexpected action %s on attempt %d", act.Kind, attempt)
			return booking.Result{}, false
		}
	})
	if res.Kind != booking.ResultWaitlisted || res.Attempts != 2 {
		t.Fatalf("got %+v, want waitlisted on attempt 2", res)
	}
}
