package poll

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/example/hutbook/internal/domain/booking"
	"github.com/example/hutbook/internal/metrics"
)

// AttemptFunc runs one full reservation attempt. retry is true only when the
// decision engine asked to poll again; otherwise res is the terminal result.
type AttemptFunc func(ctx context.Context, attempt int) (res booking.Result, retry bool)

// Poller owns the polling loop: it is the only component that starts a new
// attempt, and the only owner of the loop state (attempt counter, elapsed
// time, last result).
type Poller struct {
	Interval    time.Duration
	Jitter      time.Duration
	MaxAttempts int // 0 = unbounded
	Log         *slog.Logger

	// Sleep overrides the cancellable wait, for tests. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Rand overrides the jitter source, for tests. Nil uses the global one.
	Rand *rand.Rand
}

type pollState struct {
	attempts int
	started  time.Time
	last     booking.Result
}

// Run drives attempts until one of them produces a terminal result, the
// attempt cap is hit, or ctx is cancelled. Exactly one Result comes back.
func (p *Poller) Run(ctx context.Context, attempt AttemptFunc) booking.Result {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	st := pollState{started: time.Now()}

	for {
		if ctx.Err() != nil {
			return interrupted(st.attempts)
		}
		st.attempts++
		res, retry := attempt(ctx, st.attempts)
		res.Attempts = st.attempts
		st.last = res
		if !retry {
			return res
		}
		if p.MaxAttempts > 0 && st.attempts >= p.MaxAttempts {
			return booking.Result{
				Kind:     booking.ResultExhaustedAttempts,
				Detail:   fmt.Sprintf("no availability after %d attempts", st.attempts),
				Attempts: st.attempts,
			}
		}

		wait := p.WaitDuration()
		metrics.WaitSeconds.Observe(wait.Seconds())
		log.Info("no availability yet, retrying",
			"attempt", st.attempts,
			"wait", wait.Round(time.Millisecond),
			"elapsed", time.Since(st.started).Round(time.Second))
		if err := p.sleep(ctx, wait); err != nil {
			return interrupted(st.attempts)
		}
	}
}

// WaitDuration computes interval plus a uniform jitter in [-Jitter, +Jitter],
// clamped at zero. The jitter keeps many runners from polling the service in
// lockstep.
func (p *Poller) WaitDuration() time.Duration {
	d := p.Interval
	if p.Jitter > 0 {
		span := 2*int64(p.Jitter) + 1
		var off int64
		if p.Rand != nil {
			off = p.Rand.Int63n(span)
		} else {
			off = rand.Int63n(span)
		}
		d += time.Duration(off) - p.Jitter
	}
	if d < 0 {
		d = 0
	}
	return d
}

func (p *Poller) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func interrupted(attempts int) booking.Result {
	return booking.Result{
		Kind:     booking.ResultAbortedByPolicy,
		Detail:   "interrupted",
		Attempts: attempts,
	}
}
