// Package session orchestrates one reservation attempt end to end: acquire a
// gateway, log in, check availability, classify, decide, act. It owns no loop
// state; the poll package drives it.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/hutbook/internal/config"
	"github.com/example/hutbook/internal/domain/booking"
	"github.com/example/hutbook/internal/metrics"
	"github.com/example/hutbook/internal/snapshot"
)

type Runner struct {
	Config  config.RunConfig
	Gateway booking.GatewayFactory

	// Sink receives per-step captures; nil disables them. Captures never
	// block or fail the attempt.
	Sink snapshot.Sink

	// Confirm gates a real submission when confirm_submit is set. Returning
	// false is a policy stop. Nil with confirm_submit set also stops.
	Confirm func() bool

	// Observe, when set, sees every classified outcome and decided action.
	// Used for run history.
	Observe func(attempt int, out booking.Outcome, act booking.Action)

	Log *slog.Logger
}

// Attempt runs one full login-to-decision cycle. retry is true only when the
// decision engine chose to poll again. The gateway is scoped to this call and
// closed on every exit path.
func (r *Runner) Attempt(ctx context.Context, attempt int) (res booking.Result, retry bool) {
	log := r.log().With("attempt", attempt)

	gw, err := r.Gateway(ctx)
	if err != nil {
		rep := booking.FailureReport("open", err)
		return r.conclude(ctx, nil, log, attempt, 0, rep)
	}
	defer func() {
		if cerr := gw.Close(); cerr != nil {
			log.Debug("gateway close", "error", cerr)
		}
	}()

	step := 0
	if err := gw.Login(ctx); err != nil {
		rep := booking.FailureReport("login", err)
		return r.conclude(ctx, gw, log, attempt, step, rep)
	}
	step = r.snap(ctx, gw, log, attempt, step, "login")

	rep, err := gw.CheckAvailability(ctx, r.Config.Stay)
	if err != nil {
		rep = booking.FailureReport("check_availability", err)
	}
	step = r.snap(ctx, gw, log, attempt, step, "availability_checked")

	return r.conclude(ctx, gw, log, attempt, step, rep)
}

// conclude classifies the report, asks the decision engine for an action, and
// executes it. gw is nil only when the gateway never opened, in which case
// the report always carries a failure and the action is an abort.
func (r *Runner) conclude(ctx context.Context, gw booking.Gateway, log *slog.Logger, attempt, step int, rep booking.Report) (booking.Result, bool) {
	out := booking.Classify(rep, r.Config.Policy.AllowAlternativeDates)
	metrics.AttemptsTotal.WithLabelValues(out.Kind.String()).Inc()

	act := booking.Decide(out, r.Config.Stay.CheckIn, r.Config.Policy)
	if r.Observe != nil {
		r.Observe(attempt, out, act)
	}
	log.Info("attempt classified", "outcome", out.Kind.String(), "action", act.Kind.String())

	switch act.Kind {
	case booking.ActionRetryLater:
		return booking.Result{}, true
	case booking.ActionStop:
		log.Warn("stopping by policy", "reason", act.Result.Detail)
		return act.Result, false
	case booking.ActionAbort:
		// An operator interrupt mid-attempt surfaces as a gateway error on
		// the cancelled context; that is a policy stop, not a failure.
		if ctx.Err() != nil {
			log.Warn("interrupted during attempt")
			return interruptedResult(), false
		}
		log.Error("aborting", "detail", string(act.Detail), "step", out.Step, "cause", act.Message)
		return booking.Result{
			Kind:        booking.ResultAbortedByError,
			ErrorDetail: act.Detail,
			Detail:      act.Message,
		}, false
	case booking.ActionJoinWaitlist:
		return r.joinWaitlist(ctx, gw, log, attempt, step), false
	default:
		return r.book(ctx, gw, log, act, attempt, step), false
	}
}

func (r *Runner) book(ctx context.Context, gw booking.Gateway, log *slog.Logger, act booking.Action, attempt, step int) booking.Result {
	req := r.Config.Request()
	if act.Alternative {
		// Shift the whole stay, keeping its length.
		delta := act.Date.Sub(req.Stay.CheckIn)
		req.Stay.CheckIn = act.Date
		req.Stay.CheckOut = req.Stay.CheckOut.Add(delta)
		log.Info("proceeding with alternative date", "check_in", req.Stay.CheckIn.Format("2006-01-02"))
	}

	if r.Config.Mode.DryRun {
		log.Info("dry run: would submit reservation",
			"hut", req.Stay.HutName,
			"check_in", req.Stay.CheckIn.Format("2006-01-02"),
			"check_out", req.Stay.CheckOut.Format("2006-01-02"),
			"party_size", req.Stay.PartySize)
		r.snap(ctx, gw, log, attempt, step, "dry_run_stop")
		return booking.Result{
			Kind:   booking.ResultWouldBook,
			Detail: "dry run, no submission made for " + req.Stay.CheckIn.Format("2006-01-02"),
		}
	}

	if r.Config.Mode.ConfirmSubmit {
		if r.Confirm == nil || !r.Confirm() {
			log.Warn("submission not confirmed")
			return booking.Result{Kind: booking.ResultAbortedByPolicy, Detail: "submission not confirmed"}
		}
	}

	if r.Config.Mode.PauseAtPayment {
		log.Info("pausing before payment step", "pause", r.Config.Mode.Pause)
		if err := sleepCtx(ctx, r.Config.Mode.Pause); err != nil {
			return interruptedResult()
		}
	}

	if err := gw.SubmitReservation(ctx, req); err != nil {
		if ctx.Err() != nil {
			log.Warn("interrupted during submission")
			return interruptedResult()
		}
		step = r.snap(ctx, gw, log, attempt, step, "submit_failed")
		f := booking.FailureReport("submit", err).Failure
		log.Error("submission failed", "detail", string(f.Kind), "cause", f.Message)
		return booking.Result{Kind: booking.ResultAbortedByError, ErrorDetail: f.Kind, Detail: f.Message}
	}
	r.snap(ctx, gw, log, attempt, step, "submitted")
	log.Info("reservation submitted", "check_in", req.Stay.CheckIn.Format("2006-01-02"))
	return booking.Result{Kind: booking.ResultBooked, Detail: req.Stay.CheckIn.Format("2006-01-02")}
}

func (r *Runner) joinWaitlist(ctx context.Context, gw booking.Gateway, log *slog.Logger, attempt, step int) booking.Result {
	if r.Config.Mode.DryRun {
		log.Info("dry run: would join waiting list")
		return booking.Result{Kind: booking.ResultWaitlisted, Detail: "dry run, no waitlist call made"}
	}
	if err := gw.JoinWaitlist(ctx, r.Config.Request()); err != nil {
		if ctx.Err() != nil {
			log.Warn("interrupted during waitlist join")
			return interruptedResult()
		}
		f := booking.FailureReport("join_waitlist", err).Failure
		log.Error("waitlist join failed", "detail", string(f.Kind), "cause", f.Message)
		return booking.Result{Kind: booking.ResultAbortedByError, ErrorDetail: f.Kind, Detail: f.Message}
	}
	r.snap(ctx, gw, log, attempt, step, "waitlist_joined")
	log.Info("joined waiting list")
	return booking.Result{Kind: booking.ResultWaitlisted}
}

// snap captures the current gateway state and hands it to the sink without
// ever blocking the attempt: the dump is taken synchronously (it races with
// Close otherwise), the store happens in the background, and every error is
// demoted to a debug line.
func (r *Runner) snap(ctx context.Context, gw booking.Gateway, log *slog.Logger, attempt, step int, label string) int {
	if r.Sink == nil || gw == nil {
		return step
	}
	step++
	data, err := gw.Snapshot(ctx)
	if err != nil {
		log.Debug("snapshot dump failed", "label", label, "error", err)
		return step
	}
	go func() {
		if err := r.Sink.Capture(context.WithoutCancel(ctx), attempt, step, label, data); err != nil {
			log.Debug("snapshot store failed", "label", label, "error", err)
		}
	}()
	return step
}

func (r *Runner) log() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

func interruptedResult() booking.Result {
	return booking.Result{Kind: booking.ResultAbortedByPolicy, Detail: "interrupted"}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
