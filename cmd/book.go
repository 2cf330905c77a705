package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/example/hutbook/internal/config"
	"github.com/example/hutbook/internal/db"
	"github.com/example/hutbook/internal/domain/booking"
	"github.com/example/hutbook/internal/history"
	"github.com/example/hutbook/internal/hutapi"
	"github.com/example/hutbook/internal/metrics"
	"github.com/example/hutbook/internal/migrate"
	"github.com/example/hutbook/internal/poll"
	"github.com/example/hutbook/internal/session"
	"github.com/example/hutbook/internal/snapshot"
)

// bookOpts holds the flag values that may override the stay file. Only flags
// actually set on the command line win; the file keeps everything else.
type bookOpts struct {
	dryRun         bool
	confirmSubmit  bool
	pauseAtPayment bool
	autoPoll       bool
	pauseSeconds   int
	intervalSec    int
	jitterSec      int
	maxAttempts    int
}

func registerBookFlags(f *pflag.FlagSet, o *bookOpts) {
	f.BoolVar(&o.dryRun, "dry-run", false, "stop before any submission")
	f.BoolVar(&o.confirmSubmit, "confirm-submit", false, "ask on the terminal before submitting")
	f.BoolVar(&o.pauseAtPayment, "pause-at-payment", false, "pause before the payment step")
	f.BoolVar(&o.autoPoll, "auto-poll", false, "keep polling while the date is full")
	f.IntVar(&o.pauseSeconds, "pause-seconds", 0, "payment pause length in seconds")
	f.IntVar(&o.intervalSec, "interval-seconds", 0, "polling interval in seconds")
	f.IntVar(&o.jitterSec, "jitter-seconds", 0, "polling jitter in seconds")
	f.IntVar(&o.maxAttempts, "max-attempts", 0, "attempt cap, 0 = unbounded")
}

func (o bookOpts) apply(f *pflag.FlagSet, cfg *config.RunConfig) {
	if f.Changed("dry-run") {
		cfg.Mode.DryRun = o.dryRun
	}
	if f.Changed("confirm-submit") {
		cfg.Mode.ConfirmSubmit = o.confirmSubmit
	}
	if f.Changed("pause-at-payment") {
		cfg.Mode.PauseAtPayment = o.pauseAtPayment
	}
	if f.Changed("auto-poll") {
		cfg.Policy.AutoPollIfFull = o.autoPoll
	}
	if f.Changed("pause-seconds") {
		cfg.Mode.Pause = time.Duration(o.pauseSeconds) * time.Second
	}
	if f.Changed("interval-seconds") {
		cfg.Poll.Interval = time.Duration(o.intervalSec) * time.Second
	}
	if f.Changed("jitter-seconds") {
		cfg.Poll.Jitter = time.Duration(o.jitterSec) * time.Second
	}
	if f.Changed("max-attempts") {
		cfg.Poll.MaxAttempts = o.maxAttempts
	}
}

func newBookCmd() *cobra.Command {
	var (
		opts        bookOpts
		configPath  string
		snapshotDir string
		baseURL     string
	)

	c := &cobra.Command{
		Use:   "book",
		Short: "Run the booking loop for the stay described in the config file",
		Long: `Reads the stay configuration, logs in with HUT_USERNAME/HUT_PASSWORD
(environment or .env), then checks availability and acts on the outcome:
book, join the waiting list, shift to an allowed alternative date, or keep
polling until space opens up.

Exit codes: 0 booked / would book / waitlisted, 2 stopped by policy,
3 attempts exhausted, 4 aborted on error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotenv()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			opts.apply(cmd.Flags(), &cfg)

			creds, err := config.CredentialsFromEnv()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log := slog.Default()
			runStamp := time.Now().Format("20060102-150405")

			sink, err := buildSink(ctx, snapshotDir, runStamp)
			if err != nil {
				return err
			}

			runner := &session.Runner{
				Config: cfg,
				Gateway: func(ctx context.Context) (booking.Gateway, error) {
					return hutapi.New(hutapi.Config{
						BaseURL:  baseURL,
						Username: creds.Username,
						Password: creds.Password,
						Provider: cfg.LoginProvider,
					})
				},
				Sink:    sink,
				Confirm: confirmOnTerminal,
				Log:     log,
			}

			finish, err := attachHistory(ctx, runner, cfg, log)
			if err != nil {
				return err
			}

			p := &poll.Poller{
				Interval:    cfg.Poll.Interval,
				Jitter:      cfg.Poll.Jitter,
				MaxAttempts: cfg.Poll.MaxAttempts,
				Log:         log,
			}

			log.Info("starting booking run",
				"hut", cfg.Stay.HutName,
				"check_in", cfg.Stay.CheckIn.Format("2006-01-02"),
				"check_out", cfg.Stay.CheckOut.Format("2006-01-02"),
				"party_size", cfg.Stay.PartySize,
				"dry_run", cfg.Mode.DryRun)

			res := p.Run(ctx, runner.Attempt)
			metrics.ResultsTotal.WithLabelValues(res.Kind.String()).Inc()
			finish(res)

			if res.Success() {
				log.Info("run finished", "result", res.Kind.String(), "detail", res.Detail, "attempts", res.Attempts)
			} else {
				log.Error("run failed", "result", res.Kind.String(), "detail", res.Detail,
					"error_detail", string(res.ErrorDetail), "attempts", res.Attempts)
			}
			if code := res.ExitCode(); code != 0 {
				return exitError{code: code}
			}
			return nil
		},
	}

	c.Flags().StringVarP(&configPath, "config", "c", "stay.yaml", "stay configuration file")
	registerBookFlags(c.Flags(), &opts)
	c.Flags().StringVar(&snapshotDir, "snapshot-dir", "", "override the local snapshot directory")
	c.Flags().StringVar(&baseURL, "base-url", "", "override the reservation service URL")

	return c
}

// buildSink picks the snapshot sink: S3 when configured in the environment,
// a per-run local directory otherwise.
func buildSink(ctx context.Context, dirOverride, runStamp string) (snapshot.Sink, error) {
	env := config.SnapshotFromEnv()
	if dirOverride != "" {
		env.Dir = dirOverride
	}
	if env.S3Endpoint != "" {
		return snapshot.NewS3Sink(ctx, snapshot.S3Config{
			Endpoint:  env.S3Endpoint,
			AccessKey: env.S3AccessKey,
			SecretKey: env.S3SecretKey,
			Bucket:    env.S3Bucket,
			Region:    env.S3Region,
			UseSSL:    env.S3UseSSL,
			Prefix:    runStamp,
		})
	}
	return snapshot.NewDirSink(filepath.Join(env.Dir, runStamp)), nil
}

// attachHistory wires the optional run-history store. Without DATABASE_URL it
// is a no-op; with it, every attempt and the final result land in Postgres.
// History failures never stop a booking run.
func attachHistory(ctx context.Context, runner *session.Runner, cfg config.RunConfig, log *slog.Logger) (func(booking.Result), error) {
	url := config.DatabaseURL()
	if url == "" {
		return func(booking.Result) {}, nil
	}

	d, err := db.Open(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("history db: %w", err)
	}
	if err := migrate.Up(ctx, d); err != nil {
		d.Close()
		return nil, fmt.Errorf("history migrate: %w", err)
	}

	store := history.NewStore(d)
	runID, err := store.StartRun(ctx, cfg.Stay, cfg.Mode.DryRun)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("history start run: %w", err)
	}
	log.Info("recording run history", "run_id", runID)

	runner.Observe = func(attempt int, out booking.Outcome, act booking.Action) {
		if err := store.RecordAttempt(ctx, runID, attempt, out, act); err != nil {
			log.Warn("history attempt record failed", "error", err)
		}
	}
	return func(res booking.Result) {
		// The run context may already be cancelled on interrupt.
		fctx, fcancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer fcancel()
		if err := store.FinishRun(fctx, runID, res); err != nil {
			log.Warn("history finish failed", "error", err)
		}
		d.Close()
	}, nil
}

func confirmOnTerminal() bool {
	fmt.Fprint(os.Stderr, "Submit this reservation? Type yes to continue: ")
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(sc.Text()), "yes")
}
