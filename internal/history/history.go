// Package history persists run and attempt records so past bot runs can be
// inspected from the status UI. It is entirely optional: the booking loop
// works without a database.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/example/hutbook/internal/db"
	"github.com/example/hutbook/internal/domain/booking"
)

type Run struct {
	ID        uuid.UUID
	HutName   string
	CheckIn   time.Time
	CheckOut  time.Time
	PartySize int
	DryRun    bool

	StartedAt  time.Time
	FinishedAt *time.Time

	Result      *string
	Detail      *string
	ErrorDetail *string
	Attempts    int
}

type Attempt struct {
	ID        int64
	RunID     uuid.UUID
	Attempt   int
	Outcome   string
	Action    string
	Message   string
	CreatedAt time.Time
}

type Store struct{ db *db.DB }

func NewStore(d *db.DB) *Store { return &Store{db: d} }

func (s *Store) StartRun(ctx context.Context, stay booking.Stay, dryRun bool) (uuid.UUID, error) {
	id := uuid.New()
	err := s.db.Exec(ctx, `
INSERT INTO runs(id, hut_name, check_in, check_out, party_size, dry_run)
VALUES ($1,$2,$3,$4,$5,$6)`,
		id, stay.HutName, stay.CheckIn, stay.CheckOut, stay.PartySize, dryRun)
	return id, err
}

func (s *Store) RecordAttempt(ctx context.Context, runID uuid.UUID, attempt int, out booking.Outcome, act booking.Action) error {
	return s.db.Exec(ctx, `
INSERT INTO run_attempts(run_id, attempt, outcome, action, message)
VALUES ($1,$2,$3,$4,$5)`,
		runID, attempt, out.Kind.String(), act.Kind.String(), out.Message)
}

func (s *Store) FinishRun(ctx context.Context, runID uuid.UUID, res booking.Result) error {
	var errDetail *string
	if res.ErrorDetail != "" {
		d := string(res.ErrorDetail)
		errDetail = &d
	}
	var detail *string
	if res.Detail != "" {
		detail = &res.Detail
	}
	kind := res.Kind.String()
	return s.db.Exec(ctx, `
UPDATE runs SET finished_at=now(), result=$2, detail=$3, error_detail=$4, attempts=$5
WHERE id=$1`,
		runID, kind, detail, errDetail, res.Attempts)
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, hut_name, check_in, check_out, party_size, dry_run,
       started_at, finished_at, result, detail, error_detail, attempts
FROM runs
ORDER BY started_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.ID, &r.HutName, &r.CheckIn, &r.CheckOut, &r.PartySize, &r.DryRun,
			&r.StartedAt, &r.FinishedAt, &r.Result, &r.Detail, &r.ErrorDetail, &r.Attempts,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	var r Run
	err := s.db.QueryRow(ctx, `
SELECT id, hut_name, check_in, check_out, party_size, dry_run,
       started_at, finished_at, result, detail, error_detail, attempts
FROM runs
WHERE id=$1`, id).Scan(
		&r.ID, &r.HutName, &r.CheckIn, &r.CheckOut, &r.PartySize, &r.DryRun,
		&r.StartedAt, &r.FinishedAt, &r.Result, &r.Detail, &r.ErrorDetail, &r.Attempts)
	if err != nil {
		return Run{}, db.WrapNotFound(err)
	}
	return r, nil
}

func (s *Store) AttemptsForRun(ctx context.Context, runID uuid.UUID) ([]Attempt, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, run_id, attempt, outcome, action, message, created_at
FROM run_attempts
WHERE run_id=$1
ORDER BY attempt ASC, id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.RunID, &a.Attempt, &a.Outcome, &a.Action, &a.Message, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
