// Package ledger keeps a SQLite record of daily runs and per-repo
// analysis diagnostics. It never stores the analysis text itself.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	date        TEXT NOT NULL,
	slug        TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'running',
	error       TEXT NOT NULL DEFAULT '',
	item_count  INTEGER NOT NULL DEFAULT 0,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS repo_analyses (
	run_id         TEXT NOT NULL,
	position       INTEGER NOT NULL,
	repo           TEXT NOT NULL,
	clone_ok       INTEGER NOT NULL DEFAULT 0,
	degraded       INTEGER NOT NULL DEFAULT 0,
	accepted_stage TEXT NOT NULL DEFAULT '',
	attempts       INTEGER NOT NULL DEFAULT 0,
	exit_codes     TEXT NOT NULL DEFAULT '[]',
	note           TEXT NOT NULL DEFAULT '',
	duration_ms    INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, position)
);
`

type Status string

const (
	StatusRunning   Status = "running"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
	StatusDryRun    Status = "dry_run"
)

type Run struct {
	RunID      string `db:"run_id" json:"run_id"`
	Date       string `db:"date" json:"date"`
	Slug       string `db:"slug" json:"slug"`
	Status     Status `db:"status" json:"status"`
	Error      string `db:"error" json:"error,omitempty"`
	ItemCount  int    `db:"item_count" json:"item_count"`
	StartedAt  string `db:"started_at" json:"started_at"`
	FinishedAt string `db:"finished_at" json:"finished_at,omitempty"`
}

// RepoRecord is the diagnostic footprint of one analyzed repository.
type RepoRecord struct {
	RunID         string `db:"run_id" json:"run_id"`
	Position      int    `db:"position" json:"position"`
	Repo          string `db:"repo" json:"repo"`
	CloneOK       bool   `db:"clone_ok" json:"clone_ok"`
	Degraded      bool   `db:"degraded" json:"degraded"`
	AcceptedStage string `db:"accepted_stage" json:"accepted_stage,omitempty"`
	Attempts      int    `db:"attempts" json:"attempts"`
	ExitCodes     []int  `db:"-" json:"exit_codes"`
	ExitCodesJSON string `db:"exit_codes" json:"-"`
	Note          string `db:"note" json:"note,omitempty"`
	DurationMS    int64  `db:"duration_ms" json:"duration_ms"`
}

type Ledger struct {
	db  *sqlx.DB
	now func() time.Time
}

func Open(path string) (*Ledger, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Ledger{db: db, now: time.Now}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) StartRun(ctx context.Context, date string) (string, error) {
	id := uuid.NewString()
	_, err := l.db.NamedExecContext(ctx, `INSERT INTO runs (run_id, date, status, started_at)
		VALUES (:run_id, :date, :status, :started_at)`,
		Run{RunID: id, Date: date, Status: StatusRunning, StartedAt: l.timestamp()})
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

func (l *Ledger) RecordRepo(ctx context.Context, rec RepoRecord) error {
	codes := rec.ExitCodes
	if codes == nil {
		codes = []int{}
	}
	blob, err := json.Marshal(codes)
	if err != nil {
		return err
	}
	rec.ExitCodesJSON = string(blob)
	_, err = l.db.NamedExecContext(ctx, `INSERT OR REPLACE INTO repo_analyses
		(run_id, position, repo, clone_ok, degraded, accepted_stage, attempts, exit_codes, note, duration_ms)
		VALUES (:run_id, :position, :repo, :clone_ok, :degraded, :accepted_stage, :attempts, :exit_codes, :note, :duration_ms)`,
		rec)
	if err != nil {
		return fmt.Errorf("record repo %s: %w", rec.Repo, err)
	}
	return nil
}

func (l *Ledger) FinishRun(ctx context.Context, runID string, status Status, slug string, itemCount int, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	_, err := l.db.ExecContext(ctx, `UPDATE runs SET status = ?, slug = ?, item_count = ?, error = ?, finished_at = ? WHERE run_id = ?`,
		string(status), slug, itemCount, msg, l.timestamp(), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Runs lists the most recent runs first.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	if err := l.db.SelectContext(ctx, &runs, `SELECT * FROM runs ORDER BY started_at DESC LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func (l *Ledger) Repos(ctx context.Context, runID string) ([]RepoRecord, error) {
	var recs []RepoRecord
	if err := l.db.SelectContext(ctx, &recs, `SELECT * FROM repo_analyses WHERE run_id = ? ORDER BY position`, runID); err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}
	for i := range recs {
		if err := json.Unmarshal([]byte(recs[i].ExitCodesJSON), &recs[i].ExitCodes); err != nil {
			return nil, fmt.Errorf("decode exit codes for %s: %w", recs[i].Repo, err)
		}
	}
	return recs, nil
}

func (l *Ledger) timestamp() string {
	return l.now().UTC().Format(time.RFC3339Nano)
}
