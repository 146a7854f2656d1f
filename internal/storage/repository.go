package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ovdeclare/internal/core"

	_ "modernc.org/sqlite"
)

// Run statuses
const (
	StatusPending  = "pending"
	StatusNoData   = "no_data"
	StatusFlagged  = "flagged"
	StatusFailed   = "failed"
	StatusDeclared = "declared"
)

var ErrRunNotFound = errors.New("month run not found")

// MonthRun is the recorded outcome of processing one month.
type MonthRun struct {
	ID             string
	Year           int
	Month          int
	Status         string
	EventCount     int
	SelectedCount  int
	FareTotal      decimal.Decimal
	DeclaredAmount string
	Error          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// BeginRun starts (or restarts) the run for a month. A restarted run gets a
// new ID and loses its previous events, counts and declaration.
func (r *SQLiteRepository) BeginRun(ctx context.Context, m core.Month) (MonthRun, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return MonthRun{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := r.now()
	var id string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM month_runs WHERE year = ? AND month = ?`, m.Year, int(m.Month)).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO month_runs (id, year, month, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			id, m.Year, int(m.Month), StatusPending, now, now); err != nil {
			return MonthRun{}, fmt.Errorf("insert month run: %w", err)
		}
	case err != nil:
		return MonthRun{}, fmt.Errorf("lookup month run: %w", err)
	default:
		// Events go first; the reset run takes a new ID so messages from the
		// previous run can be told apart.
		if _, err := tx.ExecContext(ctx, `DELETE FROM travel_events WHERE run_id = ?`, id); err != nil {
			return MonthRun{}, fmt.Errorf("clear travel events: %w", err)
		}
		newID := uuid.NewString()
		if _, err := tx.ExecContext(ctx,
			`UPDATE month_runs SET id = ?, status = ?, event_count = 0, selected_count = 0, fare_total = '0',
			 declared_amount = NULL, error = NULL, updated_at = ? WHERE id = ?`,
			newID, StatusPending, now, id); err != nil {
			return MonthRun{}, fmt.Errorf("reset month run: %w", err)
		}
		id = newID
	}

	if err := tx.Commit(); err != nil {
		return MonthRun{}, fmt.Errorf("commit month run: %w", err)
	}

	slog.DebugContext(ctx, "Month run started", "run_id", id, "month", m.String())
	return r.GetRun(ctx, m)
}

// GetRun returns the run recorded for a month.
func (r *SQLiteRepository) GetRun(ctx context.Context, m core.Month) (MonthRun, error) {
	row := r.db.QueryRowContext(ctx, selectRun+` WHERE year = ? AND month = ?`, m.Year, int(m.Month))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return MonthRun{}, fmt.Errorf("%w: %s", ErrRunNotFound, m)
	}
	if err != nil {
		return MonthRun{}, fmt.Errorf("get month run %s: %w", m, err)
	}
	return run, nil
}

// ListRuns returns the runs of a year ordered by month.
func (r *SQLiteRepository) ListRuns(ctx context.Context, year int) ([]MonthRun, error) {
	rows, err := r.db.QueryContext(ctx, selectRun+` WHERE year = ? ORDER BY month`, year)
	if err != nil {
		return nil, fmt.Errorf("list month runs: %w", err)
	}
	defer rows.Close()

	var runs []MonthRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan month run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ApplySelection implements history.SelectionSink by storing the month's
// events and their selection flags in source order.
func (r *SQLiteRepository) ApplySelection(ctx context.Context, m core.Month, events []core.Event) error {
	run, err := r.GetRun(ctx, m)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM travel_events WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("clear travel events: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO travel_events (run_id, position, week_day, event_date, event_time, station, transaction_type, fare, details, selected)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range events {
		if _, err := stmt.ExecContext(ctx, run.ID, i, e.WeekDay, e.EventDate, e.EventTime,
			e.Station, e.Transaction, e.Fare, e.Details, e.Selected); err != nil {
			return fmt.Errorf("insert travel event %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit travel events: %w", err)
	}

	slog.InfoContext(ctx, "Travel events saved to SQLite",
		"run_id", run.ID,
		"month", m.String(),
		"events", len(events))
	return nil
}

// MarkNoData records that the source had no rows for the month.
func (r *SQLiteRepository) MarkNoData(ctx context.Context, m core.Month) error {
	return r.updateRun(ctx, m, `status = ?, error = NULL`, StatusNoData)
}

// MarkFlagged records the selection outcome of a month.
func (r *SQLiteRepository) MarkFlagged(ctx context.Context, m core.Month, events, selected int, fareTotal decimal.Decimal) error {
	return r.updateRun(ctx, m, `status = ?, event_count = ?, selected_count = ?, fare_total = ?, error = NULL`,
		StatusFlagged, events, selected, fareTotal.String())
}

// MarkFailed records a hard failure for the month.
func (r *SQLiteRepository) MarkFailed(ctx context.Context, m core.Month, reason string) error {
	return r.updateRun(ctx, m, `status = ?, error = ?`, StatusFailed, reason)
}

// MarkDeclared stores the amount token read from the month's declaration.
func (r *SQLiteRepository) MarkDeclared(ctx context.Context, m core.Month, amount string) error {
	return r.updateRun(ctx, m, `status = ?, declared_amount = ?, error = NULL`, StatusDeclared, amount)
}

func (r *SQLiteRepository) updateRun(ctx context.Context, m core.Month, set string, args ...any) error {
	args = append(args, r.now(), m.Year, int(m.Month))
	res, err := r.db.ExecContext(ctx,
		`UPDATE month_runs SET `+set+`, updated_at = ? WHERE year = ? AND month = ?`, args...)
	if err != nil {
		return fmt.Errorf("update month run %s: %w", m, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update month run %s: %w", m, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, m)
	}
	return nil
}

const selectRun = `SELECT id, year, month, status, event_count, selected_count, fare_total,
	declared_amount, error, created_at, updated_at FROM month_runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (MonthRun, error) {
	var (
		run       MonthRun
		fareTotal string
		declared  sql.NullString
		errText   sql.NullString
	)
	if err := s.Scan(&run.ID, &run.Year, &run.Month, &run.Status, &run.EventCount, &run.SelectedCount,
		&fareTotal, &declared, &errText, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return MonthRun{}, err
	}
	total, err := decimal.NewFromString(fareTotal)
	if err != nil {
		return MonthRun{}, fmt.Errorf("parse fare total %q: %w", fareTotal, err)
	}
	run.FareTotal = total
	run.DeclaredAmount = declared.String
	run.Error = errText.String
	return run, nil
}
