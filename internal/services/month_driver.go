package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ovdeclare/internal/core"
	"ovdeclare/internal/history"
	"ovdeclare/internal/log"
	"ovdeclare/internal/metrics"
	"ovdeclare/internal/storage"
)

// StatusSkipped marks a month left alone because it was already declared.
const StatusSkipped = "skipped"

// RunRecorder records the outcome of each month.
type RunRecorder interface {
	BeginRun(ctx context.Context, m core.Month) (storage.MonthRun, error)
	GetRun(ctx context.Context, m core.Month) (storage.MonthRun, error)
	MarkNoData(ctx context.Context, m core.Month) error
	MarkFlagged(ctx context.Context, m core.Month, events, selected int, fareTotal decimal.Decimal) error
	MarkFailed(ctx context.Context, m core.Month, reason string) error
}

// MonthOutcome is what happened to one month of a run.
type MonthOutcome struct {
	Month     core.Month
	RunID     string
	Status    string
	Events    int
	Selected  int
	FareTotal decimal.Decimal
	Err       error
}

// Summary lists month outcomes in processing order.
type Summary struct {
	Months []MonthOutcome
}

// Count returns how many months ended with status.
func (s Summary) Count(status string) int {
	n := 0
	for _, o := range s.Months {
		if o.Status == status {
			n++
		}
	}
	return n
}

// MonthDriver feeds each month of history through the parser and flagger
// and hands the result to the configured sinks.
type MonthDriver struct {
	source   history.RowSource
	sinks    []history.SelectionSink
	recorder RunRecorder
	stations core.Stations
	logger   *log.Logger
	metrics  *metrics.Metrics

	// Force reprocesses months that were already declared.
	Force bool
}

func NewMonthDriver(source history.RowSource, recorder RunRecorder, stations core.Stations, sinks ...history.SelectionSink) *MonthDriver {
	return &MonthDriver{
		source:   source,
		sinks:    sinks,
		recorder: recorder,
		stations: stations,
		logger:   log.Default().WithComponent(log.ComponentDriver),
	}
}

// WithLogger replaces the driver's logger.
func (d *MonthDriver) WithLogger(l *log.Logger) *MonthDriver {
	d.logger = l.WithComponent(log.ComponentDriver)
	return d
}

// WithMetrics enables metric collection.
func (d *MonthDriver) WithMetrics(m *metrics.Metrics) *MonthDriver {
	d.metrics = m
	return d
}

// Run processes every month from..to in order. A failing month does not stop
// the range; every failure is returned joined.
func (d *MonthDriver) Run(ctx context.Context, from, to core.Month) (Summary, error) {
	if from.After(to) {
		return Summary{}, fmt.Errorf("%w: %s after %s", core.ErrInvalidMonth, from, to)
	}

	start := time.Now()
	defer func() { d.metrics.RunFinished(time.Since(start)) }()

	var (
		summary Summary
		errs    []error
	)
	for m := from; !m.After(to); m = m.Next() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		out := d.RunMonth(ctx, m)
		summary.Months = append(summary.Months, out)
		if out.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m, out.Err))
		}
	}

	d.logger.InfoContext(ctx, "Driver run finished",
		"from", from.String(),
		"to", to.String(),
		storage.StatusFlagged, summary.Count(storage.StatusFlagged),
		storage.StatusNoData, summary.Count(storage.StatusNoData),
		storage.StatusFailed, summary.Count(storage.StatusFailed),
		StatusSkipped, summary.Count(StatusSkipped),
		"duration", time.Since(start))

	return summary, errors.Join(errs...)
}

// RunMonth processes a single month and records its outcome.
func (d *MonthDriver) RunMonth(ctx context.Context, m core.Month) MonthOutcome {
	out := MonthOutcome{Month: m}
	logger := d.logger.ForMonth(m)

	if !d.Force {
		run, err := d.recorder.GetRun(ctx, m)
		switch {
		case err == nil && run.Status == storage.StatusDeclared:
			logger.InfoContext(ctx, "Month already declared, skipping", log.FieldRunID, run.ID)
			out.RunID, out.Status = run.ID, StatusSkipped
			d.metrics.MonthProcessed(StatusSkipped)
			return out
		case err != nil && !errors.Is(err, storage.ErrRunNotFound):
			return d.fail(ctx, logger, out, log.OpRecord, err, false)
		}
	}

	run, err := d.recorder.BeginRun(ctx, m)
	if err != nil {
		return d.fail(ctx, logger, out, log.OpRecord, err, false)
	}
	out.RunID = run.ID
	logger = logger.ForRun(run.ID)
	ctx = history.WithRunID(ctx, run.ID)

	cells, err := d.source.MonthRows(ctx, m)
	if err != nil {
		return d.fail(ctx, logger, out, log.OpFetch, err, true)
	}
	if len(cells) == 0 {
		logger.InfoContext(ctx, "No data for month")
		if err := d.recorder.MarkNoData(ctx, m); err != nil {
			return d.fail(ctx, logger, out, log.OpRecord, err, false)
		}
		out.Status = storage.StatusNoData
		d.metrics.MonthProcessed(out.Status)
		return out
	}

	events, err := core.ParseRows(cells)
	if err != nil {
		return d.fail(ctx, logger, out, log.OpParse, err, true)
	}

	selected := core.FlagJourneys(events, d.stations)
	fareTotal := core.SelectedFareTotal(events)
	out.Events, out.Selected, out.FareTotal = len(events), selected, fareTotal

	for _, sink := range d.sinks {
		if err := sink.ApplySelection(ctx, m, events); err != nil {
			return d.fail(ctx, logger, out, log.OpApply, fmt.Errorf("apply selection (%T): %w", sink, err), true)
		}
	}

	if err := d.recorder.MarkFlagged(ctx, m, len(events), selected, fareTotal); err != nil {
		return d.fail(ctx, logger, out, log.OpRecord, err, false)
	}

	out.Status = storage.StatusFlagged
	d.metrics.MonthProcessed(out.Status)
	d.metrics.EventsSelected(selected, fareTotal.InexactFloat64())
	logger.InfoContext(ctx, "Month flagged",
		log.NewFields().WithSelection(len(events), selected, fareTotal.StringFixed(2)).ToSlice()...)
	return out
}

// fail logs the error, records it on the run when one exists and marks the outcome failed.
func (d *MonthDriver) fail(ctx context.Context, logger *log.Logger, out MonthOutcome, op string, err error, record bool) MonthOutcome {
	logger.ErrorContext(ctx, "Month failed", log.FieldOperation, op, log.FieldError, err)
	if record {
		if rerr := d.recorder.MarkFailed(ctx, out.Month, err.Error()); rerr != nil {
			logger.ErrorContext(ctx, "Failed to record month failure", log.FieldError, rerr)
			err = errors.Join(err, rerr)
		}
	}
	out.Status = storage.StatusFailed
	out.Err = err
	d.metrics.MonthProcessed(out.Status)
	return out
}
