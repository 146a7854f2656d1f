package worker

import (
	"context"
	"errors"
	"fmt"

	"ovdeclare/internal/amqp"
	"ovdeclare/internal/core"
	"ovdeclare/internal/log"
	"ovdeclare/internal/metrics"
	"ovdeclare/internal/storage"
)

var (
	ErrStaleRun      = errors.New("declaration belongs to a superseded run")
	ErrRunNotFlagged = errors.New("month run is not awaiting a declaration")
)

// DeclarationRecorder stores the declared amount on a month run.
type DeclarationRecorder interface {
	GetRun(ctx context.Context, m core.Month) (storage.MonthRun, error)
	MarkDeclared(ctx context.Context, m core.Month, amount string) error
	MarkFailed(ctx context.Context, m core.Month, reason string) error
}

// DeclarationWorker turns declaration texts into recorded amounts.
type DeclarationWorker struct {
	recorder DeclarationRecorder
	logger   *log.Logger
	metrics  *metrics.Metrics
}

func NewDeclarationWorker(recorder DeclarationRecorder, m *metrics.Metrics) *DeclarationWorker {
	return &DeclarationWorker{
		recorder: recorder,
		logger:   log.Default().WithComponent(log.ComponentWorker),
		metrics:  m,
	}
}

// HandleDeclarationText extracts the total amount from a declaration and
// records it. Errors that a retry cannot fix are wrapped with amqp.Reject so
// the message is dropped; anything else is returned for redelivery.
func (w *DeclarationWorker) HandleDeclarationText(ctx context.Context, msg *amqp.DeclarationTextMessage) error {
	m, err := msg.MonthOf()
	if err != nil {
		w.metrics.DeclarationHandled(storage.StatusFailed)
		return amqp.Reject(err)
	}
	logger := w.logger.ForMonth(m).ForRun(msg.RunID)

	run, err := w.recorder.GetRun(ctx, m)
	if errors.Is(err, storage.ErrRunNotFound) {
		logger.WarnContext(ctx, "Declaration for unknown month")
		w.metrics.DeclarationHandled(storage.StatusFailed)
		return amqp.Reject(err)
	}
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	if msg.RunID != "" && msg.RunID != run.ID {
		w.metrics.DeclarationHandled(storage.StatusFailed)
		logger.WarnContext(ctx, "Declaration for superseded run", "current_run_id", run.ID)
		return amqp.Reject(fmt.Errorf("%w: got %s, current %s", ErrStaleRun, msg.RunID, run.ID))
	}
	// Only a flagged run has a selection a declaration can answer.
	if run.Status != storage.StatusFlagged {
		logger.WarnContext(ctx, "Declaration for run in wrong state", log.FieldStatus, run.Status)
		w.metrics.DeclarationHandled(storage.StatusFailed)
		return amqp.Reject(fmt.Errorf("%w: status %s", ErrRunNotFlagged, run.Status))
	}

	amount, err := core.ExtractDeclarationAmount(msg.Text)
	if err != nil {
		logger.ErrorContext(ctx, "Declaration amount not found", log.FieldOperation, log.OpExtract, log.FieldError, err)
		if rerr := w.recorder.MarkFailed(ctx, m, err.Error()); rerr != nil {
			return fmt.Errorf("record failure: %w", rerr)
		}
		w.metrics.DeclarationHandled(storage.StatusFailed)
		return amqp.Reject(err)
	}

	if err := w.recorder.MarkDeclared(ctx, m, amount); err != nil {
		return fmt.Errorf("record declaration: %w", err)
	}

	w.metrics.DeclarationHandled(storage.StatusDeclared)
	logger.InfoContext(ctx, "Declaration recorded", log.FieldAmount, amount)
	return nil
}
