package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ovdeclare/internal/amqp"
	"ovdeclare/internal/core"
	"ovdeclare/internal/storage"
)

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

var april = core.Month{Year: 2023, Month: 4}

func beginApril(t *testing.T, repo *storage.SQLiteRepository) storage.MonthRun {
	t.Helper()
	run, err := repo.BeginRun(context.Background(), april)
	require.NoError(t, err)
	return run
}

// flagApril starts an April run and records a selection on it, which is the
// state a declaration is expected to find.
func flagApril(t *testing.T, repo *storage.SQLiteRepository) storage.MonthRun {
	t.Helper()
	run := beginApril(t, repo)
	require.NoError(t, repo.MarkFlagged(context.Background(), april, 3, 1, decimal.RequireFromString("3.28")))
	return run
}

func TestHandleDeclarationText_RecordsAmount(t *testing.T) {
	repo := newRepo(t)
	run := flagApril(t, repo)
	w := NewDeclarationWorker(repo, nil)

	err := w.HandleDeclarationText(context.Background(), &amqp.DeclarationTextMessage{
		RunID: run.ID,
		Year:  2023,
		Month: 4,
		Text:  "Summary\nTotal expenses € 12,50 Including VAT",
	})
	require.NoError(t, err)

	got, err := repo.GetRun(context.Background(), core.Month{Year: 2023, Month: 4})
	require.NoError(t, err)
	assert.Equal(t, storage.StatusDeclared, got.Status)
	assert.Equal(t, "12,50", got.DeclaredAmount)
}

func TestHandleDeclarationText_MissingAmount(t *testing.T) {
	repo := newRepo(t)
	run := flagApril(t, repo)
	w := NewDeclarationWorker(repo, nil)

	err := w.HandleDeclarationText(context.Background(), &amqp.DeclarationTextMessage{
		RunID: run.ID, Year: 2023, Month: 4, Text: "No totals on this page",
	})
	require.Error(t, err)
	assert.True(t, amqp.IsReject(err))
	assert.ErrorIs(t, err, core.ErrAmountNotFound)

	got, err := repo.GetRun(context.Background(), core.Month{Year: 2023, Month: 4})
	require.NoError(t, err)
	assert.Equal(t, storage.StatusFailed, got.Status)
	assert.Equal(t, core.ErrAmountNotFound.Error(), got.Error)
}

func TestHandleDeclarationText_Rejections(t *testing.T) {
	repo := newRepo(t)
	flagApril(t, repo)
	w := NewDeclarationWorker(repo, nil)

	tests := []struct {
		name string
		msg  amqp.DeclarationTextMessage
		is   error
	}{
		{"invalid month", amqp.DeclarationTextMessage{Year: 2023, Month: 0}, core.ErrInvalidMonth},
		{"unknown month", amqp.DeclarationTextMessage{Year: 2023, Month: 5, Text: "Total expenses € 1,00 Including"}, storage.ErrRunNotFound},
		{"stale run", amqp.DeclarationTextMessage{RunID: "old", Year: 2023, Month: 4, Text: "Total expenses € 1,00 Including"}, ErrStaleRun},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.HandleDeclarationText(context.Background(), &tt.msg)
			require.Error(t, err)
			assert.True(t, amqp.IsReject(err))
			assert.ErrorIs(t, err, tt.is)
		})
	}
}

func TestHandleDeclarationText_RejectsSupersededRun(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	w := NewDeclarationWorker(repo, nil)

	first := beginApril(t, repo)
	require.NoError(t, repo.MarkFailed(ctx, april, "sheet unavailable"))
	second := flagApril(t, repo)
	require.NotEqual(t, first.ID, second.ID)

	err := w.HandleDeclarationText(ctx, &amqp.DeclarationTextMessage{
		RunID: first.ID, Year: 2023, Month: 4, Text: "Total expenses € 9,99 Including VAT",
	})
	require.Error(t, err)
	assert.True(t, amqp.IsReject(err))
	assert.ErrorIs(t, err, ErrStaleRun)

	got, err := repo.GetRun(ctx, april)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusFlagged, got.Status)
	assert.Empty(t, got.DeclaredAmount)

	require.NoError(t, w.HandleDeclarationText(ctx, &amqp.DeclarationTextMessage{
		RunID: second.ID, Year: 2023, Month: 4, Text: "Total expenses € 9,99 Including VAT",
	}))
}

func TestHandleDeclarationText_RejectsRunNotFlagged(t *testing.T) {
	ctx := context.Background()
	text := "Total expenses € 9,99 Including VAT"

	tests := []struct {
		name   string
		status func(t *testing.T, repo *storage.SQLiteRepository)
		want   string
	}{
		{"pending", func(*testing.T, *storage.SQLiteRepository) {}, storage.StatusPending},
		{"failed", func(t *testing.T, repo *storage.SQLiteRepository) {
			require.NoError(t, repo.MarkFailed(ctx, april, "boom"))
		}, storage.StatusFailed},
		{"no data", func(t *testing.T, repo *storage.SQLiteRepository) {
			require.NoError(t, repo.MarkNoData(ctx, april))
		}, storage.StatusNoData},
		{"already declared", func(t *testing.T, repo *storage.SQLiteRepository) {
			require.NoError(t, repo.MarkFlagged(ctx, april, 1, 1, decimal.Zero))
			require.NoError(t, repo.MarkDeclared(ctx, april, "1,00"))
		}, storage.StatusDeclared},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRepo(t)
			run := beginApril(t, repo)
			tt.status(t, repo)
			w := NewDeclarationWorker(repo, nil)

			err := w.HandleDeclarationText(ctx, &amqp.DeclarationTextMessage{
				RunID: run.ID, Year: 2023, Month: 4, Text: text,
			})
			require.Error(t, err)
			assert.True(t, amqp.IsReject(err))
			assert.ErrorIs(t, err, ErrRunNotFlagged)

			got, err := repo.GetRun(ctx, april)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

type flakyRecorder struct {
	storage.MonthRun
}

func (f *flakyRecorder) GetRun(context.Context, core.Month) (storage.MonthRun, error) {
	return f.MonthRun, nil
}

func (f *flakyRecorder) MarkDeclared(context.Context, core.Month, string) error {
	return errors.New("database is locked")
}

func (f *flakyRecorder) MarkFailed(context.Context, core.Month, string) error { return nil }

func TestHandleDeclarationText_TransientErrorRequeues(t *testing.T) {
	w := NewDeclarationWorker(&flakyRecorder{storage.MonthRun{ID: "run-1", Status: storage.StatusFlagged}}, nil)

	err := w.HandleDeclarationText(context.Background(), &amqp.DeclarationTextMessage{
		RunID: "run-1", Year: 2023, Month: 4, Text: "Total expenses € 3,28 Including VAT",
	})
	require.Error(t, err)
	assert.False(t, amqp.IsReject(err))
}
