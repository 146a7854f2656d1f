package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ovdeclare/internal/core"
)

func newBufferLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Component: component,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, ComponentDriver)

	l.Info("month flagged", FieldYear, 2023)

	out := buf.String()
	assert.Contains(t, out, "component=driver")
	assert.Contains(t, out, "year=2023")
}

func TestLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, ComponentApp).WithComponent(ComponentWorker).With(FieldRunID, "abc")

	l.Warn("declaration rejected")

	out := buf.String()
	assert.Contains(t, out, "component=worker")
	assert.NotContains(t, out, "component=app")
	assert.Contains(t, out, "run_id=abc")
	assert.Equal(t, ComponentWorker, l.Component())
}

func TestLoggerForMonthAndRun(t *testing.T) {
	var buf bytes.Buffer
	base := newBufferLogger(&buf, ComponentWorker)

	base.ForMonth(core.Month{Year: 2023, Month: time.April}).ForRun("run-7").Info("declaration recorded")
	out := buf.String()
	assert.Contains(t, out, "component=worker")
	assert.Contains(t, out, "year=2023")
	assert.Contains(t, out, "month=4")
	assert.Contains(t, out, "run_id=run-7")

	buf.Reset()
	base.ForRun("").Info("declaration without run")
	assert.NotContains(t, buf.String(), FieldRunID)
	assert.Same(t, base, base.ForRun(""))
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Handler: slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})})

	l.Debug("hidden")
	l.InfoContext(context.Background(), "hidden too")
	assert.Empty(t, buf.String())

	l.ErrorContext(context.Background(), "shown")
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "component=app")
}

func TestNewDefaultsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, "")
	assert.Equal(t, ComponentApp, l.Component())
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithComponent(ComponentDriver).
		WithOperation(OpFlag).
		WithMonth(2023, 4).
		WithRunID("").
		WithSelection(10, 4, "12.5").
		WithError(errors.New("boom"))

	assert.Equal(t, ComponentDriver, f[FieldComponent])
	assert.Equal(t, OpFlag, f[FieldOperation])
	assert.Equal(t, 4, f[FieldMonth])
	assert.Equal(t, 4, f[FieldSelected])
	assert.Equal(t, "boom", f[FieldError])
	_, hasRun := f[FieldRunID]
	assert.False(t, hasRun)
	assert.Len(t, f.ToSlice(), len(f)*2)

	assert.NotContains(t, NewFields().WithError(nil), FieldError)
}
