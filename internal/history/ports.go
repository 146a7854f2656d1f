package history

import (
	"context"
	"strings"
	"unicode"

	"ovdeclare/internal/core"
)

// Ports for the travel-history collaborators.
type (
	// RowSource supplies the raw cells of a month's travel history as a flat,
	// ordered sequence whose length is a multiple of core.RowCells. A month
	// without data yields an empty sequence, not an error.
	RowSource interface {
		MonthRows(ctx context.Context, m core.Month) ([]string, error)
	}

	// SelectionSink consumes the flagged events of a month in source order.
	// Events are addressed by position; sinks map them back to whatever
	// handle they own.
	SelectionSink interface {
		ApplySelection(ctx context.Context, m core.Month, events []core.Event) error
	}
)

// IsHeaderRow reports whether a table row is a column header rather than
// travel data. Data rows start with "<weekday> <date>", which always holds a digit.
func IsHeaderRow(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	return !strings.ContainsFunc(cells[0], unicode.IsDigit)
}

// IsBlankRow reports whether every cell of a row is empty.
func IsBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

type runIDKey struct{}

// WithRunID attaches the month run identifier so sinks can correlate what they emit.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the run identifier set by WithRunID, or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
