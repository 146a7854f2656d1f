package files

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ovdeclare/internal/core"
)

func writeMonth(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func month(t *testing.T, y, m int) core.Month {
	t.Helper()
	mm, err := core.NewMonth(y, m)
	require.NoError(t, err)
	return mm
}

func TestMonthRowsSemicolon(t *testing.T) {
	dir := t.TempDir()
	writeMonth(t, dir, "2023-04.csv", "Datum;Tijd;Station;Transactie;Bedrag;Details\n"+
		"Monday 03-04-2023;09:15;Den Haag Centraal;check-in;;\n"+
		"\n"+
		"Monday 03-04-2023;09:52;Schiphol Airport;check-out;€ 3,28;NS 2e klas\n")

	cells, err := New(dir).MonthRows(context.Background(), month(t, 2023, 4))
	require.NoError(t, err)
	require.Len(t, cells, 2*core.RowCells)
	assert.Equal(t, "Monday 03-04-2023", cells[0])
	assert.Equal(t, "Den Haag Centraal", cells[2])
	assert.Equal(t, "€ 3,28", cells[10])

	events, err := core.ParseRows(cells)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "3.28", events[1].Fare.Decimal.String())
}

func TestMonthRowsComma(t *testing.T) {
	dir := t.TempDir()
	writeMonth(t, dir, "2023-05.csv",
		"Tuesday 02-05-2023,08:01,Leiden Centraal,check-in,,\n"+
			"Tuesday 02-05-2023,08:30,Amsterdam Zuid,check-out,\"€ 4,10\",\n")

	cells, err := New(dir).MonthRows(context.Background(), month(t, 2023, 5))
	require.NoError(t, err)
	require.Len(t, cells, 2*core.RowCells)
	// No header: the first line is data
	assert.Equal(t, "Tuesday 02-05-2023", cells[0])
	assert.Equal(t, "€ 4,10", cells[10])
}

func TestMonthRowsMissingFile(t *testing.T) {
	cells, err := New(t.TempDir()).MonthRows(context.Background(), month(t, 2023, 6))
	require.NoError(t, err)
	assert.Empty(t, cells)
}

func TestMonthRowsWrongFieldCount(t *testing.T) {
	dir := t.TempDir()
	writeMonth(t, dir, "2023-04.csv", "Datum;Tijd;Station;Transactie;Bedrag;Details\n"+
		"Monday 03-04-2023;09:15;Den Haag Centraal;check-in;;\n"+
		"Monday 03-04-2023;09:52;Schiphol Airport\n")

	_, err := New(dir).MonthRows(context.Background(), month(t, 2023, 4))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMalformedRow)
	assert.Contains(t, err.Error(), "line 3")
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want rune
	}{
		{"semicolon", "a;b;c\n", ';'},
		{"comma", "a,b,c\n", ','},
		{"semicolon with decimal commas", "x;€ 3,28;y;z\n", ';'},
		{"empty", "", ','},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sniffDelimiter(bufio.NewReader(strings.NewReader(tt.in)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
