package google

import (
	"testing"

	"ovdeclare/internal/core"
)

// Matrix shaped like a month tab: header, short rows and a blank row
func TestFlattenHistory_April2023(t *testing.T) {
	values := [][]interface{}{
		{"Datum", "Check-in", "Vertrek", "Bestemming", "Bedrag", "Transactie"},
		{"Monday 03-04-2023", "09:15", "Den Haag Centraal", "check-in"},
		{},
		{"Monday 03-04-2023", "09:52", "Schiphol Airport", "check-out", "€ 3,28", "NS 2e klas", "extra"},
	}

	cells := flattenHistory(values)
	if len(cells) != 2*core.RowCells {
		t.Fatalf("cells: got %d want %d", len(cells), 2*core.RowCells)
	}
	if cells[0] != "Monday 03-04-2023" {
		t.Errorf("first cell: got %q", cells[0])
	}
	// Padded trailing cells
	if cells[4] != "" || cells[5] != "" {
		t.Errorf("padding: got %q %q", cells[4], cells[5])
	}
	if cells[10] != "€ 3,28" || cells[11] != "NS 2e klas" {
		t.Errorf("fare/details: got %q %q", cells[10], cells[11])
	}

	events, err := core.ParseRows(cells)
	if err != nil {
		t.Fatalf("parse rows: %v", err)
	}
	if events[0].Fare.Valid {
		t.Errorf("first event should have no fare")
	}
	if got := events[1].Fare.Decimal.String(); got != "3.28" {
		t.Errorf("fare: got %s", got)
	}
}

func TestFlattenHistory_NoHeader(t *testing.T) {
	values := [][]interface{}{
		{"Tuesday 02-05-2023", "08:01", "Leiden Centraal", "check-in", "", ""},
	}
	if got := len(flattenHistory(values)); got != core.RowCells {
		t.Fatalf("cells: got %d", got)
	}
}

func TestFlattenHistory_Empty(t *testing.T) {
	if got := flattenHistory(nil); len(got) != 0 {
		t.Fatalf("expected no cells, got %v", got)
	}
	if got := flattenHistory([][]interface{}{{"Datum", "Tijd"}}); len(got) != 0 {
		t.Fatalf("header only: expected no cells, got %v", got)
	}
}

func TestToRow_NumbersAndNil(t *testing.T) {
	row := toRow([]interface{}{"Friday 07-04-2023", nil, "Utrecht Centraal", "check-out", 3.5})
	if row[1] != "" {
		t.Errorf("nil cell: got %q", row[1])
	}
	if row[4] != "3.5" {
		t.Errorf("numeric cell: got %q", row[4])
	}
}
