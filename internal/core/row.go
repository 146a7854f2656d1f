package core

import (
	"fmt"
	"strings"
)

// RowCells is the number of table cells that make up one travel-history row:
// date header, clock time, station, transaction, fare, details.
const RowCells = 6

// ParseRow converts the cells of one travel-history row into an Event.
// Only the date header and the fare are interpreted; station and details may
// be empty.
func ParseRow(cells []string) (Event, error) {
	if len(cells) != RowCells {
		return Event{}, fmt.Errorf("%w: expected %d cells, got %d", ErrMalformedRow, RowCells, len(cells))
	}
	dateCell, clock, station, transaction, rawFare, details := cells[0], cells[1], cells[2], cells[3], cells[4], cells[5]

	weekDay, eventDate, ok := strings.Cut(dateCell, " ")
	if !ok || weekDay == "" || eventDate == "" {
		return Event{}, fmt.Errorf("%w: date cell %q is not \"<weekday> <date>\"", ErrMalformedRow, dateCell)
	}

	fare, err := ParseFare(rawFare)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrMalformedRow, err)
	}

	eventTime := dateCell
	if clock != "" {
		eventTime = dateCell + " " + clock
	}

	return Event{
		WeekDay:     weekDay,
		EventDate:   eventDate,
		EventTime:   eventTime,
		Station:     station,
		Transaction: transaction,
		Fare:        fare,
		Details:     details,
	}, nil
}

// ParseRows splits a flat cell sequence into rows of RowCells and parses each,
// preserving order. Any malformed row fails the whole batch.
func ParseRows(cells []string) ([]Event, error) {
	if len(cells)%RowCells != 0 {
		return nil, fmt.Errorf("%w: %d cells is not a multiple of %d", ErrMalformedRow, len(cells), RowCells)
	}
	events := make([]Event, 0, len(cells)/RowCells)
	for i := 0; i < len(cells); i += RowCells {
		e, err := ParseRow(cells[i : i+RowCells])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i/RowCells, err)
		}
		events = append(events, e)
	}
	return events, nil
}
