// Package core holds the travel-history domain: events and months, the row
// and fare parsers, the declaration amount extractor and the journey flagger.
package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Event is one row of travel history.
	Event struct {
		WeekDay     string // Day name, e.g. "Monday"
		EventDate   string // dd-mm-yyyy, the "same day" key
		EventTime   string // Verbatim "<weekday> <date> <clock>"
		Station     string
		Transaction string
		Fare        decimal.NullDecimal // Valid is false when the row carries no fare
		Details     string
		Selected    bool
	}

	// Month identifies one calendar month of travel history.
	Month struct {
		Year  int
		Month time.Month
	}
)

var (
	ErrMalformedRow   = errors.New("malformed row")
	ErrMalformedFare  = errors.New("malformed fare")
	ErrAmountNotFound = errors.New("declaration amount not found")
	ErrInvalidMonth   = errors.New("invalid month")
)

// NewMonth returns the month for year and a 1-12 month number.
func NewMonth(year, month int) (Month, error) {
	if month < 1 || month > 12 {
		return Month{}, fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

// MonthRange returns every month from first to last (inclusive) of year.
func MonthRange(year, first, last int) ([]Month, error) {
	if first > last {
		return nil, fmt.Errorf("%w: first month %d after last month %d", ErrInvalidMonth, first, last)
	}
	out := make([]Month, 0, last-first+1)
	for m := first; m <= last; m++ {
		month, err := NewMonth(year, m)
		if err != nil {
			return nil, err
		}
		out = append(out, month)
	}
	return out, nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Selected returns the positions of the selected events.
func Selected(events []Event) []int {
	var idx []int
	for i, e := range events {
		if e.Selected {
			idx = append(idx, i)
		}
	}
	return idx
}

// SelectedFareTotal sums the fares of selected events; rows without a fare count as zero.
func SelectedFareTotal(events []Event) decimal.Decimal {
	total := decimal.Zero
	for _, e := range events {
		if e.Selected && e.Fare.Valid {
			total = total.Add(e.Fare.Decimal)
		}
	}
	return total
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// After reports whether m is later than o.
func (m Month) After(o Month) bool {
	if m.Year != o.Year {
		return m.Year > o.Year
	}
	return m.Month > o.Month
}
