package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMonth(t *testing.T) {
	m, err := NewMonth(2023, 4)
	require.NoError(t, err)
	assert.Equal(t, Month{Year: 2023, Month: time.April}, m)
	assert.Equal(t, "2023-04", m.String())

	for _, bad := range []int{0, 13, -1} {
		_, err := NewMonth(2023, bad)
		assert.ErrorIs(t, err, ErrInvalidMonth)
	}
}

func TestMonthRange(t *testing.T) {
	months, err := MonthRange(2023, 4, 6)
	require.NoError(t, err)
	require.Len(t, months, 3)
	assert.Equal(t, time.April, months[0].Month)
	assert.Equal(t, time.June, months[2].Month)

	_, err = MonthRange(2023, 6, 4)
	assert.ErrorIs(t, err, ErrInvalidMonth)
	_, err = MonthRange(2023, 11, 13)
	assert.ErrorIs(t, err, ErrInvalidMonth)
}

func TestSelectedAndFareTotal(t *testing.T) {
	events := []Event{
		{Selected: true, Fare: decimal.NewNullDecimal(decimal.RequireFromString("3.28"))},
		{Selected: false, Fare: decimal.NewNullDecimal(decimal.RequireFromString("9.99"))},
		{Selected: true},
		{Selected: true, Fare: decimal.NewNullDecimal(decimal.RequireFromString("1.72"))},
	}
	assert.Equal(t, []int{0, 2, 3}, Selected(events))
	assert.True(t, SelectedFareTotal(events).Equal(decimal.RequireFromString("5")))
	assert.Nil(t, Selected(nil))
	assert.True(t, SelectedFareTotal(nil).IsZero())
}

func TestMonthNextAndAfter(t *testing.T) {
	dec := Month{Year: 2023, Month: time.December}
	jan := dec.Next()
	assert.Equal(t, Month{Year: 2024, Month: time.January}, jan)
	assert.Equal(t, Month{Year: 2023, Month: time.May}, Month{Year: 2023, Month: time.April}.Next())

	assert.True(t, jan.After(dec))
	assert.False(t, dec.After(jan))
	assert.False(t, dec.After(dec))
}
