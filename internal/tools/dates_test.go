package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	now := time.Date(2025, 3, 14, 15, 30, 0, 0, time.UTC)
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "today", want: day(2025, 3, 14)},
		{in: " Today ", want: day(2025, 3, 14)},
		{in: "yesterday", want: day(2025, 3, 13)},
		{in: "last week", want: day(2025, 3, 7)},
		{in: "past  week", want: day(2025, 3, 7)},
		{in: "past 30 days", want: day(2025, 2, 12)},
		{in: "last 1 day", want: day(2025, 3, 13)},
		{in: "last month", want: day(2025, 2, 14)},
		{in: "past year", want: day(2024, 3, 14)},
		{in: "2024-12-31", want: day(2024, 12, 31)},
		{in: "31/12/2024", wantErr: true},
		{in: "next tuesday", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestEndOfDay(t *testing.T) {
	got := EndOfDay(time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 3, 14, 23, 59, 59, 999999999, time.UTC), got)
}

func TestDateRange(t *testing.T) {
	now := time.Date(2025, 3, 14, 15, 30, 0, 0, time.UTC)

	from, to, err := dateRange(Params{"date_from": "2025-03-01", "date_to": "today"}, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, EndOfDay(now), to)

	_, _, err = dateRange(Params{"date_from": "today", "date_to": "yesterday"}, now)
	assert.ErrorIs(t, err, ErrBadParams)

	_, _, err = dateRange(Params{"date_to": "someday"}, now)
	var pe *ParamsError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Invalid, "date_to")

	from, to, err = dateRange(Params{}, now)
	require.NoError(t, err)
	assert.True(t, from.IsZero())
	assert.True(t, to.IsZero())
}
