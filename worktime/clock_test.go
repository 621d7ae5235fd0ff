package worktime

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workhours/apperror"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "09:30", want: "09:30:00"},
		{in: "17:45:15", want: "17:45:15"},
		{in: " 00:00 ", want: "00:00:00"},
		{in: "23:59:59", want: "23:59:59"},
		{in: "12:30:00.000000", want: "12:30:00"},
		{in: "", wantErr: true},
		{in: "25:00", wantErr: true},
		{in: "noon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.String())
		})
	}
}

func TestClock_ScanAndValue(t *testing.T) {
	var c Clock

	require.NoError(t, c.Scan("22:15:00"))
	assert.Equal(t, NewClock(22, 15, 0), c)

	require.NoError(t, c.Scan([]byte("06:05:04")))
	assert.Equal(t, "06:05", c.Short())

	require.NoError(t, c.Scan(time.Date(0, 1, 1, 13, 1, 2, 0, time.UTC)))
	assert.Equal(t, NewClock(13, 1, 2), c)

	assert.Error(t, c.Scan(42))
	assert.Error(t, c.Scan("later"))

	v, err := NewClock(7, 30, 0).Value()
	require.NoError(t, err)
	assert.Equal(t, "07:30:00", v)

	_, err = Clock(secondsPerDay).Value()
	assert.Error(t, err)
}

func TestParseHours(t *testing.T) {
	h, err := ParseHours("1,5")
	require.NoError(t, err)
	assert.Equal(t, "1.50", h.StringFixed(2))

	h, err = ParseHours("")
	require.NoError(t, err)
	assert.True(t, h.IsZero())

	_, err = ParseHours("two")
	assert.Error(t, err)

	h, err = ParseHours("1e1")
	require.NoError(t, err)
	assert.Equal(t, "10.00", h.StringFixed(2))

	for _, in := range []string{"1e-2147483647", "1e-40000000", "5e9", "1E+2147483647"} {
		_, err = ParseHours(in)
		assert.True(t, apperror.IsValidation(err), in)
	}
}

func TestFormatHours(t *testing.T) {
	assert.Equal(t, "1:30", FormatClockHours(decimal.RequireFromString("1.50")))
	assert.Equal(t, "5:49", FormatClockHours(decimal.RequireFromString("5.83")))
	assert.Equal(t, "0:00", FormatClockHours(decimal.Zero))
	assert.Equal(t, "12:00", FormatClockHours(decimal.NewFromInt(12)))

	assert.Equal(t, "5.83", FormatDecimalHours(decimal.RequireFromString("5.83000000000000")))
	assert.Equal(t, "0.00", FormatDecimalHours(decimal.Zero))
}
