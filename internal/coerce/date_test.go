package coerce_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spazos-ar/etl-ssn/internal/coerce"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		format coerce.DateFormat
		want   string
	}{
		{name: "nil is blank", value: nil, format: coerce.DDMMYYYY, want: ""},
		{name: "empty string is blank", value: "  ", format: coerce.DDMMYYYY, want: ""},
		{name: "NaN is blank", value: math.NaN(), format: coerce.DDMMYYYY, want: ""},
		{name: "time value", value: time.Date(2025, 6, 30, 10, 0, 0, 0, time.UTC), format: coerce.DDMMYYYY, want: "30062025"},
		{name: "time value ymd", value: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), format: coerce.YYYYMMDD, want: "20250630"},
		{name: "serial 1", value: 1.0, format: coerce.DDMMYYYY, want: "01011900"},
		{name: "serial 59", value: 59.0, format: coerce.YYYYMMDD, want: "19000228"},
		{name: "serial 61", value: 61.0, format: coerce.YYYYMMDD, want: "19000301"},
		{name: "serial modern", value: 45658.0, format: coerce.DDMMYYYY, want: "01012025"},
		{name: "serial with time part", value: 45658.75, format: coerce.DDMMYYYY, want: "01012025"},
		{name: "serial int", value: 45838, format: coerce.MMDDYYYY, want: "06302025"},
		{name: "serial json number", value: json.Number("45658"), format: coerce.DDMMYYYY, want: "01012025"},
		{name: "eight digit ymd string", value: "20250131", format: coerce.DDMMYYYY, want: "31012025"},
		{name: "eight digit dmy string", value: "31012025", format: coerce.YYYYMMDD, want: "20250131"},
		{name: "eight digit numeric", value: 20250131.0, format: coerce.DDMMYYYY, want: "31012025"},
		{name: "seven digit numeric dmy", value: 1012025.0, format: coerce.DDMMYYYY, want: "01012025"},
		{name: "seven digit int dmy", value: 9122024, format: coerce.YYYYMMDD, want: "20241209"},
		{name: "ymd reading invalid falls back to dmy", value: "20012025", format: coerce.YYYYMMDD, want: "20250120"},
		{name: "iso date", value: "2025-02-28", format: coerce.DDMMYYYY, want: "28022025"},
		{name: "iso datetime", value: "2024-02-29 00:00:00", format: coerce.MMDDYYYY, want: "02292024"},
		{name: "default format", value: "2025-02-28", format: "", want: "28022025"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerce.NormalizeDate(tt.value, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{name: "phantom leap day serial", value: 60.0},
		{name: "negative serial", value: -3.0},
		{name: "february 30", value: "30022025"},
		{name: "non leap february 29", value: "29022025"},
		{name: "century non leap", value: "19000229"},
		{name: "month 13", value: "01132025"},
		{name: "seven digits not a dmy date", value: 1132025.0},
		{name: "free text", value: "next monday"},
		{name: "iso invalid day", value: "2025-04-31"},
		{name: "unsupported type", value: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := coerce.NormalizeDate(tt.value, coerce.DDMMYYYY)
			require.Error(t, err)

			var dfe *coerce.DateFormatError
			require.ErrorAs(t, err, &dfe)
			assert.Equal(t, tt.value, dfe.Value)
			assert.Equal(t, coerce.DDMMYYYY, dfe.Format)
		})
	}
}

func TestNormalizeDate_LeapYears(t *testing.T) {
	got, err := coerce.NormalizeDate("20000229", coerce.DDMMYYYY)
	require.NoError(t, err)
	assert.Equal(t, "29022000", got)

	got, err = coerce.NormalizeDate("29022024", coerce.YYYYMMDD)
	require.NoError(t, err)
	assert.Equal(t, "20240229", got)
}

func TestSerialToTime_EpochBranches(t *testing.T) {
	before, err := coerce.SerialToTime(59)
	require.NoError(t, err)
	after, err := coerce.SerialToTime(61)
	require.NoError(t, err)

	// Two serials apart but only one calendar day apart: the branches
	// differ by exactly one day.
	assert.Equal(t, 24*time.Hour, after.Sub(before))

	_, err = coerce.SerialToTime(60)
	assert.Error(t, err)
}

func TestNormalizeDate_RoundTrip(t *testing.T) {
	dates := []time.Time{
		time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC),
		time.Date(2100, 12, 1, 0, 0, 0, 0, time.UTC),
	}
	formats := []coerce.DateFormat{coerce.DDMMYYYY, coerce.YYYYMMDD, coerce.MMDDYYYY}

	for _, d := range dates {
		for _, f := range formats {
			out, err := coerce.NormalizeDate(d, f)
			require.NoError(t, err)

			parsed, err := coerce.ParseDate(out, f)
			require.NoError(t, err)
			assert.True(t, d.Equal(parsed), "%s via %s", d, f)
		}
	}
}

func TestNormalizeDate_AutoDetectRoundTrip(t *testing.T) {
	d := time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)

	for _, f := range []coerce.DateFormat{coerce.DDMMYYYY, coerce.YYYYMMDD} {
		out, err := coerce.NormalizeDate(d, f)
		require.NoError(t, err)

		again, err := coerce.NormalizeDate(out, coerce.YYYYMMDD)
		require.NoError(t, err)
		assert.Equal(t, "20250714", again)
	}
}

func TestParseDateFormat(t *testing.T) {
	f, err := coerce.ParseDateFormat("yyyymmdd")
	require.NoError(t, err)
	assert.Equal(t, coerce.YYYYMMDD, f)

	f, err = coerce.ParseDateFormat("")
	require.NoError(t, err)
	assert.Equal(t, coerce.DDMMYYYY, f)

	_, err = coerce.ParseDateFormat("DD/MM/YYYY")
	assert.Error(t, err)
}
