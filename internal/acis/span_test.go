package acis

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2011-12-31", date(2011, 12, 31)},
		{"20111231", date(2011, 12, 31)},
		{"2011-12", date(2011, 12, 1)},
		{"2011", date(2011, 1, 1)},
		{"1890-02", date(1890, 2, 1)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"11-12-31", "2011-1-1", "2011-02-30", "2011-13", "", "por"} {
		_, err := ParseDate(bad)
		var perr *ParameterError
		assert.True(t, errors.As(err, &perr), "expected error for %q", bad)
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "0800-01-02", FormatDate(date(800, 1, 2)))
	assert.Equal(t, "2012-02-29", FormatDate(date(2012, 2, 29)))
}

func TestResolveSpan(t *testing.T) {
	span, err := ResolveSpan(Params{
		"sdate": "2011-12-30",
		"edate": "2012-01-02",
		"elems": []any{map[string]any{"name": "maxt", "interval": "mly"}, map[string]any{"name": "mint"}},
	})
	require.NoError(t, err)
	assert.Equal(t, date(2011, 12, 30), span.Start.Date)
	require.NotNil(t, span.End)
	assert.Equal(t, date(2012, 1, 2), span.End.Date)
	assert.Equal(t, Monthly, span.Interval)
}

func TestResolveSpanLegacyDateKey(t *testing.T) {
	span, err := ResolveSpan(Params{"date": "2011-12-31", "elems": "maxt,mint"})
	require.NoError(t, err)
	assert.Nil(t, span.End)
	assert.Equal(t, Daily, span.Interval)

	dates, err := span.Expand()
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date(2011, 12, 31)}, dates)
}

func TestResolveSpanErrors(t *testing.T) {
	_, err := ResolveSpan(Params{"edate": "2012-01-01"})
	var merr *MissingDateError
	assert.True(t, errors.As(err, &merr))

	_, err = ResolveSpan(Params{"sdate": "2012-01-01", "elems": []any{map[string]any{"name": "maxt", "interval": "hourly"}}})
	var ierr *InvalidIntervalError
	assert.True(t, errors.As(err, &ierr))
}

func TestExpandDaily(t *testing.T) {
	start, end := date(2011, 12, 25), date(2012, 3, 2)
	span := DateSpan{Start: Marker{Date: start}, End: &Marker{Date: end}, Interval: Daily}

	dates, err := span.Expand()
	require.NoError(t, err)
	require.Len(t, dates, int(end.Sub(start).Hours()/24)+1)
	for i, d := range dates {
		assert.Equal(t, start.AddDate(0, 0, i), d)
	}

	again, err := span.Expand()
	require.NoError(t, err)
	assert.Equal(t, dates, again)
}

func TestExpandCalendarSteps(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		interval Interval
		want     []string
	}{
		{
			name:     "monthly clamps to month end",
			start:    date(2011, 1, 31),
			end:      date(2011, 4, 30),
			interval: Monthly,
			want:     []string{"2011-01-31", "2011-02-28", "2011-03-28", "2011-04-28"},
		},
		{
			name:     "yearly from leap day",
			start:    date(2012, 2, 29),
			end:      date(2014, 3, 1),
			interval: Yearly,
			want:     []string{"2012-02-29", "2013-02-28", "2014-02-28"},
		},
		{
			name:     "last step past end is dropped",
			start:    date(2011, 1, 1),
			end:      date(2011, 1, 20),
			interval: Interval{Days: 7},
			want:     []string{"2011-01-01", "2011-01-08", "2011-01-15"},
		},
		{
			name:     "two month step",
			start:    date(2011, 11, 15),
			end:      date(2012, 3, 15),
			interval: Interval{Months: 2},
			want:     []string{"2011-11-15", "2012-01-15", "2012-03-15"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span := DateSpan{Start: Marker{Date: tt.start}, End: &Marker{Date: tt.end}, Interval: tt.interval}
			dates, err := span.Expand()
			require.NoError(t, err)
			got := make([]string, len(dates))
			for i, d := range dates {
				got[i] = FormatDate(d)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandEdgeCases(t *testing.T) {
	day := date(2012, 1, 1)
	for _, iv := range []Interval{Daily, Monthly, Yearly, {Days: 10}} {
		span := DateSpan{Start: Marker{Date: day}, End: &Marker{Date: day}, Interval: iv}
		dates, err := span.Expand()
		require.NoError(t, err)
		assert.Len(t, dates, 1, iv.String())
	}

	inverted := DateSpan{Start: Marker{Date: day}, End: &Marker{Date: day.AddDate(0, 0, -1)}, Interval: Daily}
	dates, err := inverted.Expand()
	require.NoError(t, err)
	assert.Empty(t, dates)

	var uerr *UnboundedSpanError
	_, err = DateSpan{Start: Marker{POR: true}, End: &Marker{Date: day}}.Expand()
	assert.True(t, errors.As(err, &uerr))
	_, err = DateSpan{Start: Marker{Date: day}, End: &Marker{POR: true}}.Expand()
	assert.True(t, errors.As(err, &uerr))

	for _, iv := range []Interval{{Days: -1}, {Months: -1}, {Years: -2}} {
		span := DateSpan{Start: Marker{Date: day}, End: &Marker{Date: day.AddDate(0, 0, 2)}, Interval: iv}
		_, err := span.Expand()
		var ierr *InvalidIntervalError
		assert.True(t, errors.As(err, &ierr), iv.String())
	}
}

func TestDateRange(t *testing.T) {
	dates, err := DateRange(Params{"sdate": "2011-12-31", "edate": "2012-01-01"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2011-12-31", "2012-01-01"}, dates)

	_, err = DateRange(Params{"date": "por"})
	var uerr *UnboundedSpanError
	assert.True(t, errors.As(err, &uerr))
}

func TestDateParams(t *testing.T) {
	p, err := dateParams("POR", nil)
	require.NoError(t, err)
	assert.Equal(t, Params{"sdate": "por", "edate": "por"}, p)

	p, err = dateParams("20111231", nil)
	require.NoError(t, err)
	assert.Equal(t, Params{"date": "2011-12-31"}, p)

	end := "por"
	p, err = dateParams("2011", &end)
	require.NoError(t, err)
	assert.Equal(t, Params{"sdate": "2011-01-01", "edate": "por"}, p)

	bad := "2011-02-31"
	_, err = dateParams("2011", &bad)
	assert.Error(t, err)
}
