package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edusync/internal/model"
)

func base(start time.Time, dur time.Duration) model.Event {
	return model.NewEvent("Lecture", "study::weekly lecture", start, start.Add(dur), model.ColorSlate)
}

func TestParseRule(t *testing.T) {
	r, err := ParseRule("")
	require.NoError(t, err)
	assert.Equal(t, RuleNone, r)

	r, err = ParseRule("weekly")
	require.NoError(t, err)
	assert.Equal(t, RuleWeekly, r)

	_, err = ParseRule("fortnightly")
	assert.Error(t, err)
}

func TestExpandNone(t *testing.T) {
	b := base(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), time.Hour)

	out, err := Expand(b, RuleNone)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Empty(t, out[0].SeriesID)
	assert.Equal(t, b.Start, out[0].Start)
	assert.Equal(t, b.End, out[0].End)
}

func TestExpandDaily(t *testing.T) {
	b := base(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), 90*time.Minute)

	out, err := Expand(b, RuleDaily)
	require.NoError(t, err)
	require.Len(t, out, 365)

	assert.Equal(t, b.Start, out[0].Start)
	assert.Equal(t, b.Start.AddDate(0, 0, 1), out[1].Start)
	for _, ev := range out {
		assert.Equal(t, 90, ev.Minutes())
		assert.Equal(t, out[0].SeriesID, ev.SeriesID)
		assert.Equal(t, 9, ev.Start.Hour())
	}
}

func TestExpandWeeklyKeepsWeekday(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC) // Tuesday
	out, err := Expand(base(start, time.Hour), RuleWeekly)
	require.NoError(t, err)
	require.Len(t, out, 52)

	for i, ev := range out {
		assert.Equal(t, time.Tuesday, ev.Start.Weekday())
		assert.Equal(t, start.AddDate(0, 0, 7*i), ev.Start)
	}
}

func TestExpandMonthlySkipsMissingDates(t *testing.T) {
	// Jan 31: within the one-year horizon only Jan, Mar, May, Jul, Aug,
	// Oct and Dec have a 31st, so the skipped months shrink the series
	// instead of stretching it into the following year.
	start := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)
	out, err := Expand(base(start, time.Hour), RuleMonthly)
	require.NoError(t, err)
	require.Len(t, out, 7)

	want := []time.Month{
		time.January, time.March, time.May, time.July,
		time.August, time.October, time.December,
	}
	for i, ev := range out {
		assert.Equal(t, 31, ev.Start.Day())
		assert.Equal(t, 10, ev.Start.Hour())
		assert.Equal(t, 2026, ev.Start.Year())
		assert.Equal(t, want[i], ev.Start.Month())
	}
	assert.True(t, out[len(out)-1].Start.Before(start.AddDate(1, 0, 0)))
}

func TestExpandMonthlyMidMonthFillsTheYear(t *testing.T) {
	start := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	out, err := Expand(base(start, time.Hour), RuleMonthly)
	require.NoError(t, err)
	require.Len(t, out, 12)
	assert.Equal(t, start, out[0].Start)
	assert.Equal(t, start.AddDate(0, 11, 0), out[11].Start)
}

func TestExpandSeriesIDsDifferPerExpansion(t *testing.T) {
	b := base(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), time.Hour)

	a, err := Expand(b, RuleDaily)
	require.NoError(t, err)
	c, err := Expand(b, RuleDaily)
	require.NoError(t, err)
	assert.NotEqual(t, a[0].SeriesID, c[0].SeriesID)
}
