package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edusync/internal/model"
	"edusync/internal/series"
)

func openTestRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func testEvent(title string, start time.Time, dur time.Duration) model.Event {
	return model.NewEvent(title, "study::"+title, start, start.Add(dur), model.ColorSlate)
}

func TestInsertAndGet(t *testing.T) {
	r := openTestRepo(t)
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	saved, err := r.Insert(testEvent("Algebra", start, time.Hour))
	require.NoError(t, err)
	assert.Greater(t, saved.ID, int64(0))

	got, err := r.Get(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Algebra", got.Title)
	assert.Equal(t, "study", got.Category())
	assert.True(t, got.Start.Equal(start))
	assert.Equal(t, model.ColorSlate, got.Color)
}

func TestGetMissing(t *testing.T) {
	r := openTestRepo(t)
	_, err := r.Get(12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRangeOverlapSemantics(t *testing.T) {
	r := openTestRepo(t)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	_, err := r.Insert(testEvent("Before", day.Add(-2*time.Hour), time.Hour))
	require.NoError(t, err)
	_, err = r.Insert(testEvent("Inside", day.Add(9*time.Hour), time.Hour))
	require.NoError(t, err)
	// Straddles midnight into the day.
	_, err = r.Insert(testEvent("Straddle", day.Add(-30*time.Minute), time.Hour))
	require.NoError(t, err)
	// Ends exactly at the range start: outside a half-open [from, to).
	_, err = r.Insert(testEvent("Touches", day.Add(-time.Hour), time.Hour))
	require.NoError(t, err)

	events, err := r.ListDay(day)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Straddle", events[0].Title)
	assert.Equal(t, "Inside", events[1].Title)
}

func TestUpdateSingle(t *testing.T) {
	r := openTestRepo(t)
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	saved, err := r.Insert(testEvent("Draft", start, time.Hour))
	require.NoError(t, err)

	saved.Title = "Final"
	saved.Color = model.ColorTaskBlue
	require.NoError(t, r.Update(saved))

	got, err := r.Get(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Title)
	assert.Equal(t, model.ColorTaskBlue, got.Color)
}

func TestSeriesInsertUpdateDelete(t *testing.T) {
	r := openTestRepo(t)
	base := testEvent("Lecture", time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC), time.Hour)

	expanded, err := series.Expand(base, series.RuleWeekly)
	require.NoError(t, err)

	saved, err := r.InsertAll(expanded)
	require.NoError(t, err)
	require.Len(t, saved, 52)

	// Whole-series retitle keeps each instance's own dates.
	template := saved[0]
	template.Title = "Seminar"
	require.NoError(t, r.UpdateSeries(template))

	first, err := r.Get(saved[0].ID)
	require.NoError(t, err)
	last, err := r.Get(saved[51].ID)
	require.NoError(t, err)
	assert.Equal(t, "Seminar", first.Title)
	assert.Equal(t, "Seminar", last.Title)
	assert.True(t, last.Start.After(first.Start))

	// Delete one instance, then the remainder of the series.
	require.NoError(t, r.Delete(saved[10].ID))
	_, err = r.Get(saved[10].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.DeleteSeries(template.SeriesID))
	_, err = r.Get(saved[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateSeriesRequiresSeriesID(t *testing.T) {
	r := openTestRepo(t)
	ev := testEvent("One-off", time.Now().UTC(), time.Hour)
	saved, err := r.Insert(ev)
	require.NoError(t, err)

	saved.SeriesID = ""
	assert.Error(t, r.UpdateSeries(saved))
	assert.Error(t, r.DeleteSeries(""))
}

func TestDeleteMissing(t *testing.T) {
	r := openTestRepo(t)
	assert.ErrorIs(t, r.Delete(999), ErrNotFound)
}
