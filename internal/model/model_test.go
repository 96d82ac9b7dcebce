package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventJSONShape(t *testing.T) {
	ev := Event{
		ID:          7,
		Title:       "Algebra",
		Description: "study::chapter 4",
		Start:       time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		End:         time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC),
		Color:       ColorTaskBlue,
		SeriesID:    "abc-123",
	}

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, float64(7), m["id"])
	assert.Equal(t, "Algebra", m["title"])
	assert.Equal(t, "study::chapter 4", m["desc"])
	assert.Equal(t, "2026-03-10T09:00:00Z", m["start"])
	assert.Equal(t, float64(47), m["color_r"])
	assert.Equal(t, float64(111), m["color_g"])
	assert.Equal(t, float64(235), m["color_b"])
	assert.Equal(t, "abc-123", m["series_id"])
}

func TestEventJSONDefaults(t *testing.T) {
	// Missing id and color fall back to -1 and the slate default.
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(`{"title":"X","start":"2026-03-10T09:00:00Z","end":"2026-03-10T10:00:00Z"}`), &ev))
	assert.Equal(t, int64(-1), ev.ID)
	assert.Equal(t, ColorSlate, ev.Color)
	assert.Equal(t, 60, ev.Minutes())
}

func TestEventJSONToleratesBadTimes(t *testing.T) {
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(`{"title":"X","start":"not a time","end":""}`), &ev))
	assert.True(t, ev.Start.IsZero())
	assert.Equal(t, 0, ev.Minutes())
}

func TestCategoryNotesPacking(t *testing.T) {
	ev := Event{Description: "exercise:: morning run "}
	assert.Equal(t, "exercise", ev.Category())
	assert.Equal(t, "morning run", ev.Notes())

	plain := Event{Description: "just a note"}
	assert.Equal(t, "just a note", plain.Category())
	assert.Equal(t, "", plain.Notes())

	assert.Equal(t, "break::tea", PackDescription("break", "tea"))
	assert.Equal(t, "tea", PackDescription("", "tea"))
}

func TestOnDay(t *testing.T) {
	ev := Event{
		Start: time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 11, 1, 0, 0, 0, time.UTC),
	}
	assert.True(t, ev.OnDay(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)))
	assert.True(t, ev.OnDay(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)))
	assert.False(t, ev.OnDay(time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)))
}

func TestMinutesClampsNegative(t *testing.T) {
	ev := Event{
		Start: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, 0, ev.Minutes())
}
