package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edusync/internal/model"
)

var day = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 10, hour, min, 0, 0, time.UTC)
}

func block(title, category string, s, e time.Time) model.Event {
	return model.NewEvent(title, model.PackDescription(category, title), s, e, model.ColorSlate)
}

func TestComputeCategories(t *testing.T) {
	events := []model.Event{
		block("Deep work", "", at(9, 0), at(11, 0)),
		block("Coffee", "break", at(11, 0), at(11, 20)),
		block("Run", "exercise", at(17, 0), at(17, 45)),
		block("Weekly sync", "", at(13, 0), at(14, 0)),
	}

	st := Compute(events, day)
	assert.Equal(t, 2, st.Sessions) // deep work + sync
	assert.Equal(t, 1, st.Meetings) // "sync" keyword
	assert.Equal(t, 20, st.BreaksMin)
	assert.Equal(t, 45, st.ExerciseMin)
	assert.True(t, st.FocusOn)
	assert.Equal(t, "09:00", st.FirstStart)
	assert.Equal(t, "17:45", st.LastEnd)
	assert.Equal(t, "2h", st.LongestFocus)
	assert.Equal(t, 120+20+45+60, st.LoadMin)
}

func TestComputeIgnoresOtherDays(t *testing.T) {
	events := []model.Event{
		block("Elsewhere", "", at(9, 0).AddDate(0, 0, 3), at(10, 0).AddDate(0, 0, 3)),
	}
	st := Compute(events, day)
	assert.Equal(t, 0, st.Sessions)
	assert.Equal(t, "--", st.FirstStart)
	assert.Equal(t, "0m", st.LongestFocus)
}

func TestComputeFragmentation(t *testing.T) {
	// Two gaps under 25 minutes, one comfortable gap.
	events := []model.Event{
		block("A", "", at(9, 0), at(10, 0)),
		block("B", "", at(10, 10), at(11, 0)),  // 10m gap
		block("C", "", at(11, 20), at(12, 0)),  // 20m gap
		block("D", "", at(14, 0), at(15, 0)),   // 120m gap
	}

	st := Compute(events, day)
	assert.Equal(t, 2, st.Fragmentation)
	// sessions(4) + meetings(0) + fragments(2) - 1
	assert.Equal(t, 5, st.ContextSwitches)
}

func TestComputeTimeMap(t *testing.T) {
	// Morning fully booked 8-12.
	events := []model.Event{block("Busy morning", "", at(8, 0), at(12, 0))}
	st := Compute(events, day)

	require.Len(t, st.TimeMap, 3)
	assert.Equal(t, "Morning", st.TimeMap[0].Label)
	assert.Equal(t, "0m", st.TimeMap[0].Value)
	assert.Equal(t, 0, st.TimeMap[0].Percent)
	assert.Equal(t, "5h", st.TimeMap[1].Value)
	assert.Equal(t, 100, st.TimeMap[1].Percent)
}

func TestComputeSmartMovesFallback(t *testing.T) {
	// Plenty of breaks and exercise, no meetings: only the defaults that
	// still apply should fire; with everything healthy we get the all-set
	// message.
	events := []model.Event{
		block("Coffee", "break", at(9, 0), at(9, 30)),
		block("Gym", "exercise", at(10, 0), at(10, 45)),
		block("Read", "", at(11, 0), at(12, 0)),
	}
	st := Compute(events, day)
	require.NotEmpty(t, st.SmartMoves)
	for _, mv := range st.SmartMoves {
		assert.NotContains(t, mv, "micro-breaks")
		assert.NotContains(t, mv, "exercise block")
	}
}

func TestComputeEmpty(t *testing.T) {
	st := Compute(nil, day)
	assert.Equal(t, 0, st.LoadMin)
	assert.Equal(t, "--", st.FirstStart)
	assert.Equal(t, "Low", st.RiskLabel)
	assert.NotEmpty(t, st.SmartMoves)
}

func TestRenderProducesReadyDocument(t *testing.T) {
	events := []model.Event{
		block("Deep work", "", at(9, 0), at(11, 0)),
		block("Walk", "break", at(11, 0), at(11, 30)),
	}
	st := Compute(events, day)

	for _, dark := range []bool{false, true} {
		html, err := Render(st, dark)
		require.NoError(t, err)
		assert.Contains(t, html, `data-ready="true"`)
		assert.Contains(t, html, "Schedule Health")
		assert.Contains(t, html, "Time Map")
		assert.Contains(t, html, st.DateLabel)
		assert.True(t, strings.HasPrefix(strings.TrimSpace(html), "<!DOCTYPE html>"))
	}
}

func TestRenderDarkThemeKeepsFunctionalCSSValues(t *testing.T) {
	// The dark border token uses rgba(); the sanitizer must not replace
	// it with ZgotmplZ.
	st := Compute(nil, day)
	html, err := Render(st, true)
	require.NoError(t, err)
	assert.Contains(t, html, "rgba(255,255,255,0.06)")
	assert.NotContains(t, html, "ZgotmplZ")
}

func TestRenderEscapesDataDrivenContent(t *testing.T) {
	st := Compute(nil, day)
	st.SmartMoves = []string{"<script>alert(1)</script>"}
	html, err := Render(st, false)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.Contains(t, html, "&lt;script&gt;")
}
