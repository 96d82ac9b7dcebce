package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func icsBody(vevents ...string) []byte {
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n")
	for _, ve := range vevents {
		b.WriteString("BEGIN:VEVENT\r\n")
		b.WriteString(ve)
		b.WriteString("END:VEVENT\r\n")
	}
	b.WriteString("END:VCALENDAR\r\n")
	return []byte(b.String())
}

func TestBusyEventsSingle(t *testing.T) {
	body := icsBody(
		"UID:one@test\r\nSUMMARY:Math class\r\nDTSTART:20260310T090000Z\r\nDTEND:20260310T103000Z\r\n",
	)
	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	events, err := BusyEvents(Source{ID: "school"}, body, from, to, time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Math class", events[0].Title)
	assert.Equal(t, 90, events[0].Minutes())
	assert.Equal(t, int64(-1), events[0].ID)
}

func TestBusyEventsOutsideRangeExcluded(t *testing.T) {
	body := icsBody(
		"UID:one@test\r\nSUMMARY:Past\r\nDTSTART:20260301T090000Z\r\nDTEND:20260301T100000Z\r\n",
	)
	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	events, err := BusyEvents(Source{}, body, from, from.AddDate(0, 0, 1), time.UTC)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestBusyEventsWeeklyRecurrence(t *testing.T) {
	body := icsBody(
		"UID:wk@test\r\nSUMMARY:Weekly sync\r\nDTSTART:20260303T140000Z\r\nDTEND:20260303T150000Z\r\nRRULE:FREQ=WEEKLY;COUNT=10\r\n",
	)
	from := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 14) // two weeks

	events, err := BusyEvents(Source{}, body, from, to, time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, time.Tuesday, events[0].Start.Weekday())
	assert.Equal(t, 60, events[0].Minutes())
}

func TestBusyEventsExDateRemovesInstance(t *testing.T) {
	body := icsBody(
		"UID:wk@test\r\nSUMMARY:Weekly sync\r\nDTSTART:20260303T140000Z\r\nDTEND:20260303T150000Z\r\nRRULE:FREQ=WEEKLY;COUNT=10\r\nEXDATE:20260310T140000Z\r\n",
	)
	from := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 14)

	events, err := BusyEvents(Source{}, body, from, to, time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 17, events[0].Start.Day())
}

func TestBusyEventsAllDay(t *testing.T) {
	body := icsBody(
		"UID:hol@test\r\nSUMMARY:Holiday\r\nDTSTART;VALUE=DATE:20260310\r\n",
	)
	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	events, err := BusyEvents(Source{}, body, from, from.AddDate(0, 0, 1), time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 24*60, events[0].Minutes())
}

func TestBusyEventsBrokenVEventSkipped(t *testing.T) {
	body := icsBody(
		"UID:bad@test\r\nSUMMARY:No start\r\n",
		"UID:ok@test\r\nSUMMARY:Fine\r\nDTSTART:20260310T090000Z\r\nDTEND:20260310T100000Z\r\n",
	)
	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	events, err := BusyEvents(Source{}, body, from, from.AddDate(0, 0, 1), time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Fine", events[0].Title)
}

func TestFetchUsesValidatorsAndCache(t *testing.T) {
	payload := string(icsBody("UID:a@test\r\nSUMMARY:A\r\nDTSTART:20260310T090000Z\r\nDTEND:20260310T100000Z\r\n"))

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "test", URL: srv.URL}

	first, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, payload, string(first.Body))

	second, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, payload, string(second.Body))
	assert.Equal(t, 2, hits)
}

func TestFetchFallsBackToCacheOnServerError(t *testing.T) {
	payload := "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"
	fail := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "test", URL: srv.URL}

	_, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)

	fail = true
	res, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, payload, string(res.Body))
}

func TestFetchEmptyURL(t *testing.T) {
	f := NewFetcher(t.TempDir())
	_, err := f.Fetch(context.Background(), Source{ID: "x"})
	assert.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://cal.example.com/...(redacted)",
		redactURL("https://cal.example.com/private/abc123/basic.ics"))
	assert.Equal(t, "ics://...(redacted)", redactURL("::not a url"))
}
