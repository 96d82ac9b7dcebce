package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	applog "edusync/internal/log"
	"edusync/internal/model"
)

// Recurring feeds can in theory generate unbounded instance counts; cap
// each VEVENT's expansion so a malformed rule cannot flood the planner.
const maxInstancesPerEvent = 2000

// BusyEvents parses an ICS body and expands it into concrete busy blocks
// intersecting [from, to). Times are converted into loc; all-day entries
// become full-day blocks. Imported events carry the slate color and no ID,
// they are never persisted.
func BusyEvents(src Source, body []byte, from, to time.Time, loc *time.Location) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}
	if !to.After(from) {
		return nil, errors.New("ics: empty import range")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var out []model.Event
	for _, ve := range cal.Events() {
		events, perr := expandVEvent(ve, from, to, loc)
		if perr != nil {
			// Skip the broken VEVENT, keep the rest of the feed.
			applog.Warn("ics vevent skipped", "id", src.ID, "reason", perr.Error())
			continue
		}
		out = append(out, events...)
	}
	applog.Debug("ics import expanded", "id", src.ID, "events", len(out))
	return out, nil
}

func expandVEvent(ve *ical.VEvent, from, to time.Time, loc *time.Location) ([]model.Event, error) {
	start, err := ve.GetStartAt()
	if err != nil {
		return nil, errors.New("missing or invalid DTSTART")
	}
	end, _ := ve.GetEndAt()

	allDay := isAllDay(ve)
	if allDay {
		day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		start, end = day, day.Add(24*time.Hour)
	} else if !end.After(start) {
		// DTEND missing or degenerate: treat as a point-ish 30m block.
		end = start.Add(30 * time.Minute)
	}

	title := propValue(ve, ical.ComponentPropertySummary)
	if title == "" {
		title = "(untitled)"
	}
	desc := propValue(ve, ical.ComponentPropertyDescription)

	mk := func(s, e time.Time) model.Event {
		return model.NewEvent(title, desc, s.In(loc), e.In(loc), model.ColorSlate)
	}

	raw := propValue(ve, ical.ComponentPropertyRrule)
	if raw == "" {
		if end.After(from) && start.Before(to) {
			return []model.Event{mk(start, end)}, nil
		}
		return nil, nil
	}

	r, err := rrule.StrToRRule(raw)
	if err != nil {
		return nil, errors.New("invalid RRULE: " + raw)
	}
	r.DTStart(start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range exDates(ve) {
		set.ExDate(ex.In(start.Location()))
	}

	dur := end.Sub(start)
	starts := set.Between(from.Add(-dur).In(start.Location()), to.In(start.Location()), true)
	if len(starts) > maxInstancesPerEvent {
		starts = starts[:maxInstancesPerEvent]
	}

	events := make([]model.Event, 0, len(starts))
	for _, s := range starts {
		e := s.Add(dur)
		if e.After(from) && s.Before(to) {
			events = append(events, mk(s, e))
		}
	}
	return events, nil
}

// isAllDay reports whether DTSTART is a DATE value (VALUE=DATE or no time
// component in the raw value).
func isAllDay(ve *ical.VEvent) bool {
	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func propValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	if p := ve.GetProperty(name); p != nil {
		return p.Value
	}
	return ""
}

// exDates collects EXDATE values; each property may carry a comma list.
func exDates(ve *ical.VEvent) []time.Time {
	var out []time.Time
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}

// parseICSTime handles the basic DATE / DATE-TIME / UTC forms used by EXDATE.
func parseICSTime(v string) (time.Time, error) {
	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, time.Local)
	default:
		return time.ParseInLocation("20060102", v, time.Local)
	}
}
