package plan

import (
	"sort"
	"time"

	"edusync/internal/model"
)

// FreeWindows computes the free windows within the daily bound
// [DayStartHour:00, DayEndHour:00] of day, given the busy events.
//
// Busy events are clipped to the bound, sorted by start, and merged when
// overlapping or adjacent; the complement of the merged spans forms the
// window list. Gaps shorter than minBlockMin are dropped.
//
// The returned windows never overlap, and together with the busy spans they
// tile the full daily bound (modulo the dropped short gaps).
func (p *Planner) FreeWindows(day time.Time, busy []model.Event, minBlockMin int) []Window {
	if minBlockMin <= 0 {
		minBlockMin = p.MinBlockMin
	}

	y, m, d := day.Date()
	loc := day.Location()
	dayStart := time.Date(y, m, d, p.DayStartHour, 0, 0, 0, loc)
	dayEnd := time.Date(y, m, d, p.DayEndHour, 0, 0, 0, loc)

	// Clip each busy event to the bound; events not touching the day are
	// skipped entirely.
	type seg struct{ s, e time.Time }
	segs := make([]seg, 0, len(busy))
	for _, ev := range busy {
		if !ev.OnDay(day) {
			continue
		}
		s := ev.Start
		if s.Before(dayStart) {
			s = dayStart
		}
		e := ev.End
		if e.After(dayEnd) {
			e = dayEnd
		}
		if s.Before(e) {
			segs = append(segs, seg{s, e})
		}
	}

	sort.Slice(segs, func(i, j int) bool { return segs[i].s.Before(segs[j].s) })

	// Merge overlapping or touching spans.
	merged := segs[:0]
	for _, sg := range segs {
		if len(merged) == 0 || sg.s.After(merged[len(merged)-1].e) {
			merged = append(merged, sg)
			continue
		}
		if sg.e.After(merged[len(merged)-1].e) {
			merged[len(merged)-1].e = sg.e
		}
	}

	// Invert into free windows, enforcing the minimum block length.
	free := make([]Window, 0, len(merged)+1)
	cur := dayStart
	for _, sg := range merged {
		if cur.Before(sg.s) && minutesBetween(cur, sg.s) >= minBlockMin {
			free = append(free, Window{Start: cur, End: sg.s})
		}
		if sg.e.After(cur) {
			cur = sg.e
		}
	}
	if cur.Before(dayEnd) && minutesBetween(cur, dayEnd) >= minBlockMin {
		free = append(free, Window{Start: cur, End: dayEnd})
	}

	return free
}
