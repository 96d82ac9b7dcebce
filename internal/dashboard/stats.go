// Package dashboard computes a one-day schedule summary and renders it as
// a standalone HTML document for the web UI and the PNG preview capture.
package dashboard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"edusync/internal/model"
)

// TimeBucket is one daypart row of the dashboard's time map.
type TimeBucket struct {
	Label   string
	Value   string
	Percent int // free share of the daypart, 0..100
}

// DayStats is everything the dashboard needs to render one day.
type DayStats struct {
	DateLabel string

	Sessions int
	Meetings int
	Defense  int // 1 when the balance score is healthy

	FocusOn     bool
	BreaksMin   int
	ExerciseMin int
	FreeMin     int

	LoadMin         int // total active minutes (focus+break+exercise)
	Fragmentation   int // tiny gaps (<25m) between consecutive blocks
	ContextSwitches int

	BalancePercent int
	RiskPercent    int
	RiskLabel      string

	FirstStart   string
	LastEnd      string
	LongestFocus string

	SmartMoves []string
	TimeMap    []TimeBucket
}

// meeting title conventions; matched on the lowercased title.
var meetingKeywords = []string{"meeting", "standup", "sync", "review", "1:1", "retro", "interview"}

func isMeetingTitle(title string) bool {
	s := strings.ToLower(title)
	for _, kw := range meetingKeywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// Compute builds DayStats from the events touching day. Events are bucketed
// by description category ("break" and "exercise" are recovery, everything
// else counts as a focus session).
func Compute(events []model.Event, day time.Time) DayStats {
	st := DayStats{DateLabel: day.Format("Mon, Jan 2")}

	todays := make([]model.Event, 0, len(events))
	for _, e := range events {
		if e.OnDay(day) {
			todays = append(todays, e)
		}
	}
	sort.SliceStable(todays, func(i, j int) bool {
		return todays[i].Start.Before(todays[j].Start)
	})

	var focusMin, breakMin, exerciseMin int
	var sessions, longestFocus, meetings, fragments int
	var firstStart, lastEnd, prevEnd time.Time
	var haveFirst, haveLast bool

	for _, e := range todays {
		dur := e.Minutes()
		switch strings.ToLower(e.Category()) {
		case "break":
			breakMin += dur
		case "exercise":
			exerciseMin += dur
		default:
			focusMin += dur
			sessions++
			if dur > longestFocus {
				longestFocus = dur
			}
		}

		if isMeetingTitle(e.Title) {
			meetings++
		}

		st0 := minutesIntoDay(e.Start)
		en0 := minutesIntoDay(e.End)
		if !haveFirst || st0 < minutesIntoDay(firstStart) {
			firstStart, haveFirst = e.Start, true
		}
		if !haveLast || en0 > minutesIntoDay(lastEnd) {
			lastEnd, haveLast = e.End, true
		}

		if !prevEnd.IsZero() {
			gap := int(e.Start.Sub(prevEnd) / time.Minute)
			if gap > 0 && gap < 25 {
				fragments++ // tiny gaps = fragmentation
			}
		}
		prevEnd = e.End
	}

	daySpan := 0
	if haveFirst && haveLast {
		daySpan = minutesIntoDay(lastEnd) - minutesIntoDay(firstStart)
	}
	activeMin := focusMin + breakMin + exerciseMin
	freeMin := daySpan - activeMin
	if freeMin < 0 {
		freeMin = 0
	}

	contextSwitches := sessions + meetings + fragments - 1
	if contextSwitches < 0 {
		contextSwitches = 0
	}
	load := clampInt(focusMin/9+sessions*3+meetings*4+fragments*2, 0, 100)
	balance := clampInt(70+exerciseMin/15-abs(focusMin-breakMin*2)/10, 0, 100)
	risk := clampInt(load-breakMin/6-exerciseMin/10, 0, 100)

	freeMorning := minutesFreeIn(todays, 8, 12)
	freeAfternoon := minutesFreeIn(todays, 12, 17)
	freeEvening := minutesFreeIn(todays, 17, 21)

	st.Sessions = sessions
	st.Meetings = meetings
	if balance >= 70 {
		st.Defense = 1
	}
	st.FocusOn = focusMin > 0
	st.BreaksMin = breakMin
	st.ExerciseMin = exerciseMin
	st.FreeMin = freeMin
	st.LoadMin = activeMin
	st.Fragmentation = fragments
	st.ContextSwitches = contextSwitches
	st.BalancePercent = balance
	st.RiskPercent = risk
	switch {
	case risk >= 70:
		st.RiskLabel = "High"
	case risk >= 40:
		st.RiskLabel = "Medium"
	default:
		st.RiskLabel = "Low"
	}
	st.FirstStart = "--"
	st.LastEnd = "--"
	if haveFirst {
		st.FirstStart = firstStart.Format("15:04")
	}
	if haveLast {
		st.LastEnd = lastEnd.Format("15:04")
	}
	st.LongestFocus = fmtMinutes(longestFocus)
	st.SmartMoves = smartMoves(breakMin, exerciseMin, meetings, fragments,
		focusMin, longestFocus, freeMorning, freeAfternoon, freeEvening)
	st.TimeMap = []TimeBucket{
		{Label: "Morning", Value: fmtMinutes(freeMorning), Percent: bucketPercent(freeMorning, (12-8)*60)},
		{Label: "Afternoon", Value: fmtMinutes(freeAfternoon), Percent: bucketPercent(freeAfternoon, (17-12)*60)},
		{Label: "Evening", Value: fmtMinutes(freeEvening), Percent: bucketPercent(freeEvening, (21-17)*60)},
	}
	return st
}

// smartMoves derives actionable suggestions from the day's aggregates.
func smartMoves(breakMin, exerciseMin, meetings, fragments, focusMin, longestFocus,
	freeMorning, freeAfternoon, freeEvening int) []string {

	var actions []string
	if breakMin < 20 {
		actions = append(actions, "Add 2×10m micro-breaks to reduce fatigue")
	}
	if exerciseMin < 30 {
		actions = append(actions, "Schedule a 30–45m exercise block")
	}
	if meetings >= 4 && fragments >= 2 {
		actions = append(actions, "Defragment: stack adjacent meetings or move one to tomorrow")
	}
	if freeAfternoon >= 60 && longestFocus < 60 && focusMin >= 90 {
		actions = append(actions, "Convert afternoon into a 90m deep-work block")
	}
	if freeMorning < 30 && freeEvening >= 60 {
		actions = append(actions, "Shift low-priority work to evening to free morning focus time")
	}
	if len(actions) == 0 {
		actions = append(actions, "You're set — cadence looks healthy")
	}
	return actions
}

// minutesFreeIn returns the unoccupied minutes within [startH, endH) of the
// day, using each event's time of day.
func minutesFreeIn(todays []model.Event, startH, endH int) int {
	used := 0
	for _, e := range todays {
		a := clampInt(minutesIntoDay(e.Start), startH*60, endH*60)
		b := clampInt(minutesIntoDay(e.End), startH*60, endH*60)
		if b > a {
			used += b - a
		}
	}
	free := (endH-startH)*60 - used
	if free < 0 {
		return 0
	}
	return free
}

func minutesIntoDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func bucketPercent(free, span int) int {
	if span <= 0 {
		return 0
	}
	return free * 100 / span
}

func fmtMinutes(minutes int) string {
	if minutes <= 0 {
		return "0m"
	}
	h, m := minutes/60, minutes%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
