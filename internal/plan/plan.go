// Package plan implements the day-planning heuristics: free-window
// computation over busy events, greedy task carving with pre/post buffers,
// and single-block habit placement.
//
// All functions here are deterministic given the Planner's clock, perform
// no I/O, and are best-effort by design: a task that cannot be fully placed
// is truncated silently rather than reported as an error.
package plan

import (
	"time"

	"edusync/internal/model"
)

// Task is a unit of work to be scheduled into a single day.
type Task struct {
	ID          string     `json:"id,omitempty" yaml:"id,omitempty"`
	Title       string     `json:"title" yaml:"title"`
	EstimateMin int        `json:"estimate_min" yaml:"estimate_min"` // total effort; may be split
	Priority    int        `json:"priority" yaml:"priority"`         // 1..5, 5 highest
	Deadline    *time.Time `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Morning     bool       `json:"morning,omitempty" yaml:"morning,omitempty"`     // soft bias toward 07-12
	Afternoon   bool       `json:"afternoon,omitempty" yaml:"afternoon,omitempty"` // soft bias toward 13-17
	SplitOK     bool       `json:"split_ok" yaml:"split_ok"`
	MaxChunkMin int        `json:"max_chunk_min,omitempty" yaml:"max_chunk_min,omitempty"`
	Notes       string     `json:"notes,omitempty" yaml:"notes,omitempty"` // not used in scoring
}

// Habit is a small recurring block to encourage, once per day.
type Habit struct {
	Title     string `json:"title" yaml:"title"`
	TargetMin int    `json:"target_min" yaml:"target_min"`
	Anchor    string `json:"anchor,omitempty" yaml:"anchor,omitempty"` // "morning", "after-lunch", "evening"
	Priority  int    `json:"priority" yaml:"priority"`                 // 1..5, 5 highest
}

// Window is a contiguous span of unscheduled time inside the daily bound.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Minutes returns the whole minutes in the window, clamped at zero.
func (w Window) Minutes() int {
	return minutesBetween(w.Start, w.End)
}

// Defaults for planner tuning. The daily bound and buffer sizes are
// configurable on Planner but these are the shipped values.
const (
	DefaultDayStartHour  = 6
	DefaultDayEndHour    = 22
	DefaultMinBlockMin   = 15
	DefaultPreBufferMin  = 5
	DefaultPostBufferMin = 10
	DefaultMaxChunkMin   = 120
	DefaultHabitMin      = 20
)

// unusable is the sentinel score for windows too short to hold any chunk.
const unusable = -1e9

// Planner holds the tuning knobs for day planning. The zero value is not
// usable; construct with New.
type Planner struct {
	DayStartHour  int
	DayEndHour    int
	MinBlockMin   int
	PreBufferMin  int
	PostBufferMin int

	// Now supplies the current time for urgency/earliness scoring. Tests
	// inject a fixed clock here.
	Now func() time.Time
}

// New returns a Planner with the default daily bound and buffer sizes.
func New() *Planner {
	return &Planner{
		DayStartHour:  DefaultDayStartHour,
		DayEndHour:    DefaultDayEndHour,
		MinBlockMin:   DefaultMinBlockMin,
		PreBufferMin:  DefaultPreBufferMin,
		PostBufferMin: DefaultPostBufferMin,
		Now:           time.Now,
	}
}

func (p *Planner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// minutesBetween returns whole minutes in [s, e), clamped at 0 for
// negative ranges.
func minutesBetween(s, e time.Time) int {
	m := int(e.Sub(s) / time.Minute)
	if m < 0 {
		return 0
	}
	return m
}

// normPriority maps a 1..5 priority onto 0..1.
func normPriority(p int) float64 {
	if p < 1 {
		p = 1
	}
	if p > 5 {
		p = 5
	}
	return float64(p-1) / 4.0
}

func mkEvent(title string, s, e time.Time, c model.Color) model.Event {
	return model.NewEvent(title, title, s, e, c)
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
