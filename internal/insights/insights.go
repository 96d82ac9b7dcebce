// Package insights provides stateless, side-effect-free analytics over an
// event collection: quick schedule rollups, a deep-work/buffer report, a
// density-vs-recovery stress score, and a focus/recovery balance score.
//
// All scores are heuristic ranking signals with hand-tuned scales; they are
// meant to be compared relatively, not treated as calibrated measurements.
package insights

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"edusync/internal/model"
)

// Summary is a quick rollup of an event collection.
type Summary struct {
	Blocks       int    `json:"blocks"`
	TotalMinutes int    `json:"total_minutes"`
	FirstStart   string `json:"first_start"` // "hh:mm" or "--"
	LastEnd      string `json:"last_end"`    // "hh:mm" or "--"
	Meetings     int    `json:"meetings"`
}

// String renders the summary in the compact one-line form used by logs and
// the CLI.
func (s Summary) String() string {
	return fmt.Sprintf("Blocks: %d  |  Total: %dh%dm  |  Window: %s–%s  |  Meetings: %d",
		s.Blocks, s.TotalMinutes/60, s.TotalMinutes%60, s.FirstStart, s.LastEnd, s.Meetings)
}

// AnalyzeSchedule computes totals, the day window, and the meeting count.
// An event counts as a meeting when its title contains "meeting"
// (case-insensitive).
func AnalyzeSchedule(events []model.Event) Summary {
	out := Summary{FirstStart: "--", LastEnd: "--"}

	var first, last time.Time
	haveFirst, haveLast := false, false

	for _, e := range events {
		out.TotalMinutes += e.Minutes()
		if strings.Contains(strings.ToLower(e.Title), "meeting") {
			out.Meetings++
		}

		st := timeOfDay(e.Start)
		en := timeOfDay(e.End)
		if !haveFirst || st.Before(first) {
			first, haveFirst = st, true
		}
		if !haveLast || en.After(last) {
			last, haveLast = en, true
		}
	}

	out.Blocks = len(events)
	if haveFirst {
		out.FirstStart = first.Format("15:04")
	}
	if haveLast {
		out.LastEnd = last.Format("15:04")
	}
	return out
}

// Report summarizes deep-work structure in an event collection.
// Detection is convention-driven: deep-work blocks carry the "🔵" title
// prefix and buffer blocks are titled exactly "Buffer".
type Report struct {
	DeepWorkBlocks int `json:"deep_work_blocks"`
	BufferMinutes  int `json:"buffer_minutes"`
	LongestMinutes int `json:"longest_minutes"`
}

// Tip is the standing advice attached to every insight report.
const Tip = "Tip: keep deep-work blocks ≥ 60m and surround with 5–10m buffers."

// ProvideInsights scans events for deep-work blocks, buffer time, and the
// longest single block.
func ProvideInsights(events []model.Event) Report {
	var r Report
	for _, e := range events {
		m := e.Minutes()
		if strings.HasPrefix(e.Title, "🔵") {
			r.DeepWorkBlocks++
		}
		if e.Title == "Buffer" {
			r.BufferMinutes += m
		}
		if m > r.LongestMinutes {
			r.LongestMinutes = m
		}
	}
	return r
}

// StressReport is a naive density-vs-recovery model. All three values are
// clamped to [0, 100].
type StressReport struct {
	Load     int `json:"load"`     // busy-minute density
	Recovery int `json:"recovery"` // gap minutes between blocks
	Risk     int `json:"risk"`     // density minus half the recovery
}

// AnalyzeStress scores schedule density against recovery gaps:
//
//	load     = min(100, totalMinutes/6)
//	recovery = clamp(gapMinutes/3, 0, 100)
//	risk     = clamp(load - recovery/2, 0, 100)
//
// Gaps are measured between chronologically sorted events.
func AnalyzeStress(events []model.Event) StressReport {
	sorted := make([]model.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	totalMin, gapMin := 0, 0
	var lastEnd time.Time
	for _, e := range sorted {
		totalMin += e.Minutes()
		if !lastEnd.IsZero() && lastEnd.Before(e.Start) {
			gapMin += int(e.Start.Sub(lastEnd) / time.Minute)
		}
		lastEnd = e.End
	}

	load := min(100, totalMin/6)
	recovery := clampInt(gapMin/3, 0, 100)
	risk := clampInt(load-recovery/2, 0, 100)

	return StressReport{Load: load, Recovery: recovery, Risk: risk}
}

// BalanceReport splits the day into focus vs. recovery minutes and scores
// the mix.
type BalanceReport struct {
	Score           int `json:"score"` // 0..100
	FocusMinutes    int `json:"focus_minutes"`
	RecoveryMinutes int `json:"recovery_minutes"`
}

// recoveryKeywords mark an event as recovery time when any appears in the
// lowercased title.
var recoveryKeywords = []string{"buffer", "walk", "break", "exercise"}

// OptimizeBalance computes a focus/recovery balance score: moderate
// recovery raises it, a large focus/recovery mismatch lowers it.
//
//	score = clamp(70 + recovery/15 - |focus-recovery|/10, 0, 100)
func OptimizeBalance(events []model.Event) BalanceReport {
	var r BalanceReport
	for _, e := range events {
		m := e.Minutes()
		title := strings.ToLower(e.Title)

		isRecovery := false
		for _, kw := range recoveryKeywords {
			if strings.Contains(title, kw) {
				isRecovery = true
				break
			}
		}
		if isRecovery {
			r.RecoveryMinutes += m
		} else {
			r.FocusMinutes += m
		}
	}

	mismatch := r.FocusMinutes - r.RecoveryMinutes
	if mismatch < 0 {
		mismatch = -mismatch
	}
	r.Score = clampInt(70+r.RecoveryMinutes/15-mismatch/10, 0, 100)
	return r
}

// SuggestGoals returns a few generic daily goals. Static for now; the
// event list is accepted so future versions can tailor them.
func SuggestGoals(_ []model.Event) []string {
	return []string{
		"Ship two 60–90m deep-work blocks before noon",
		"Book 30–45m movement break",
		"Protect 1h for admin/email batching",
	}
}

// RecommendHabits returns a few generic habit suggestions. Static for now.
func RecommendHabits(_ []model.Event) []string {
	return []string{
		"⚑ Walk 20m after lunch",
		"📚 Read 25m in the evening",
		"🧘 5m breathing before first meeting",
	}
}

func timeOfDay(t time.Time) time.Time {
	return time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
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
