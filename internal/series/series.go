// Package series expands a base event into a recurring series. A series is
// a group of events sharing the same title and time of day, linked through
// a common series ID.
package series

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"edusync/internal/model"
)

// Rule selects the recurrence pattern applied to a base event.
type Rule string

const (
	RuleNone    Rule = "none"    // single event
	RuleDaily   Rule = "daily"   // every day, 365 instances
	RuleWeekly  Rule = "weekly"  // every week on this weekday, 52 instances
	RuleMonthly Rule = "monthly" // every month on this date within one year
)

// Expansion bounds per rule. Daily and weekly are instance counts; monthly
// is a calendar horizon, so months lacking the base date (e.g. Feb for a
// Jan 31 base) are skipped and the series may carry fewer than 12 instances.
const (
	dailyCount    = 365
	weeklyCount   = 52
	monthlyMonths = 12
)

// ParseRule maps a wire/CLI string onto a Rule. Unknown values error rather
// than silently degrading to a single event.
func ParseRule(s string) (Rule, error) {
	switch Rule(s) {
	case RuleNone, RuleDaily, RuleWeekly, RuleMonthly:
		return Rule(s), nil
	case "":
		return RuleNone, nil
	default:
		return RuleNone, fmt.Errorf("series: unknown recurrence rule %q", s)
	}
}

// Expand returns the concrete event instances for base under rule. The
// base's duration and time of day are preserved across instances. For any
// rule other than RuleNone the instances share a freshly generated series
// ID; RuleNone returns the base as-is with an empty series ID.
func Expand(base model.Event, rule Rule) ([]model.Event, error) {
	if rule == RuleNone {
		ev := base
		ev.SeriesID = ""
		return []model.Event{ev}, nil
	}

	var opt rrule.ROption
	switch rule {
	case RuleDaily:
		opt = rrule.ROption{Freq: rrule.DAILY, Count: dailyCount, Dtstart: base.Start}
	case RuleWeekly:
		opt = rrule.ROption{Freq: rrule.WEEKLY, Count: weeklyCount, Dtstart: base.Start}
	case RuleMonthly:
		// MONTHLY with a fixed day-of-month skips months that lack the
		// date. Bound by UNTIL rather than COUNT so skipped months never
		// push instances past the one-year horizon.
		until := base.Start.AddDate(0, monthlyMonths, 0).Add(-time.Second)
		opt = rrule.ROption{Freq: rrule.MONTHLY, Until: until, Dtstart: base.Start}
	default:
		return nil, fmt.Errorf("series: unknown recurrence rule %q", rule)
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("series: building rrule: %w", err)
	}

	dur := base.End.Sub(base.Start)
	seriesID := uuid.NewString()

	starts := r.All()
	out := make([]model.Event, 0, len(starts))
	for _, s := range starts {
		ev := base
		ev.ID = -1
		ev.Start = s
		ev.End = s.Add(dur)
		ev.SeriesID = seriesID
		out = append(out, ev)
	}
	return out, nil
}
