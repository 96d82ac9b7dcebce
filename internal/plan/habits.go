package plan

import (
	"fmt"
	"time"

	"edusync/internal/model"
)

// Anchor names accepted on Habit.Anchor.
const (
	AnchorMorning    = "morning"
	AnchorAfterLunch = "after-lunch"
	AnchorEvening    = "evening"
)

// scheduleHabits places one block per habit into the given windows.
//
// Each habit independently picks the window maximizing a light score of
// window length, anchor band, and priority. The window set is not carved
// between habits, so two habits may land in the same window. The block is
// placed at the window start for the habit's full target duration and is
// not clamped to the window end.
func (p *Planner) scheduleHabits(windows []Window, habits []Habit) []model.Event {
	out := make([]model.Event, 0, len(habits))

	for _, h := range habits {
		target := h.TargetMin
		if target <= 0 {
			target = DefaultHabitMin
		}

		bestIdx := -1
		best := unusable
		for i, w := range windows {
			startH := w.Start.Hour()

			sc := 0.2 * (float64(w.Minutes()) / 60.0)
			switch h.Anchor {
			case AnchorMorning:
				if startH <= 11 {
					sc += 1.0
				} else {
					sc -= 0.2
				}
			case AnchorAfterLunch:
				if startH >= 12 && startH <= 15 {
					sc += 1.0
				} else {
					sc -= 0.2
				}
			case AnchorEvening:
				if startH >= 17 {
					sc += 1.0
				} else {
					sc -= 0.2
				}
			}
			sc += 0.5 * normPriority(h.Priority)

			if sc > best {
				best = sc
				bestIdx = i
			}
		}

		if bestIdx >= 0 {
			s := windows[bestIdx].Start
			e := s.Add(time.Duration(target) * time.Minute)
			out = append(out, mkEvent(fmt.Sprintf("🟢 %s", h.Title), s, e, model.ColorHabitGreen))
		}
	}

	return out
}
