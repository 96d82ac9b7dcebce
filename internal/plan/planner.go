package plan

import (
	"fmt"
	"strings"
	"time"

	"edusync/internal/model"
)

// Result is the output of a PlanDay call.
type Result struct {
	// Events is the concatenation of placed task blocks (with their
	// buffers) and habit blocks, all newly derived; no input event is ever
	// modified.
	Events []model.Event `json:"events"`

	// TaskMinutes is the total placed task time, excluding buffers.
	TaskMinutes int `json:"task_minutes"`
	// HabitBlocks is the number of habit blocks placed.
	HabitBlocks int `json:"habit_blocks"`

	// Summary is a short human-readable rollup of the plan.
	Summary string `json:"summary"`
}

// PlanDay plans a single day:
//
//  1. compute free windows from the existing events
//  2. carve tasks (with buffers) into those windows
//  3. recompute free windows over existing + placed task blocks
//  4. place habits into the remaining windows
//
// Inputs are never mutated; only new derived events are produced.
func (p *Planner) PlanDay(day time.Time, existing []model.Event, tasks []Task, habits []Habit) Result {
	free := p.FreeWindows(day, existing, p.MinBlockMin)

	placedTasks := p.scheduleTasks(free, tasks)

	// Habits go into the time left over after task placement.
	busy := make([]model.Event, 0, len(existing)+len(placedTasks))
	busy = append(busy, existing...)
	busy = append(busy, placedTasks...)
	freeAfter := p.FreeWindows(day, busy, p.MinBlockMin)

	placedHabits := p.scheduleHabits(freeAfter, habits)

	all := make([]model.Event, 0, len(placedTasks)+len(placedHabits))
	all = append(all, placedTasks...)
	all = append(all, placedHabits...)

	taskMin := 0
	for _, e := range placedTasks {
		if strings.Contains(e.Title, "Buffer") {
			continue
		}
		taskMin += e.Minutes()
	}

	return Result{
		Events:      all,
		TaskMinutes: taskMin,
		HabitBlocks: len(placedHabits),
		Summary: fmt.Sprintf("Planned %d task min and %d habit block(s) for %s.",
			taskMin, len(placedHabits), day.Format("2006-01-02")),
	}
}
