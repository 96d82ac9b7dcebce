package plan

import (
	"fmt"
	"sort"
	"time"

	"edusync/internal/model"
)

// scheduleTasks greedily carves tasks into the given free windows,
// surrounding every placed chunk with a short pre-buffer and post-buffer.
//
// Tasks are ordered priority descending, then earlier deadline (tasks with
// a deadline before tasks without), then larger estimate. The window pool
// is carved in place: after a placement the chosen window's start advances
// past the chunk and its trailing buffer, and empty windows are removed.
//
// Placement is best-effort. A non-splittable task receives at most one
// chunk; any remaining need is dropped without error.
func (p *Planner) scheduleTasks(windows []Window, tasks []Task) []model.Event {
	out := make([]model.Event, 0)
	if len(tasks) == 0 || len(windows) == 0 {
		return out
	}

	ordered := make([]Task, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		aDL := a.Deadline != nil && !a.Deadline.IsZero()
		bDL := b.Deadline != nil && !b.Deadline.IsZero()
		if aDL && bDL && !a.Deadline.Equal(*b.Deadline) {
			return a.Deadline.Before(*b.Deadline)
		}
		if aDL != bDL {
			return aDL
		}
		return a.EstimateMin > b.EstimateMin
	})

	// Mutable pool of windows to carve from.
	pool := make([]Window, len(windows))
	copy(pool, windows)

	for _, t := range ordered {
		if t.MaxChunkMin <= 0 {
			t.MaxChunkMin = DefaultMaxChunkMin
		}
		need := t.EstimateMin
		if need < DefaultMinBlockMin {
			need = DefaultMinBlockMin
		}

		for need > 0 {
			// Pick the best-scoring window for this task.
			bestIdx := -1
			bestScore := unusable
			for i, w := range pool {
				if w.Minutes() < DefaultMinBlockMin {
					continue
				}
				if sc := p.slotScore(w, t); sc > bestScore {
					bestScore = sc
					bestIdx = i
				}
			}
			if bestIdx < 0 {
				break // nowhere to place more time
			}

			chosen := &pool[bestIdx]
			avail := chosen.Minutes()
			chunk := t.MaxChunkMin
			if need < chunk {
				chunk = need
			}
			if avail < chunk {
				chunk = avail
			}

			// Carve [s, e) from the start of the chosen window and surround
			// it with buffers.
			s := chosen.Start
			e := s.Add(time.Duration(chunk) * time.Minute)
			sBuf := s.Add(-time.Duration(p.PreBufferMin) * time.Minute)
			eBuf := e.Add(time.Duration(p.PostBufferMin) * time.Minute)

			out = append(out,
				mkEvent(fmt.Sprintf("🔵 %s", t.Title), s, e, model.ColorTaskBlue),
				mkEvent("Buffer", sBuf, s, model.ColorBufferGray),
				mkEvent("Buffer", e, eBuf, model.ColorBufferGray),
			)

			// Advance the window past the buffer tail.
			chosen.Start = eBuf
			if !chosen.Start.Before(chosen.End) {
				pool = append(pool[:bestIdx], pool[bestIdx+1:]...)
			}

			need -= chunk
			if !t.SplitOK {
				break // single chunk only
			}
		}
	}

	return out
}
