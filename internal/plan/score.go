package plan

// Scoring weights for task/window suitability. These are hand-tuned; the
// resulting score is a relative ranking signal only and is never compared
// against an absolute threshold.
const (
	weightPriority = 1.8
	weightUrgency  = 1.4
	weightCircad   = 0.8
	weightLength   = 0.5
	weightEarly    = 0.2
)

// slotScore rates how suitable a free window is for a task.
//
// Factors: normalized priority, deadline urgency (linear ramp over a
// 7-day horizon), circadian bias when the task declares a morning or
// afternoon preference, window length (capped at 120 minutes), and a mild
// earlier-is-better term. Windows shorter than 15 minutes are unusable.
func (p *Planner) slotScore(w Window, t Task) float64 {
	durMin := w.Minutes()
	if durMin < DefaultMinBlockMin {
		return unusable
	}

	now := p.now()
	h := w.Start.Hour()

	// Circadian bias: inside the preferred band helps, outside hurts a bit.
	circ := 0.0
	if t.Morning {
		if h >= 7 && h <= 12 {
			circ += 1.0
		} else {
			circ -= 0.3
		}
	}
	if t.Afternoon {
		if h >= 13 && h <= 17 {
			circ += 1.0
		} else {
			circ -= 0.3
		}
	}

	// Deadline urgency, linear within one week of now.
	urgency := 0.0
	if t.Deadline != nil && !t.Deadline.IsZero() {
		minsLeft := t.Deadline.Sub(now).Minutes()
		urgency = clampf(1.0-minsLeft/(60.0*24.0*7.0), 0.0, 1.0)
	}

	// Sooner windows get a small boost; longer windows help up to 120m.
	hoursUntil := w.Start.Sub(now).Hours()
	if hoursUntil < 1.0 {
		hoursUntil = 1.0
	}
	early := 1.0 / hoursUntil
	length := float64(durMin) / 120.0
	if length > 1.0 {
		length = 1.0
	}

	pr := normPriority(t.Priority)

	return weightPriority*pr +
		weightUrgency*urgency +
		weightCircad*circ +
		weightLength*length +
		weightEarly*early
}
