package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Color is a plain RGB triple. Events carry a display color so API clients
// can render blocks consistently without re-deriving categories.
type Color struct {
	R uint8
	G uint8
	B uint8
}

// Palette used for planner output and defaults. These match the block
// categories the planner emits (deep-work tasks, habits, buffers).
var (
	ColorTaskBlue   = Color{R: 47, G: 111, B: 235}  // #2f6feb
	ColorHabitGreen = Color{R: 34, G: 197, B: 94}   // #22c55e
	ColorBufferGray = Color{R: 154, G: 163, B: 171} // #9aa3ab
	ColorSlate      = Color{R: 120, G: 144, B: 156} // default for untyped events
)

// Event is a single calendar block. The Description field may pack a
// category and free-form notes as "category::notes"; Category and Notes
// split that form back apart.
//
// Start <= End is assumed but not enforced; degenerate spans are tolerated
// everywhere downstream (they simply contribute zero minutes).
type Event struct {
	ID          int64
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Color       Color
	SeriesID    string // empty for one-off events; shared across a series
}

// NewEvent builds an unsaved event (ID -1).
func NewEvent(title, description string, start, end time.Time, color Color) Event {
	return Event{
		ID:          -1,
		Title:       title,
		Description: description,
		Start:       start,
		End:         end,
		Color:       color,
	}
}

// OnDay reports whether the event touches the civil date of day
// (comparison is by date in each timestamp's own location).
func (e Event) OnDay(day time.Time) bool {
	d := civil(day)
	return !civil(e.Start).After(d) && !d.After(civil(e.End))
}

// Minutes returns the whole minutes in [Start, End), clamped at zero for
// degenerate spans.
func (e Event) Minutes() int {
	m := int(e.End.Sub(e.Start) / time.Minute)
	if m < 0 {
		return 0
	}
	return m
}

// Category returns the part of Description before "::", or the whole
// description when no packing marker is present.
func (e Event) Category() string {
	d := e.Description
	if i := strings.Index(d, "::"); i >= 0 {
		return strings.TrimSpace(d[:i])
	}
	return strings.TrimSpace(d)
}

// Notes returns the part of Description after "::", or "" when the
// description is not packed.
func (e Event) Notes() string {
	d := e.Description
	if i := strings.Index(d, "::"); i >= 0 {
		return strings.TrimSpace(d[i+2:])
	}
	return ""
}

// PackDescription joins a category and notes into the "category::notes"
// form. An empty category yields the notes unchanged.
func PackDescription(category, notes string) string {
	if category == "" {
		return notes
	}
	return category + "::" + notes
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// eventJSON is the wire shape for Event. Field names and defaults are kept
// stable for existing exports: a missing color decodes to the slate
// default and a missing id to -1.
type eventJSON struct {
	ID       *int64 `json:"id"`
	Title    string `json:"title"`
	Desc     string `json:"desc"`
	Start    string `json:"start"`
	End      string `json:"end"`
	ColorR   *int   `json:"color_r"`
	ColorG   *int   `json:"color_g"`
	ColorB   *int   `json:"color_b"`
	SeriesID string `json:"series_id"`
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	id := e.ID
	r, g, b := int(e.Color.R), int(e.Color.G), int(e.Color.B)
	return json.Marshal(eventJSON{
		ID:       &id,
		Title:    e.Title,
		Desc:     e.Description,
		Start:    e.Start.Format(time.RFC3339),
		End:      e.End.Format(time.RFC3339),
		ColorR:   &r,
		ColorG:   &g,
		ColorB:   &b,
		SeriesID: e.SeriesID,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Unparseable timestamps are
// left as zero times rather than failing the whole document.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w eventJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	e.ID = -1
	if w.ID != nil {
		e.ID = *w.ID
	}
	e.Title = w.Title
	e.Description = w.Desc
	e.Start, _ = time.Parse(time.RFC3339, w.Start)
	e.End, _ = time.Parse(time.RFC3339, w.End)
	e.Color = Color{
		R: clampByte(w.ColorR, ColorSlate.R),
		G: clampByte(w.ColorG, ColorSlate.G),
		B: clampByte(w.ColorB, ColorSlate.B),
	}
	e.SeriesID = w.SeriesID
	return nil
}

func clampByte(v *int, def uint8) uint8 {
	if v == nil {
		return def
	}
	n := *v
	if n < 0 {
		n = 0
	}
	if n > 255 {
		n = 255
	}
	return uint8(n)
}
