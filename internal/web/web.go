// Package web exposes the HTTP API: event CRUD with recurrence, day
// planning, analytics, the HTML dashboard, and the rendered PNG preview.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"edusync/internal/capture"
	"edusync/internal/config"
	"edusync/internal/dashboard"
	"edusync/internal/ics"
	"edusync/internal/insights"
	applog "edusync/internal/log"
	"edusync/internal/model"
	"edusync/internal/plan"
	"edusync/internal/series"
	"edusync/internal/store"
)

// Imported busy blocks are cached for a rolling window around now; the
// cron refresh and server start keep it warm.
const (
	busyPastDays   = 1
	busyFutureDays = 14
)

// Server wires the config, event store, planner and ICS import together
// behind an http.Handler.
type Server struct {
	cfg     *config.Config
	repo    *store.Repo
	planner *plan.Planner
	fetcher *ics.Fetcher
	mux     *http.ServeMux

	// Busy blocks imported from the configured ICS feeds. Refreshed by
	// RefreshBusy; read by every schedule-shaped handler.
	busyMu sync.RWMutex
	busy   []model.Event
}

// NewServer constructs a Server over the given config and store.
func NewServer(cfg *config.Config, repo *store.Repo) *Server {
	p := plan.New()
	p.DayStartHour = cfg.Planner.DayStartHour
	p.DayEndHour = cfg.Planner.DayEndHour
	p.MinBlockMin = cfg.Planner.MinBlockMin
	p.PreBufferMin = cfg.Planner.PreBufferMin
	p.PostBufferMin = cfg.Planner.PostBufferMin

	s := &Server{
		cfg:     cfg,
		repo:    repo,
		planner: p,
		fetcher: ics.NewFetcher(filepath.Join(cfg.CacheDir, "ics")),
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the server's http.Handler, wrapped with basic auth when
// credentials are configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		applog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Planner exposes the configured planner for one-shot CLI use.
func (s *Server) Planner() *plan.Planner {
	return s.planner
}

// PreviewPath is where the rendered dashboard PNG lives on disk.
func (s *Server) PreviewPath() string {
	return filepath.Join(s.cfg.CacheDir, "preview.png")
}

func (s *Server) basicAuthEnabled() bool {
	ba := s.cfg.BasicAuth
	return ba != nil && ba.Username != "" && ba.Password != ""
}

// basicAuthMiddleware guards every route except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="EduSync", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/events/", s.handleEventItem)
	s.mux.HandleFunc("/api/plan", s.handlePlan)
	s.mux.HandleFunc("/api/insights", s.handleInsights)
	s.mux.HandleFunc("/api/stress", s.handleStress)
	s.mux.HandleFunc("/api/balance", s.handleBalance)
	s.mux.HandleFunc("/dashboard", s.handleDashboard)
	s.mux.HandleFunc("/preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// location resolves the configured display timezone, falling back to local.
func (s *Server) location() *time.Location {
	return resolveLocationOrLocal(s.cfg.Timezone)
}

// RefreshBusy re-imports all configured ICS feeds into the busy cache for
// the rolling [now-busyPastDays, now+busyFutureDays) window. Per-feed
// failures are logged and joined into the returned error; surviving feeds
// still land in the cache.
func (s *Server) RefreshBusy(ctx context.Context) error {
	loc := s.location()
	now := time.Now().In(loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -busyPastDays)
	to := from.AddDate(0, 0, busyPastDays+busyFutureDays)

	sources := make([]ics.Source, 0, len(s.cfg.ICS))
	for _, c := range s.cfg.ICS {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			id = c.Name
		}
		sources = append(sources, ics.Source{ID: id, URL: c.URL})
	}

	var busy []model.Event
	var errs []error
	if len(sources) > 0 {
		results, fetchErrs := s.fetcher.FetchAll(ctx, sources)
		errs = append(errs, fetchErrs...)
		for _, res := range results {
			events, err := ics.BusyEvents(res.Source, res.Body, from, to, loc)
			if err != nil {
				applog.Error("ics import failed", err, "id", res.Source.ID)
				errs = append(errs, err)
				continue
			}
			busy = append(busy, events...)
		}
	}

	s.busyMu.Lock()
	s.busy = busy
	s.busyMu.Unlock()

	applog.Info("busy cache refreshed", "sources", len(sources), "events", len(busy))
	return errors.Join(errs...)
}

// busyIn returns cached imported events overlapping [from, to).
func (s *Server) busyIn(from, to time.Time) []model.Event {
	s.busyMu.RLock()
	defer s.busyMu.RUnlock()

	var out []model.Event
	for _, e := range s.busy {
		if e.End.After(from) && e.Start.Before(to) {
			out = append(out, e)
		}
	}
	return out
}

// eventsIn returns stored plus imported events overlapping [from, to).
func (s *Server) eventsIn(from, to time.Time) ([]model.Event, error) {
	stored, err := s.repo.ListRange(from, to)
	if err != nil {
		return nil, err
	}
	return append(stored, s.busyIn(from, to)...), nil
}

// EventsOnDay returns the combined events for one civil day.
func (s *Server) EventsOnDay(day time.Time) ([]model.Event, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return s.eventsIn(from, from.AddDate(0, 0, 1))
}

// handleEvents serves the event collection.
//
//	GET  /api/events?day=2026-03-10
//	GET  /api/events?from=2026-03-09&to=2026-03-15   (inclusive dates)
//	POST /api/events                                  (body: event + "recurrence")
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listEvents(w, r)
	case http.MethodPost:
		s.createEvent(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	loc := s.location()
	q := r.URL.Query()

	var from, to time.Time
	if q.Get("from") != "" || q.Get("to") != "" {
		f, err1 := parseDate(q.Get("from"), loc)
		t, err2 := parseDate(q.Get("to"), loc)
		if err1 != nil || err2 != nil || t.Before(f) {
			writeError(w, http.StatusBadRequest, "invalid from/to dates, expected YYYY-MM-DD")
			return
		}
		from, to = f, t.AddDate(0, 0, 1)
	} else {
		day, err := dayParam(q.Get("day"), loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid day, expected YYYY-MM-DD")
			return
		}
		from, to = day, day.AddDate(0, 0, 1)
	}

	events, err := s.eventsIn(from, to)
	if err != nil {
		applog.Error("event list failed", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	var ev model.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event JSON")
		return
	}
	// The recurrence selector rides alongside the event fields.
	var extra struct {
		Recurrence string `json:"recurrence"`
	}
	_ = json.Unmarshal(body, &extra)

	if strings.TrimSpace(ev.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if ev.Start.IsZero() || ev.End.IsZero() || !ev.End.After(ev.Start) {
		writeError(w, http.StatusBadRequest, "end must be after start")
		return
	}

	rule, err := series.ParseRule(extra.Recurrence)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	instances, err := series.Expand(ev, rule)
	if err != nil {
		applog.Error("series expansion failed", err, "rule", string(rule))
		writeError(w, http.StatusInternalServerError, "failed to expand recurrence")
		return
	}

	inserted, err := s.repo.InsertAll(instances)
	if err != nil {
		applog.Error("event insert failed", err)
		writeError(w, http.StatusInternalServerError, "failed to store events")
		return
	}
	applog.Info("events created", "count", len(inserted), "rule", string(rule))
	writeJSON(w, http.StatusCreated, inserted)
}

// handleEventItem serves one event.
//
//	PUT    /api/events/{id}?scope=one|series
//	DELETE /api/events/{id}?scope=one|series
func (s *Server) handleEventItem(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/events/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = "one"
	}
	if scope != "one" && scope != "series" {
		writeError(w, http.StatusBadRequest, `scope must be "one" or "series"`)
		return
	}

	switch r.Method {
	case http.MethodPut:
		s.updateEvent(w, r, id, scope)
	case http.MethodDelete:
		s.deleteEvent(w, id, scope)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request, id int64, scope string) {
	existing, err := s.repo.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load event")
		return
	}

	var ev model.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event JSON")
		return
	}
	ev.ID = id
	ev.SeriesID = existing.SeriesID

	if scope == "series" && existing.SeriesID != "" {
		// Series updates change the shared fields only; each instance keeps
		// its own dates.
		if err := s.repo.UpdateSeries(ev); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to update series")
			return
		}
	} else {
		if ev.Start.IsZero() || !ev.End.After(ev.Start) {
			writeError(w, http.StatusBadRequest, "end must be after start")
			return
		}
		if err := s.repo.Update(ev); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "event not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to update event")
			return
		}
	}

	updated, err := s.repo.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reload event")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteEvent(w http.ResponseWriter, id int64, scope string) {
	if scope == "series" {
		existing, err := s.repo.Get(id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "event not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to load event")
			return
		}
		if existing.SeriesID != "" {
			if err := s.repo.DeleteSeries(existing.SeriesID); err != nil {
				writeError(w, http.StatusInternalServerError, "failed to delete series")
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		// A series-scoped delete on a standalone event degrades to one.
	}

	if err := s.repo.Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// planRequest is the body of POST /api/plan.
type planRequest struct {
	Date   string       `json:"date"` // YYYY-MM-DD, default today
	Tasks  []plan.Task  `json:"tasks"`
	Habits []plan.Habit `json:"habits"`
	Commit bool         `json:"commit"` // persist the placed blocks
}

// handlePlan plans one day around the stored + imported events.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid plan request JSON")
		return
	}

	loc := s.location()
	day, err := dayParam(req.Date, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	existing, err := s.EventsOnDay(day)
	if err != nil {
		applog.Error("plan: loading day failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load existing events")
		return
	}

	res := s.planner.PlanDay(day, existing, req.Tasks, req.Habits)

	if req.Commit && len(res.Events) > 0 {
		inserted, err := s.repo.InsertAll(res.Events)
		if err != nil {
			applog.Error("plan: commit failed", err)
			writeError(w, http.StatusInternalServerError, "failed to store planned events")
			return
		}
		res.Events = inserted
	}

	applog.Info("day planned", "date", day.Format("2006-01-02"),
		"task_min", res.TaskMinutes, "habit_blocks", res.HabitBlocks, "commit", req.Commit)
	writeJSON(w, http.StatusOK, res)
}

// insightsResponse bundles the schedule rollup, deep-work report, and the
// static goal/habit suggestions.
type insightsResponse struct {
	Summary        insights.Summary `json:"summary"`
	SummaryLine    string           `json:"summary_line"`
	DeepWorkBlocks int              `json:"deep_work_blocks"`
	BufferMinutes  int              `json:"buffer_minutes"`
	LongestMinutes int              `json:"longest_minutes"`
	Tip            string           `json:"tip"`
	Goals          []string         `json:"goals"`
	Habits         []string         `json:"habits"`
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	events, ok := s.dayEvents(w, r)
	if !ok {
		return
	}
	sum := insights.AnalyzeSchedule(events)
	rep := insights.ProvideInsights(events)
	writeJSON(w, http.StatusOK, insightsResponse{
		Summary:        sum,
		SummaryLine:    sum.String(),
		DeepWorkBlocks: rep.DeepWorkBlocks,
		BufferMinutes:  rep.BufferMinutes,
		LongestMinutes: rep.LongestMinutes,
		Tip:            insights.Tip,
		Goals:          insights.SuggestGoals(events),
		Habits:         insights.RecommendHabits(events),
	})
}

func (s *Server) handleStress(w http.ResponseWriter, r *http.Request) {
	events, ok := s.dayEvents(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, insights.AnalyzeStress(events))
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	events, ok := s.dayEvents(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, insights.OptimizeBalance(events))
}

// dayEvents loads the combined events for the ?day query parameter,
// writing the error response itself on failure.
func (s *Server) dayEvents(w http.ResponseWriter, r *http.Request) ([]model.Event, bool) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return nil, false
	}
	day, err := dayParam(r.URL.Query().Get("day"), s.location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid day, expected YYYY-MM-DD")
		return nil, false
	}
	events, err := s.EventsOnDay(day)
	if err != nil {
		applog.Error("loading day failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return nil, false
	}
	return events, true
}

// handleDashboard renders the HTML dashboard for one day.
//
//	GET /dashboard?day=2026-03-10&theme=dark
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()

	day, err := dayParam(q.Get("day"), s.location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid day, expected YYYY-MM-DD")
		return
	}
	dark := s.cfg.DarkTheme
	switch q.Get("theme") {
	case "dark":
		dark = true
	case "light":
		dark = false
	}

	events, err := s.EventsOnDay(day)
	if err != nil {
		applog.Error("dashboard: loading day failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}

	html, err := dashboard.Render(dashboard.Compute(events, day), dark)
	if err != nil {
		applog.Error("dashboard render failed", err)
		writeError(w, http.StatusInternalServerError, "failed to render dashboard")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

// handlePreview serves the last captured dashboard PNG from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.PreviewPath())
}

// WritePreview renders today's dashboard and captures it to PreviewPath
// through headless Chromium. Used by the cron refresh; the HTTP server
// never captures inline.
func (s *Server) WritePreview(ctx context.Context) error {
	loc := s.location()
	now := time.Now().In(loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return s.RenderPNG(ctx, day, s.PreviewPath())
}

// RenderPNG captures the dashboard for day to outPath as a PNG. Used by
// the one-shot render command and WritePreview.
func (s *Server) RenderPNG(ctx context.Context, day time.Time, outPath string) error {
	events, err := s.EventsOnDay(day)
	if err != nil {
		return err
	}
	html, err := dashboard.Render(dashboard.Compute(events, day), s.cfg.DarkTheme)
	if err != nil {
		return err
	}
	return capture.HTMLToPNG(ctx, html, capture.Options{OutputPath: outPath})
}

// dayParam parses an optional YYYY-MM-DD value, defaulting to today in loc.
func dayParam(v string, loc *time.Location) (time.Time, error) {
	if v == "" {
		now := time.Now().In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
	}
	return parseDate(v, loc)
}

func parseDate(v string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", v, loc)
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" || name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		applog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
