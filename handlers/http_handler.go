// Package handlers provides HTTP request handlers for the regimen API
// endpoints: library listing and search, cycle calendars, timelines,
// ad-hoc resolution of uploaded documents, export, and health checks.
// All schedule semantics live in the resolver package; handlers only
// translate between HTTP and the engine.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nkiranraj/oncov3/interfaces"
	"github.com/nkiranraj/oncov3/logging"
	"github.com/nkiranraj/oncov3/metrics"
	"github.com/nkiranraj/oncov3/regimenparser"
	"github.com/nkiranraj/oncov3/regimenparser/entities"
	"github.com/nkiranraj/oncov3/resolver"
)

// RegimenHandler serves the regimen API using injected dependencies
type RegimenHandler struct {
	store     interfaces.DataStore
	validator interfaces.RegimenValidator
}

// NewRegimenHandler creates a new handler set
func NewRegimenHandler(store interfaces.DataStore, validator interfaces.RegimenValidator) *RegimenHandler {
	return &RegimenHandler{store: store, validator: validator}
}

// RegimenSummary is the list view of a library document
type RegimenSummary struct {
	ID         string `json:"id"`
	Indication string `json:"indication"`
	Courses    int    `json:"courses"`
	TotalDays  int    `json:"total_days"`
}

func summarize(doc entities.RegimenDocument) RegimenSummary {
	return RegimenSummary{
		ID:         doc.ID,
		Indication: doc.Regimen.Indication,
		Courses:    len(doc.Regimen.Courses),
		TotalDays:  resolver.RegimenSpanDays(doc.Regimen),
	}
}

// ListRegimens returns summaries of every loaded regimen
func (h *RegimenHandler) ListRegimens(w http.ResponseWriter, r *http.Request) {
	docs := h.store.GetRegimens()
	summaries := make([]RegimenSummary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, summarize(doc))
	}
	RespondWithJSON(w, http.StatusOK, summaries)
}

// GetRegimen returns one parsed regimen by id
func (h *RegimenHandler) GetRegimen(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.store.GetRegimen(chi.URLParam(r, "id"))
	if !ok {
		RespondWithError(w, http.StatusNotFound, "Regimen not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, doc.Regimen)
}

// SearchRegimens finds regimens whose id, indication, course or drug names
// contain the term, accent- and case-insensitively
func (h *RegimenHandler) SearchRegimens(w http.ResponseWriter, r *http.Request) {
	term := chi.URLParam(r, "term")
	if err := h.validator.ValidateInput(term); err != nil {
		logging.Warn("Unusual user input", "term", term)
		RespondWithError(w, http.StatusBadRequest, "Invalid search term")
		return
	}

	foldedTerm := foldForSearch(term)
	var results []RegimenSummary
	for _, doc := range h.store.GetRegimens() {
		if documentMatches(doc, foldedTerm) {
			results = append(results, summarize(doc))
		}
	}

	if len(results) == 0 {
		RespondWithError(w, http.StatusNotFound, "No regimens found")
		return
	}
	RespondWithJSON(w, http.StatusOK, results)
}

// CycleScheduleResponse is the calendar view of one cycle of a course
type CycleScheduleResponse struct {
	Course         string                   `json:"course"`
	CourseIndex    int                      `json:"course_index"`
	CycleLabel     string                   `json:"cycle_label"`
	CycleLength    int                      `json:"cycle_length"`
	TotalCycles    int                      `json:"total_cycles"`
	SupportiveCare []string                 `json:"supportive_care,omitempty"`
	Days           []entities.CycleDayEntry `json:"days"`
}

// CycleCalendar serves the daily schedule of one cycle of a stored regimen
func (h *RegimenHandler) CycleCalendar(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.store.GetRegimen(chi.URLParam(r, "id"))
	if !ok {
		RespondWithError(w, http.StatusNotFound, "Regimen not found")
		return
	}

	courseIndex, err := strconv.Atoi(chi.URLParam(r, "courseIndex"))
	if err != nil || courseIndex < 1 {
		RespondWithError(w, http.StatusBadRequest, "Invalid course index")
		return
	}
	if courseIndex > len(doc.Regimen.Courses) {
		RespondWithError(w, http.StatusNotFound, "Course not found")
		return
	}
	course := doc.Regimen.Courses[courseIndex-1]

	cycle, err := h.validator.ValidateCycleNumber(chi.URLParam(r, "cycleNumber"), course.Cycles)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := resolver.ParseDoseRule(r.URL.Query().Get("dose_rule"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	days, err := resolver.ResolveCycleWithRule(course, cycle, rule)
	if err != nil {
		RespondWithError(w, engineErrorStatus(err), err.Error())
		return
	}
	metrics.ScheduleResolveDuration.WithLabelValues("cycle").Observe(time.Since(start).Seconds())

	RespondWithJSON(w, http.StatusOK, CycleScheduleResponse{
		Course:         course.Name,
		CourseIndex:    courseIndex,
		CycleLabel:     fmt.Sprintf("Cycle %d", cycle),
		CycleLength:    course.CycleLength,
		TotalCycles:    course.Cycles,
		SupportiveCare: course.SupportiveCare,
		Days:           days,
	})
}

// TimelineResponse carries the absolute-dated events of a regimen
type TimelineResponse struct {
	Anchor string                   `json:"anchor"`
	Order  string                   `json:"order"`
	Events []entities.TimelineEvent `json:"events"`
}

// RegimenTimeline serves all administration events of a stored regimen,
// anchored at ?anchor (default: today, matching the interactive planner)
func (h *RegimenHandler) RegimenTimeline(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.store.GetRegimen(chi.URLParam(r, "id"))
	if !ok {
		RespondWithError(w, http.StatusNotFound, "Regimen not found")
		return
	}
	h.serveTimeline(w, r, doc.Regimen)
}

func (h *RegimenHandler) serveTimeline(w http.ResponseWriter, r *http.Request, regimen entities.Regimen) {
	anchor := time.Now().Truncate(24 * time.Hour)
	if raw := r.URL.Query().Get("anchor"); raw != "" {
		parsed, err := h.validator.ValidateAnchorDate(raw)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		anchor = parsed
	}

	order := r.URL.Query().Get("order")
	if order != "" && order != "date" && order != "traversal" {
		RespondWithError(w, http.StatusBadRequest, "order must be \"date\" or \"traversal\"")
		return
	}

	start := time.Now()
	events, err := resolver.ResolveTimeline(regimen, anchor)
	if err != nil {
		RespondWithError(w, engineErrorStatus(err), err.Error())
		return
	}
	metrics.ScheduleResolveDuration.WithLabelValues("timeline").Observe(time.Since(start).Seconds())

	if order == "date" {
		resolver.SortEventsByStart(events)
	} else {
		order = "traversal"
	}

	RespondWithJSON(w, http.StatusOK, TimelineResponse{
		Anchor: anchor.Format("2006-01-02"),
		Order:  order,
		Events: events,
	})
}

// DrugOverview is one drug schedule line of the regimen overview
type DrugOverview struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
}

// CourseOverview summarizes one course for the overview view
type CourseOverview struct {
	Name                   string                `json:"name"`
	Duration               string                `json:"duration"`
	Drugs                  []DrugOverview        `json:"drugs"`
	MaintenanceTrastuzumab *entities.Maintenance `json:"maintenance_trastuzumab,omitempty"`
	SupportiveCare         []string              `json:"supportive_care,omitempty"`
}

// OverviewResponse is the whole-regimen summary view
type OverviewResponse struct {
	ID         string           `json:"id"`
	Indication string           `json:"indication"`
	Courses    []CourseOverview `json:"courses"`
}

// RegimenOverview serves indication plus per-course summaries
func (h *RegimenHandler) RegimenOverview(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.store.GetRegimen(chi.URLParam(r, "id"))
	if !ok {
		RespondWithError(w, http.StatusNotFound, "Regimen not found")
		return
	}

	courses := make([]CourseOverview, 0, len(doc.Regimen.Courses))
	for _, course := range doc.Regimen.Courses {
		drugs := make([]DrugOverview, 0, len(course.Drugs))
		for _, drug := range course.Drugs {
			drugs = append(drugs, DrugOverview{Name: drug.Name, Schedule: drugScheduleLine(drug)})
		}
		courses = append(courses, CourseOverview{
			Name:                   course.Name,
			Duration:               fmt.Sprintf("%d cycles of %d days", course.Cycles, course.CycleLength),
			Drugs:                  drugs,
			MaintenanceTrastuzumab: course.MaintenanceTrastuzumab,
			SupportiveCare:         course.SupportiveCare,
		})
	}

	RespondWithJSON(w, http.StatusOK, OverviewResponse{
		ID:         doc.ID,
		Indication: doc.Regimen.Indication,
		Courses:    courses,
	})
}

func drugScheduleLine(drug entities.Drug) string {
	if drug.Kind == entities.SingleDay {
		return fmt.Sprintf("%s - %s on day %d", drug.Dose, drug.Route, drug.Day)
	}
	days := make([]string, 0, len(drug.Days))
	for _, d := range drug.Days {
		days = append(days, strconv.Itoa(d))
	}
	return fmt.Sprintf("loading %s, maintenance %s - %s on days %s",
		drug.LoadingDose, drug.MaintenanceDose, drug.Route, strings.Join(days, ", "))
}

// ExportRegimen serves the canonical serialization of a stored regimen,
// or the original source bytes with ?raw=true
func (h *RegimenHandler) ExportRegimen(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.store.GetRegimen(chi.URLParam(r, "id"))
	if !ok {
		RespondWithError(w, http.StatusNotFound, "Regimen not found")
		return
	}

	body := doc.Canonical
	if r.URL.Query().Get("raw") == "true" {
		body = doc.Raw
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.ID+".json"))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// ResolveCycleAdhoc resolves one cycle of a regimen document posted in the
// request body: POST /resolve/cycle?course={i}&cycle={n}
func (h *RegimenHandler) ResolveCycleAdhoc(w http.ResponseWriter, r *http.Request) {
	regimen, ok := h.readRegimenBody(w, r)
	if !ok {
		return
	}

	courseIndex, err := strconv.Atoi(r.URL.Query().Get("course"))
	if err != nil || courseIndex < 1 || courseIndex > len(regimen.Courses) {
		RespondWithError(w, http.StatusBadRequest, "course must be a valid 1-based course index")
		return
	}
	course := regimen.Courses[courseIndex-1]

	cycle, err := h.validator.ValidateCycleNumber(r.URL.Query().Get("cycle"), course.Cycles)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := resolver.ParseDoseRule(r.URL.Query().Get("dose_rule"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	days, err := resolver.ResolveCycleWithRule(course, cycle, rule)
	if err != nil {
		RespondWithError(w, engineErrorStatus(err), err.Error())
		return
	}

	RespondWithJSON(w, http.StatusOK, CycleScheduleResponse{
		Course:         course.Name,
		CourseIndex:    courseIndex,
		CycleLabel:     fmt.Sprintf("Cycle %d", cycle),
		CycleLength:    course.CycleLength,
		TotalCycles:    course.Cycles,
		SupportiveCare: course.SupportiveCare,
		Days:           days,
	})
}

// ResolveTimelineAdhoc resolves the timeline of a regimen document posted
// in the request body: POST /resolve/timeline?anchor=YYYY-MM-DD
func (h *RegimenHandler) ResolveTimelineAdhoc(w http.ResponseWriter, r *http.Request) {
	regimen, ok := h.readRegimenBody(w, r)
	if !ok {
		return
	}
	h.serveTimeline(w, r, *regimen)
}

func (h *RegimenHandler) readRegimenBody(w http.ResponseWriter, r *http.Request) (*entities.Regimen, bool) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return nil, false
	}

	regimen, err := regimenparser.ParseRegimen(raw)
	if err != nil {
		RespondWithError(w, engineErrorStatus(err), err.Error())
		return nil, false
	}
	return regimen, true
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status       string  `json:"status"`
	Uptime       string  `json:"uptime"`
	MemoryUsage  int     `json:"memory_usage_mb"`
	LastUpdate   string  `json:"last_update"`
	IsUpdating   bool    `json:"is_updating"`
	RegimenCount int     `json:"regimen_count"`
	DataAgeHours float64 `json:"data_age_hours"`
}

// HealthCheck returns server health information
func (h *RegimenHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	lastUpdate := h.store.GetLastUpdated()

	RespondWithJSON(w, http.StatusOK, HealthResponse{
		Status:       "healthy",
		Uptime:       formatUptimeHuman(time.Since(h.store.GetServerStartTime())),
		MemoryUsage:  int(m.Alloc / 1024 / 1024),
		LastUpdate:   lastUpdate.Format(time.RFC3339),
		IsUpdating:   h.store.IsUpdating(),
		RegimenCount: len(h.store.GetRegimens()),
		DataAgeHours: time.Since(lastUpdate).Hours(),
	})
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}

// engineErrorStatus maps engine error types to HTTP status codes. Every
// structural defect in a document is a client problem, never a 500.
func engineErrorStatus(err error) int {
	var malformed *entities.MalformedInputError
	var missing *entities.MissingFieldError
	var invalid *entities.InvalidRangeError
	if errors.As(err, &malformed) || errors.As(err, &missing) || errors.As(err, &invalid) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
