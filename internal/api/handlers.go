package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/username/workload-planner/internal/calendar"
	"github.com/username/workload-planner/internal/daemon"
	"github.com/username/workload-planner/internal/schedule"
	"github.com/username/workload-planner/internal/store"
	"github.com/username/workload-planner/pkg/dateutil"
)

// Calendar is the workday calendar as seen by the handlers
type Calendar interface {
	DayKind(date time.Time) calendar.DayKind
	Fact(date time.Time) (calendar.DayFact, bool)
	EnsureCached(ctx context.Context, start, end time.Time)
	Sync(ctx context.Context, year int) (int, error)
	SetOvertime(cfg calendar.OvertimeConfig)
}

// SettingsStore persists the overtime configuration
type SettingsStore interface {
	ListActiveDevelopers(ctx context.Context) ([]store.Developer, error)
	GetSettingsByCategory(ctx context.Context, category string) ([]store.Setting, error)
	LoadOvertimeConfig(ctx context.Context) (calendar.OvertimeConfig, []string, error)
	SaveOvertimeConfig(ctx context.Context, cfg calendar.OvertimeConfig) (calendar.OvertimeConfig, error)
}

// RefreshStatus reports the state of the background holiday refresher
type RefreshStatus interface {
	GetStatus() daemon.Status
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	store           SettingsStore
	planner         *schedule.Planner
	calendar        Calendar
	refresher       RefreshStatus // nil when no refresher runs
	includeOvertime bool          // default for the overtime query parameter
	logger          *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(st SettingsStore, planner *schedule.Planner, cal Calendar, includeOvertime bool, logger *zap.Logger) *Handler {
	return &Handler{
		store:           st,
		planner:         planner,
		calendar:        cal,
		includeOvertime: includeOvertime,
		logger:          logger,
	}
}

// WithRefresher exposes the refresher state on /api/holidays/status
func (h *Handler) WithRefresher(r RefreshStatus) *Handler {
	h.refresher = r
	return h
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// DayResponse describes how the calendar classifies one date
type DayResponse struct {
	Date        string `json:"date"`
	Kind        string `json:"kind"`
	IsWorkday   bool   `json:"is_workday"`
	HolidayName string `json:"holiday_name,omitempty"`
}

// SyncResponse reports a holiday sync
type SyncResponse struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// OvertimeResponse is the persisted overtime configuration
type OvertimeResponse struct {
	calendar.OvertimeConfig
	Ignored []string `json:"ignored,omitempty"` // stored custom dates that failed to parse
}

func (h *Handler) ListDevelopers(w http.ResponseWriter, r *http.Request) {
	devs, err := h.store.ListActiveDevelopers(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list developers", err)
		return
	}
	if devs == nil {
		devs = []store.Developer{}
	}
	writeJSON(w, http.StatusOK, devs)
}

func (h *Handler) DeveloperWorkload(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid developer id", err)
		return
	}
	overtime, err := h.overtimeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid overtime flag", err)
		return
	}

	q := r.URL.Query()
	report, err := h.planner.DeveloperWorkload(r.Context(), id, q.Get("start"), q.Get("end"), overtime)
	if err != nil {
		h.fail(w, r, "Failed to compute workload", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) TeamWorkload(w http.ResponseWriter, r *http.Request) {
	overtime, err := h.overtimeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid overtime flag", err)
		return
	}

	q := r.URL.Query()
	report, err := h.planner.TeamWorkload(r.Context(), q.Get("start"), q.Get("end"), overtime)
	if err != nil {
		h.fail(w, r, "Failed to compute team workload", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) CalendarEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var developerID *int64
	if raw := q.Get("developer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid developer_id", err)
			return
		}
		developerID = &id
	}

	events, err := h.planner.CalendarEvents(r.Context(), q.Get("start"), q.Get("end"), developerID)
	if err != nil {
		h.fail(w, r, "Failed to load calendar events", err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) CalendarResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.planner.CalendarResources(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to load calendar resources", err)
		return
	}
	writeJSON(w, http.StatusOK, resources)
}

func (h *Handler) Day(w http.ResponseWriter, r *http.Request) {
	date, err := dateutil.ParseISODate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	h.calendar.EnsureCached(r.Context(), date, date)

	kind := h.calendar.DayKind(date)
	resp := DayResponse{
		Date:      dateutil.FormatISODate(date),
		Kind:      kind.String(),
		IsWorkday: kind.IsWorking(),
	}
	if fact, ok := h.calendar.Fact(date); ok {
		resp.HolidayName = fact.Name
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SyncHolidays(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	n, err := h.calendar.Sync(r.Context(), year)
	if err != nil {
		h.fail(w, r, "Failed to sync holidays", err)
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{Year: year, Count: n})
}

func (h *Handler) HolidayStatus(w http.ResponseWriter, r *http.Request) {
	if h.refresher == nil {
		writeError(w, http.StatusServiceUnavailable, "Holiday refresher is not running", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.refresher.GetStatus())
}

func (h *Handler) ListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.GetSettingsByCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		h.fail(w, r, "Failed to list settings", err)
		return
	}
	if settings == nil {
		settings = []store.Setting{}
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) GetOvertime(w http.ResponseWriter, r *http.Request) {
	cfg, ignored, err := h.store.LoadOvertimeConfig(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to load overtime settings", err)
		return
	}
	writeJSON(w, http.StatusOK, OvertimeResponse{OvertimeConfig: cfg, Ignored: ignored})
}

func (h *Handler) PutOvertime(w http.ResponseWriter, r *http.Request) {
	var cfg calendar.OvertimeConfig
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	saved, err := h.store.SaveOvertimeConfig(r.Context(), cfg)
	if err != nil {
		h.fail(w, r, "Failed to save overtime settings", err)
		return
	}
	h.calendar.SetOvertime(saved)

	h.logger.Info("Overtime settings updated",
		zap.String("weekend", string(saved.Weekend)),
		zap.Strings("custom_dates", saved.CustomDates))

	writeJSON(w, http.StatusOK, OvertimeResponse{OvertimeConfig: saved})
}

func (h *Handler) overtimeParam(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("overtime")
	if raw == "" {
		return h.includeOvertime, nil
	}
	return strconv.ParseBool(raw)
}

// fail maps domain errors to HTTP statuses and logs server-side failures
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(message,
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, schedule.ErrInvalidInput),
		errors.Is(err, calendar.ErrInvalidOvertime),
		errors.Is(err, calendar.ErrInvalidYear):
		return http.StatusBadRequest
	case errors.Is(err, schedule.ErrDeveloperNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, calendar.ErrSourceUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
