package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"workhours/apperror"
	"workhours/database"
	"workhours/middleware"
	"workhours/models"
	"workhours/reporting"
	"workhours/web"
	"workhours/worktime"
)

type EntryHandler struct {
	store     *database.Store
	views     *web.Renderer
	log       *zap.Logger
	listLimit int
	now       func() time.Time
}

func NewEntryHandler(store *database.Store, views *web.Renderer, log *zap.Logger, listLimit int) *EntryHandler {
	return &EntryHandler{
		store:     store,
		views:     views,
		log:       log,
		listLimit: listLimit,
		now:       time.Now,
	}
}

func (h *EntryHandler) serverError(w http.ResponseWriter, msg string, err error) {
	h.log.Error(msg, zap.Error(err))
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func (h *EntryHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	ctx := r.Context()

	errMsg := r.URL.Query().Get("error")
	filter, ok := parseFilter(r.URL.Query())
	if !ok {
		// Invalid filter values show everything rather than nothing.
		errMsg = "Invalid filter values were ignored."
	}

	summary, err := h.store.SummarizeEntries(ctx, filter)
	if err != nil {
		h.serverError(w, "summarize entries", err)
		return
	}
	shown, err := h.store.ListEntries(ctx, filter, h.listLimit)
	if err != nil {
		h.serverError(w, "list entries", err)
		return
	}

	today := h.now()
	summaryYear, summaryMonth := today.Year(), int(today.Month())
	if filter.Year != 0 {
		summaryYear = filter.Year
	}
	if filter.Month != 0 {
		summaryMonth = filter.Month
	}

	monthEntries, err := h.store.ListEntries(ctx, reporting.MonthFilter(summaryYear, time.Month(summaryMonth)), 0)
	if err != nil {
		h.serverError(w, "list month entries", err)
		return
	}
	yearEntries, err := h.store.ListEntries(ctx, reporting.YearFilter(summaryYear), 0)
	if err != nil {
		h.serverError(w, "list year entries", err)
		return
	}

	employees, err := h.store.ListEmployees(ctx)
	if err != nil {
		h.serverError(w, "list employees", err)
		return
	}

	exportURL := "/export/csv"
	if ok && len(r.URL.Query()) > 0 {
		exportURL += "?" + r.URL.Query().Encode()
	}

	data := map[string]interface{}{
		"User":         user,
		"Filter":       filter,
		"Employees":    employees,
		"Entries":      shown,
		"EntriesShown": len(shown),
		"EntriesTotal": int(summary.Count),
		"TotalHours":   summary.DurationHours,
		"Monthly":      reporting.GroupTotalsByEmployee(monthEntries),
		"Yearly":       reporting.GroupTotalsByEmployee(yearEntries),
		"SummaryYear":  summaryYear,
		"SummaryMonth": summaryMonth,
		"ExportURL":    exportURL,
		"Error":        errMsg,
		"Success":      r.URL.Query().Get("success"),
	}
	h.views.Render(w, http.StatusOK, "dashboard", data)
}

func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.ListEntries(r.Context(), models.EntryFilter{}, 0)
	if err != nil {
		h.serverError(w, "list entries", err)
		return
	}

	data := map[string]interface{}{
		"User":    middleware.GetUserFromContext(r.Context()),
		"Entries": entries,
		"Error":   r.URL.Query().Get("error"),
		"Success": r.URL.Query().Get("success"),
	}
	h.views.Render(w, http.StatusOK, "entries", data)
}

// renderForm shows the entry form. entry is nil when creating.
func (h *EntryHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, form entryForm, entry *models.WorkEntry, message string) {
	employees, err := h.store.ListEmployees(r.Context())
	if err != nil {
		h.serverError(w, "list employees", err)
		return
	}

	title, action := "Add Work Entry", "/entries/new"
	if entry != nil {
		title, action = "Edit Work Entry", fmt.Sprintf("/entries/edit?id=%d", entry.ID)
	}

	data := map[string]interface{}{
		"User":      middleware.GetUserFromContext(r.Context()),
		"Title":     title,
		"Action":    action,
		"Form":      form,
		"Entry":     entry,
		"Employees": employees,
		"Error":     message,
	}
	h.views.Render(w, status, "entry-form", data)
}

func (h *EntryHandler) NewEntryPage(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, newEntryForm(h.now()), nil, r.URL.Query().Get("error"))
}

func (h *EntryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/entries/new", "error", "Invalid form data")
		return
	}

	form := parseEntryForm(r)
	var entry models.WorkEntry
	err := form.apply(&entry)
	if err == nil {
		err = h.store.CreateEntry(r.Context(), &entry)
	}
	if err != nil {
		h.formError(w, r, form, nil, err)
		return
	}

	h.log.Info("work entry created",
		zap.Uint("id", entry.ID),
		zap.Uint("employee_id", entry.EmployeeID),
		zap.String("duration_hours", entry.DurationHours.StringFixed(2)))
	redirectWith(w, r, "/dashboard", "success", "Work entry created")
}

// formError re-renders the entry form for errors the user can fix and
// fails the request for anything else.
func (h *EntryHandler) formError(w http.ResponseWriter, r *http.Request, form entryForm, entry *models.WorkEntry, err error) {
	if apperror.KindOf(err) == 0 {
		h.serverError(w, "save work entry", err)
		return
	}
	h.renderForm(w, r, http.StatusUnprocessableEntity, form, entry, apperror.Message(err, "Invalid form data"))
}

// loadEntry resolves the id query or form parameter. On failure it has
// already written the response.
func (h *EntryHandler) loadEntry(w http.ResponseWriter, r *http.Request) (*models.WorkEntry, bool) {
	id, err := parseID(r.FormValue("id"))
	if err != nil {
		redirectWith(w, r, "/entries", "error", "Invalid entry ID")
		return nil, false
	}

	entry, err := h.store.GetEntry(r.Context(), id)
	if err != nil {
		if apperror.IsNotFound(err) {
			h.views.Render(w, http.StatusNotFound, "entries", map[string]interface{}{
				"User":  middleware.GetUserFromContext(r.Context()),
				"Error": "Entry not found",
			})
			return nil, false
		}
		h.serverError(w, "get entry", err)
		return nil, false
	}
	return entry, true
}

func (h *EntryHandler) EditEntryPage(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.loadEntry(w, r)
	if !ok {
		return
	}
	h.renderForm(w, r, http.StatusOK, entryFormFrom(entry), entry, r.URL.Query().Get("error"))
}

func (h *EntryHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/entries", "error", "Invalid form data")
		return
	}

	entry, ok := h.loadEntry(w, r)
	if !ok {
		return
	}

	form := parseEntryForm(r)
	updated := *entry
	updated.Employee = models.Employee{}
	err := form.apply(&updated)
	if err == nil {
		err = h.store.UpdateEntry(r.Context(), &updated)
	}
	if err != nil {
		h.formError(w, r, form, entry, err)
		return
	}

	h.log.Info("work entry updated", zap.Uint("id", updated.ID))
	redirectWith(w, r, "/entries", "success", "Work entry updated")
}

func (h *EntryHandler) DeleteEntryPage(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.loadEntry(w, r)
	if !ok {
		return
	}

	data := map[string]interface{}{
		"User":  middleware.GetUserFromContext(r.Context()),
		"Entry": entry,
	}
	h.views.Render(w, http.StatusOK, "confirm-delete", data)
}

func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/entries", "error", "Invalid form data")
		return
	}

	id, err := parseID(r.FormValue("id"))
	if err != nil {
		redirectWith(w, r, "/entries", "error", "Invalid entry ID")
		return
	}

	if err := h.store.DeleteEntry(r.Context(), id); err != nil {
		if apperror.IsNotFound(err) {
			redirectWith(w, r, "/entries", "error", "Entry not found")
			return
		}
		h.serverError(w, "delete entry", err)
		return
	}

	h.log.Info("work entry deleted", zap.Uint("id", id))
	redirectWith(w, r, "/entries", "success", "Work entry deleted")
}

func (h *EntryHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	today := h.now()
	year, month := today.Year(), today.Month()

	monthEntries, err := h.store.ListEntries(r.Context(), reporting.MonthFilter(year, month), 0)
	if err != nil {
		h.serverError(w, "list month entries", err)
		return
	}
	yearEntries, err := h.store.ListEntries(r.Context(), reporting.YearFilter(year), 0)
	if err != nil {
		h.serverError(w, "list year entries", err)
		return
	}

	data := map[string]interface{}{
		"User":          middleware.GetUserFromContext(r.Context()),
		"CurrentYear":   year,
		"CurrentMonth":  today.Format("2006-01"),
		"MonthlyTotals": reporting.GroupTotalsByEmployee(monthEntries),
		"MonthlyTotal":  reporting.Sum(monthEntries),
		"YearlyTotals":  reporting.GroupTotalsByEmployee(yearEntries),
		"YearlyTotal":   reporting.Sum(yearEntries),
	}
	h.views.Render(w, http.StatusOK, "analytics", data)
}

var csvHeader = []string{"Employee", "Position", "Date", "Start", "End", "Duration Hours", "Extra Hours", "Total Hours"}

// ExportCSV writes the entries matching the dashboard filter, oldest first.
func (h *EntryHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(r.URL.Query())
	if !ok {
		http.Error(w, "Invalid filter", http.StatusBadRequest)
		return
	}

	entries, err := h.store.ListEntries(r.Context(), filter, 0)
	if err != nil {
		h.serverError(w, "list entries", err)
		return
	}

	filename := fmt.Sprintf("work_entries_%s.csv", h.now().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	// Headers are already sent, so write failures can only be logged.
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		h.log.Error("write csv header", zap.Error(err))
		return
	}

	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		err := writer.Write([]string{
			entry.Employee.Name,
			entry.Employee.Position,
			entry.Date.Format(models.DateLayout),
			entry.StartTime.String(),
			entry.EndTime.String(),
			worktime.FormatDecimalHours(entry.DurationHours),
			worktime.FormatDecimalHours(entry.ExtraHours),
			worktime.FormatDecimalHours(entry.TotalHours),
		})
		if err != nil {
			h.log.Error("write csv row", zap.Uint("id", entry.ID), zap.Error(err))
			return
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		h.log.Error("flush csv export", zap.Int("entries", len(entries)), zap.Error(err))
	}
}
