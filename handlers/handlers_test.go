package handlers

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"workhours/config"
	"workhours/database"
	"workhours/middleware"
	"workhours/models"
	"workhours/web"
	"workhours/worktime"
)

type testApp struct {
	t       *testing.T
	store   *database.Store
	auth    *middleware.Authenticator
	handler http.Handler
	admin   *models.User
	token   string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("file:"+name+"?mode=memory&cache=shared", "silent")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	store := database.NewStore(db)

	cfg := config.Default()
	cfg.JWTSecret = "handler-test-secret-0123456789"
	cfg.EntryListLimit = 2

	auth := middleware.NewAuthenticator(cfg.JWTSecret, time.Hour, store)
	views, err := web.NewRenderer(zap.NewNop())
	require.NoError(t, err)

	admin, err := database.NewStaffUser("admin", "Ada Admin", "secret1", false)
	require.NoError(t, err)
	require.NoError(t, store.CreateUser(context.Background(), admin))
	token, err := auth.GenerateToken(admin)
	require.NoError(t, err)

	return &testApp{
		t:       t,
		store:   store,
		auth:    auth,
		handler: NewRouter(cfg, store, auth, views, zap.NewNop()),
		admin:   admin,
		token:   token,
	}
}

// do sends an authenticated request; form is posted url-encoded when set.
func (a *testApp) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	a.t.Helper()
	req := a.request(method, target, form)
	req.AddCookie(&http.Cookie{Name: "token", Value: a.token})
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func (a *testApp) anonymous(method, target string, form url.Values) *httptest.ResponseRecorder {
	a.t.Helper()
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, a.request(method, target, form))
	return rr
}

func (a *testApp) request(method, target string, form url.Values) *http.Request {
	if form == nil {
		return httptest.NewRequest(method, target, nil)
	}
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (a *testApp) employee(name string) *models.Employee {
	a.t.Helper()
	e := &models.Employee{Name: name, Position: "Engineer"}
	require.NoError(a.t, a.store.CreateEmployee(context.Background(), e))
	return e
}

func (a *testApp) entry(employeeID uint, date time.Time, start, end string) *models.WorkEntry {
	a.t.Helper()
	startClock, err := worktime.ParseClock(start)
	require.NoError(a.t, err)
	endClock, err := worktime.ParseClock(end)
	require.NoError(a.t, err)
	e := &models.WorkEntry{EmployeeID: employeeID, Date: date, StartTime: startClock, EndTime: endClock}
	require.NoError(a.t, a.store.CreateEntry(context.Background(), e))
	return e
}

func entryValues(employeeID uint, date, start, end, extra string) url.Values {
	return url.Values{
		"employee":    {idString(employeeID)},
		"date":        {date},
		"start_time":  {start},
		"end_time":    {end},
		"extra_hours": {extra},
	}
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPublicRoutes(t *testing.T) {
	app := newTestApp(t)

	rr := app.anonymous(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	rr = app.anonymous(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = app.anonymous(http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login?next=%2Fdashboard", rr.Header().Get("Location"))

	rr = app.anonymous(http.MethodGet, "/login?next=/entries", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `value="/entries"`)
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	viewer, err := database.NewStaffUser("viewer", "", "secret1", false)
	require.NoError(t, err)
	viewer.IsStaff = false
	require.NoError(t, app.store.CreateUser(ctx, viewer))

	fresh, err := database.NewStaffUser("fresh", "", "secret1", true)
	require.NoError(t, err)
	require.NoError(t, app.store.CreateUser(ctx, fresh))

	tests := []struct {
		name     string
		form     url.Values
		code     int
		location string
		body     string
	}{
		{
			name:     "staff user goes to next",
			form:     url.Values{"username": {"admin"}, "password": {"secret1"}, "next": {"/entries"}},
			code:     http.StatusSeeOther,
			location: "/entries",
		},
		{
			name:     "offsite next is ignored",
			form:     url.Values{"username": {"admin"}, "password": {"secret1"}, "next": {"//evil.example"}},
			code:     http.StatusSeeOther,
			location: "/dashboard",
		},
		{
			name:     "password change required",
			form:     url.Values{"username": {"fresh"}, "password": {"secret1"}},
			code:     http.StatusSeeOther,
			location: "/change-password",
		},
		{
			name: "wrong password",
			form: url.Values{"username": {"admin"}, "password": {"nope"}},
			code: http.StatusUnauthorized,
			body: "Please enter a correct username and password.",
		},
		{
			name: "unknown user",
			form: url.Values{"username": {"ghost"}, "password": {"secret1"}},
			code: http.StatusUnauthorized,
			body: "Please enter a correct username and password.",
		},
		{
			name: "not staff",
			form: url.Values{"username": {"viewer"}, "password": {"secret1"}},
			code: http.StatusForbidden,
			body: "You do not have permission to access the admin area.",
		},
		{
			name: "missing password",
			form: url.Values{"username": {"admin"}},
			code: http.StatusUnprocessableEntity,
			body: "Password is required.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := app.anonymous(http.MethodPost, "/login", tt.form)
			assert.Equal(t, tt.code, rr.Code)
			if tt.location != "" {
				assert.Equal(t, tt.location, rr.Header().Get("Location"))
				assert.Contains(t, rr.Header().Get("Set-Cookie"), "token=")
			}
			if tt.body != "" {
				assert.Contains(t, rr.Body.String(), tt.body)
			}
		})
	}
}

func TestChangePassword(t *testing.T) {
	app := newTestApp(t)

	rr := app.do(http.MethodPost, "/change-password", url.Values{
		"current_password": {"secret1"},
		"new_password":     {"newsecret"},
		"confirm_password": {"different"},
	})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Contains(t, rr.Header().Get("Location"), "error=Passwords+do+not+match")

	rr = app.do(http.MethodPost, "/change-password", url.Values{
		"current_password": {"wrong"},
		"new_password":     {"newsecret"},
		"confirm_password": {"newsecret"},
	})
	assert.Contains(t, rr.Header().Get("Location"), "error=Current+password+is+incorrect")

	rr = app.do(http.MethodPost, "/change-password", url.Values{
		"current_password": {"secret1"},
		"new_password":     {"newsecret"},
		"confirm_password": {"newsecret"},
	})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Contains(t, rr.Header().Get("Location"), "/dashboard")

	rr = app.anonymous(http.MethodPost, "/login", url.Values{"username": {"admin"}, "password": {"newsecret"}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
}

func TestCreateEntry(t *testing.T) {
	app := newTestApp(t)
	alice := app.employee("Alice")

	rr := app.do(http.MethodGet, "/entries/new", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `value="15:30"`)

	rr = app.do(http.MethodPost, "/entries/new", entryValues(alice.ID, "2024-03-10", "08:00", "15:30", "1,5"))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/dashboard?success=Work+entry+created", rr.Header().Get("Location"))

	entries, err := app.store.ListEntries(context.Background(), models.EntryFilter{}, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "7.50", entries[0].DurationHours.StringFixed(2))
	assert.Equal(t, "9.00", entries[0].TotalHours.StringFixed(2))

	tests := []struct {
		name string
		form url.Values
		body string
	}{
		{"too long", entryValues(alice.ID, "2024-03-11", "06:00", "19:00", ""), "Work duration cannot exceed 12 hours per day. Current duration: 13.00 hours"},
		{"empty interval", entryValues(alice.ID, "2024-03-11", "09:00", "09:00", ""), "End time must be after start time."},
		{"duplicate", entryValues(alice.ID, "2024-03-10", "08:00", "15:30", "0"), "already exists"},
		{"missing employee", entryValues(0, "2024-03-11", "08:00", "12:00", ""), "Employee"},
		{"unknown employee", entryValues(alice.ID+100, "2024-03-11", "08:00", "12:00", ""), "Employee not found."},
		{"bad date", entryValues(alice.ID, "11/03/2024", "08:00", "12:00", ""), "Enter a valid date."},
		{"negative extra", entryValues(alice.ID, "2024-03-11", "08:00", "12:00", "-1"), "Extra hours cannot be negative."},
		{"exponent extra", entryValues(alice.ID, "2024-03-11", "08:00", "12:00", "1e-2147483647"), "Enter a valid number of extra hours."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := app.do(http.MethodPost, "/entries/new", tt.form)
			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.body)
		})
	}

	entries, err = app.store.ListEntries(context.Background(), models.EntryFilter{}, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEditAndDeleteEntry(t *testing.T) {
	app := newTestApp(t)
	alice := app.employee("Alice")
	entry := app.entry(alice.ID, day(2024, 3, 10), "08:00", "12:00")
	app.entry(alice.ID, day(2024, 3, 10), "13:00", "15:00")

	rr := app.do(http.MethodGet, "/entries/edit?id="+idString(entry.ID), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `value="08:00"`)

	rr = app.do(http.MethodPost, "/entries/edit?id="+idString(entry.ID), entryValues(alice.ID, "2024-03-10", "22:00", "02:30", "0"))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/entries?success=Work+entry+updated", rr.Header().Get("Location"))

	updated, err := app.store.GetEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "4.50", updated.DurationHours.StringFixed(2))

	// Moving onto the other entry's slot is a conflict.
	rr = app.do(http.MethodPost, "/entries/edit?id="+idString(entry.ID), entryValues(alice.ID, "2024-03-10", "13:00", "15:00", "0"))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "already exists")

	rr = app.do(http.MethodGet, "/entries/edit?id=9999", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = app.do(http.MethodGet, "/entries/delete?id="+idString(entry.ID), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Delete Work Entry")

	rr = app.do(http.MethodPost, "/entries/delete", url.Values{"id": {idString(entry.ID)}})
	assert.Equal(t, "/entries?success=Work+entry+deleted", rr.Header().Get("Location"))

	rr = app.do(http.MethodPost, "/entries/delete", url.Values{"id": {idString(entry.ID)}})
	assert.Equal(t, "/entries?error=Entry+not+found", rr.Header().Get("Location"))
}

func TestDashboard(t *testing.T) {
	app := newTestApp(t)
	alice := app.employee("Alice")
	bob := app.employee("Bob")
	app.entry(alice.ID, day(2024, 3, 10), "08:00", "15:30")
	app.entry(alice.ID, day(2024, 3, 11), "08:00", "12:00")
	app.entry(alice.ID, day(2024, 3, 12), "08:00", "09:00")
	app.entry(bob.ID, day(2024, 3, 10), "09:00", "10:00")

	rr := app.do(http.MethodGet, "/dashboard?employee="+idString(alice.ID)+"&year=2024&month=3", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	// Totals cover every match while the list is capped.
	assert.Contains(t, body, "<strong>12.50</strong>")
	assert.Contains(t, body, "Showing the latest 2 of 3 entries.")
	assert.Contains(t, body, "March 2024 per employee")
	assert.Contains(t, body, `href="/export/csv?employee=`+idString(alice.ID)+`&amp;month=3&amp;year=2024"`)

	rr = app.do(http.MethodGet, "/dashboard?month=13", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body = rr.Body.String()
	assert.Contains(t, body, "Invalid filter values were ignored.")
	assert.Contains(t, body, "<strong>13.50</strong>")
}

func TestExportCSV(t *testing.T) {
	app := newTestApp(t)
	alice := app.employee("Alice")
	app.entry(alice.ID, day(2024, 3, 11), "08:00", "12:00")
	app.entry(alice.ID, day(2024, 3, 10), "22:00", "01:15")
	app.entry(alice.ID, day(2023, 3, 10), "08:00", "09:00")

	rr := app.do(http.MethodGet, "/export/csv?year=2024", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))

	records, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Employee", "Position", "Date", "Start", "End", "Duration Hours", "Extra Hours", "Total Hours"}, records[0])
	assert.Equal(t, []string{"Alice", "Engineer", "2024-03-10", "22:00:00", "01:15:00", "3.25", "0.00", "3.25"}, records[1])
	assert.Equal(t, "2024-03-11", records[2][2])

	rr = app.do(http.MethodGet, "/export/csv?year=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// brokenWriter accepts headers but fails every body write, like a client
// that went away mid-download.
type brokenWriter struct {
	header http.Header
}

func (b *brokenWriter) Header() http.Header       { return b.header }
func (b *brokenWriter) WriteHeader(int)           {}
func (b *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset by peer") }

func TestExportCSV_LogsWriteFailure(t *testing.T) {
	app := newTestApp(t)
	alice := app.employee("Alice")
	app.entry(alice.ID, day(2024, 3, 11), "08:00", "12:00")

	core, logs := observer.New(zap.ErrorLevel)
	views, err := web.NewRenderer(zap.NewNop())
	require.NoError(t, err)
	h := NewEntryHandler(app.store, views, zap.New(core), 10)

	w := &brokenWriter{header: http.Header{}}
	h.ExportCSV(w, httptest.NewRequest(http.MethodGet, "/export/csv", nil))

	assert.Equal(t, "text/csv", w.header.Get("Content-Type"))
	failures := logs.FilterMessage("flush csv export").All()
	require.Len(t, failures, 1)
	assert.Equal(t, int64(1), failures[0].ContextMap()["entries"])
	assert.Contains(t, failures[0].ContextMap()["error"], "connection reset by peer")
}

func TestAnalytics(t *testing.T) {
	app := newTestApp(t)
	alice := app.employee("Alice")
	today := worktime.Day(time.Now())
	app.entry(alice.ID, today, "08:00", "10:30")

	rr := app.do(http.MethodGet, "/analytics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Alice")
	assert.Contains(t, body, "2:30")
	assert.Contains(t, body, today.Format("2006-01"))
}

func TestEmployees(t *testing.T) {
	app := newTestApp(t)

	rr := app.do(http.MethodPost, "/employees", url.Values{"name": {"  Carol  "}, "position": {"PM"}})
	assert.Equal(t, "/employees?success=Employee+created", rr.Header().Get("Location"))

	rr = app.do(http.MethodPost, "/employees", url.Values{"name": {""}})
	assert.Equal(t, "/employees?error=Name+is+required.", rr.Header().Get("Location"))

	employees, err := app.store.ListEmployees(context.Background())
	require.NoError(t, err)
	require.Len(t, employees, 1)
	carol := employees[0]
	assert.Equal(t, "Carol", carol.Name)
	app.entry(carol.ID, day(2024, 3, 10), "08:00", "12:00")

	rr = app.do(http.MethodGet, "/employees", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Carol")

	rr = app.do(http.MethodGet, "/employees/edit?id="+idString(carol.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `value="Carol"`)

	rr = app.do(http.MethodPost, "/employees/edit", url.Values{"id": {idString(carol.ID)}, "name": {"Carol King"}, "position": {" Lead PM "}})
	assert.Equal(t, "/employees?success=Employee+updated", rr.Header().Get("Location"))
	updated, err := app.store.GetEmployee(context.Background(), carol.ID)
	require.NoError(t, err)
	assert.Equal(t, "Carol King", updated.Name)
	assert.Equal(t, "Lead PM", updated.Position)
	assert.Equal(t, carol.CreatedAt.Unix(), updated.CreatedAt.Unix())

	rr = app.do(http.MethodPost, "/employees/edit", url.Values{"id": {idString(carol.ID)}, "name": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Name is required.")

	rr = app.do(http.MethodPost, "/employees/edit", url.Values{"id": {idString(carol.ID)}, "name": {"   "}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Employee name is required.")

	rr = app.do(http.MethodGet, "/employees/edit?id=9999", nil)
	assert.Equal(t, "/employees?error=Employee+not+found", rr.Header().Get("Location"))
	rr = app.do(http.MethodGet, "/employees/edit?id=x", nil)
	assert.Equal(t, "/employees?error=Invalid+employee+ID", rr.Header().Get("Location"))

	rr = app.do(http.MethodPost, "/employees/delete", url.Values{"id": {idString(carol.ID)}})
	assert.Equal(t, "/employees?success=Employee+deleted", rr.Header().Get("Location"))

	entries, err := app.store.ListEntries(context.Background(), models.EntryFilter{}, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseFilter(t *testing.T) {
	f, ok := parseFilter(url.Values{"employee": {"3"}, "start_date": {"2024-01-01"}, "year": {"2024"}, "month": {"2"}})
	require.True(t, ok)
	assert.Equal(t, uint(3), f.EmployeeID)
	require.NotNil(t, f.StartDate)
	assert.Equal(t, day(2024, 1, 1), *f.StartDate)
	assert.Nil(t, f.EndDate)
	assert.Equal(t, 2024, f.Year)
	assert.Equal(t, 2, f.Month)

	f, ok = parseFilter(url.Values{})
	assert.True(t, ok)
	assert.True(t, f.IsZero())

	for _, q := range []url.Values{
		{"month": {"0"}},
		{"year": {"1969"}},
		{"employee": {"x"}},
		{"end_date": {"2024-02-30"}},
	} {
		f, ok := parseFilter(q)
		assert.False(t, ok, q.Encode())
		assert.True(t, f.IsZero())
	}
}
