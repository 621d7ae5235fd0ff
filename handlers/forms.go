package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"workhours/apperror"
	"workhours/models"
	"workhours/worktime"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if label := f.Tag.Get("label"); label != "" {
			return label
		}
		return f.Name
	})
	return v
}

type loginForm struct {
	Username string `validate:"required" label:"Username"`
	Password string `validate:"required" label:"Password"`
	Next     string
}

type passwordForm struct {
	CurrentPassword string `validate:"required" label:"Current password"`
	NewPassword     string `validate:"required,min=5" label:"New password"`
	ConfirmPassword string `validate:"required,eqfield=NewPassword" label:"Confirm password"`
}

type employeeForm struct {
	Name     string `validate:"required,max=255" label:"Name"`
	Position string `validate:"max=255" label:"Position"`
}

// entryForm keeps the raw form values so the page can be re-rendered with
// exactly what the user typed.
type entryForm struct {
	EmployeeID string `validate:"required,number" label:"Employee"`
	Date       string `validate:"required,datetime=2006-01-02" label:"Date"`
	StartTime  string `validate:"required" label:"Start time"`
	EndTime    string `validate:"required" label:"End time"`
	ExtraHours string
}

func parseEntryForm(r *http.Request) entryForm {
	return entryForm{
		EmployeeID: strings.TrimSpace(r.PostFormValue("employee")),
		Date:       strings.TrimSpace(r.PostFormValue("date")),
		StartTime:  strings.TrimSpace(r.PostFormValue("start_time")),
		EndTime:    strings.TrimSpace(r.PostFormValue("end_time")),
		ExtraHours: strings.TrimSpace(r.PostFormValue("extra_hours")),
	}
}

func entryFormFrom(e *models.WorkEntry) entryForm {
	return entryForm{
		EmployeeID: strconv.FormatUint(uint64(e.EmployeeID), 10),
		Date:       e.Date.Format(models.DateLayout),
		StartTime:  e.StartTime.Short(),
		EndTime:    e.EndTime.Short(),
		ExtraHours: e.ExtraHours.String(),
	}
}

// newEntryForm holds the defaults of an empty entry form: today, the
// current time as start and 15:30 as end.
func newEntryForm(now time.Time) entryForm {
	return entryForm{
		Date:       now.Format(models.DateLayout),
		StartTime:  now.Format("15:04"),
		EndTime:    "15:30",
		ExtraHours: "0",
	}
}

// apply copies the validated form values onto e. Derived hours are left to
// the model's save hook.
func (f entryForm) apply(e *models.WorkEntry) error {
	if err := validate.Struct(f); err != nil {
		return validationError(err)
	}

	employeeID, err := strconv.ParseUint(f.EmployeeID, 10, 32)
	if err != nil || employeeID == 0 {
		return apperror.Validation("Employee is required.")
	}
	date, err := time.Parse(models.DateLayout, f.Date)
	if err != nil {
		return apperror.Validation("Enter a valid date.")
	}
	start, err := worktime.ParseClock(f.StartTime)
	if err != nil {
		return apperror.Validation("Enter a valid start time.")
	}
	end, err := worktime.ParseClock(f.EndTime)
	if err != nil {
		return apperror.Validation("Enter a valid end time.")
	}
	extra, err := worktime.ParseHours(f.ExtraHours)
	if err != nil {
		return apperror.Validation("Enter a valid number of extra hours.")
	}

	e.EmployeeID = uint(employeeID)
	e.Date = date
	e.StartTime = start
	e.EndTime = end
	e.ExtraHours = extra
	return nil
}

// parseFilter reads the dashboard filter from the query string. ok is false
// when any value is malformed or out of range; the filter is then empty.
func parseFilter(q url.Values) (f models.EntryFilter, ok bool) {
	parseDate := func(key string) (*time.Time, bool) {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			return nil, true
		}
		t, err := time.Parse(models.DateLayout, v)
		if err != nil {
			return nil, false
		}
		return &t, true
	}
	parseInt := func(key string, lo, hi int) (int, bool) {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			return 0, true
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < lo || n > hi {
			return 0, false
		}
		return n, true
	}

	if v := strings.TrimSpace(q.Get("employee")); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return models.EntryFilter{}, false
		}
		f.EmployeeID = uint(id)
	}

	var okStart, okEnd, okYear, okMonth bool
	f.StartDate, okStart = parseDate("start_date")
	f.EndDate, okEnd = parseDate("end_date")
	f.Year, okYear = parseInt("year", 1970, 2100)
	f.Month, okMonth = parseInt("month", 1, 12)
	if !okStart || !okEnd || !okYear || !okMonth {
		return models.EntryFilter{}, false
	}
	return f, true
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || id == 0 {
		return 0, apperror.NotFound("Invalid ID.")
	}
	return uint(id), nil
}

// validationError turns the first failed validator rule into a message a
// user can act on.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.Validation("Invalid form data.")
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return apperror.Validation("%s is required.", fe.Field())
	case "min":
		return apperror.Validation("%s must be at least %s characters.", fe.Field(), fe.Param())
	case "max":
		return apperror.Validation("%s must be at most %s characters.", fe.Field(), fe.Param())
	case "eqfield":
		return apperror.Validation("Passwords do not match.")
	case "datetime":
		return apperror.Validation("Enter a valid %s.", strings.ToLower(fe.Field()))
	default:
		return apperror.Validation("%s is invalid.", fe.Field())
	}
}

func redirectWith(w http.ResponseWriter, r *http.Request, path, key, message string) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	http.Redirect(w, r, fmt.Sprintf("%s%s%s=%s", path, sep, key, url.QueryEscape(message)), http.StatusSeeOther)
}
