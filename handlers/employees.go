package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"workhours/apperror"
	"workhours/database"
	"workhours/middleware"
	"workhours/models"
	"workhours/web"
)

type EmployeeHandler struct {
	store *database.Store
	views *web.Renderer
	log   *zap.Logger
}

func NewEmployeeHandler(store *database.Store, views *web.Renderer, log *zap.Logger) *EmployeeHandler {
	return &EmployeeHandler{
		store: store,
		views: views,
		log:   log,
	}
}

func (h *EmployeeHandler) EmployeesPage(w http.ResponseWriter, r *http.Request) {
	employees, err := h.store.ListEmployees(r.Context())
	if err != nil {
		h.log.Error("list employees", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data := map[string]interface{}{
		"User":      middleware.GetUserFromContext(r.Context()),
		"Employees": employees,
		"Error":     r.URL.Query().Get("error"),
		"Success":   r.URL.Query().Get("success"),
	}
	h.views.Render(w, http.StatusOK, "employees", data)
}

func (h *EmployeeHandler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/employees", "error", "Invalid form data")
		return
	}

	form := employeeForm{
		Name:     r.PostFormValue("name"),
		Position: r.PostFormValue("position"),
	}
	if err := validate.Struct(form); err != nil {
		redirectWith(w, r, "/employees", "error", apperror.Message(validationError(err), "Invalid form data"))
		return
	}

	employee := models.Employee{Name: form.Name, Position: form.Position}
	if err := h.store.CreateEmployee(r.Context(), &employee); err != nil {
		if apperror.KindOf(err) != 0 {
			redirectWith(w, r, "/employees", "error", apperror.Message(err, "Failed to create employee"))
			return
		}
		h.log.Error("create employee", zap.Error(err))
		redirectWith(w, r, "/employees", "error", "Failed to create employee")
		return
	}

	h.log.Info("employee created", zap.Uint("id", employee.ID), zap.String("name", employee.Name))
	redirectWith(w, r, "/employees", "success", "Employee created")
}

// loadEmployee resolves the id query or form parameter. On failure it has
// already redirected back to the employee list.
func (h *EmployeeHandler) loadEmployee(w http.ResponseWriter, r *http.Request) (*models.Employee, bool) {
	id, err := parseID(r.FormValue("id"))
	if err != nil {
		redirectWith(w, r, "/employees", "error", "Invalid employee ID")
		return nil, false
	}

	employee, err := h.store.GetEmployee(r.Context(), id)
	if err != nil {
		if apperror.IsNotFound(err) {
			redirectWith(w, r, "/employees", "error", "Employee not found")
			return nil, false
		}
		h.log.Error("get employee", zap.Uint("id", id), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	return employee, true
}

func (h *EmployeeHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, employee *models.Employee, form employeeForm, message string) {
	data := map[string]interface{}{
		"User":     middleware.GetUserFromContext(r.Context()),
		"Employee": employee,
		"Form":     form,
		"Error":    message,
	}
	h.views.Render(w, status, "employee-form", data)
}

func (h *EmployeeHandler) EditEmployeePage(w http.ResponseWriter, r *http.Request) {
	employee, ok := h.loadEmployee(w, r)
	if !ok {
		return
	}
	form := employeeForm{Name: employee.Name, Position: employee.Position}
	h.renderForm(w, r, http.StatusOK, employee, form, "")
}

func (h *EmployeeHandler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/employees", "error", "Invalid form data")
		return
	}

	employee, ok := h.loadEmployee(w, r)
	if !ok {
		return
	}

	form := employeeForm{
		Name:     r.PostFormValue("name"),
		Position: r.PostFormValue("position"),
	}
	if err := validate.Struct(form); err != nil {
		h.renderForm(w, r, http.StatusUnprocessableEntity, employee, form, apperror.Message(validationError(err), "Invalid form data"))
		return
	}

	updated := *employee
	updated.Name, updated.Position = form.Name, form.Position
	if err := h.store.UpdateEmployee(r.Context(), &updated); err != nil {
		if apperror.KindOf(err) != 0 {
			h.renderForm(w, r, http.StatusUnprocessableEntity, employee, form, apperror.Message(err, "Failed to update employee"))
			return
		}
		h.log.Error("update employee", zap.Uint("id", employee.ID), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.log.Info("employee updated", zap.Uint("id", updated.ID), zap.String("name", updated.Name))
	redirectWith(w, r, "/employees", "success", "Employee updated")
}

// DeleteEmployee removes the employee together with all of their entries.
func (h *EmployeeHandler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/employees", "error", "Invalid form data")
		return
	}

	id, err := parseID(r.PostFormValue("id"))
	if err != nil {
		redirectWith(w, r, "/employees", "error", "Invalid employee ID")
		return
	}

	if err := h.store.DeleteEmployee(r.Context(), id); err != nil {
		if apperror.IsNotFound(err) {
			redirectWith(w, r, "/employees", "error", "Employee not found")
			return
		}
		h.log.Error("delete employee", zap.Uint("id", id), zap.Error(err))
		redirectWith(w, r, "/employees", "error", "Failed to delete employee")
		return
	}

	h.log.Info("employee deleted", zap.Uint("id", id))
	redirectWith(w, r, "/employees", "success", "Employee deleted")
}
