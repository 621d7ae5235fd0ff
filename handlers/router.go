package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"workhours/config"
	"workhours/database"
	"workhours/middleware"
	"workhours/web"
)

// NewRouter wires every page of the application.
func NewRouter(cfg *config.Config, store *database.Store, auth *middleware.Authenticator, views *web.Renderer, log *zap.Logger) http.Handler {
	authHandler := NewAuthHandler(store, auth, views, log)
	entryHandler := NewEntryHandler(store, views, log, cfg.EntryListLimit)
	employeeHandler := NewEmployeeHandler(store, views, log)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestLogger(log))
	router.Use(chimiddleware.Recoverer)

	// Public routes
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	router.Get("/login", authHandler.LoginPage)
	router.Post("/login", authHandler.Login)

	// Protected routes
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware)

		// Logout (doesn't need password change check)
		r.Get("/logout", authHandler.Logout)

		// Password change routes (accessible even when password change required)
		r.Get("/change-password", authHandler.ChangePasswordPage)
		r.Post("/change-password", authHandler.ChangePassword)

		// Routes that require password to be changed first
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePasswordChange)

			r.Get("/dashboard", entryHandler.Dashboard)
			r.Get("/analytics", entryHandler.Analytics)
			r.Get("/export/csv", entryHandler.ExportCSV)

			r.Get("/entries", entryHandler.ListEntries)
			r.Get("/entries/new", entryHandler.NewEntryPage)
			r.Post("/entries/new", entryHandler.CreateEntry)
			r.Get("/entries/edit", entryHandler.EditEntryPage)
			r.Post("/entries/edit", entryHandler.UpdateEntry)
			r.Get("/entries/delete", entryHandler.DeleteEntryPage)
			r.Post("/entries/delete", entryHandler.DeleteEntry)

			r.Get("/employees", employeeHandler.EmployeesPage)
			r.Post("/employees", employeeHandler.CreateEmployee)
			r.Get("/employees/edit", employeeHandler.EditEmployeePage)
			r.Post("/employees/edit", employeeHandler.UpdateEmployee)
			r.Post("/employees/delete", employeeHandler.DeleteEmployee)
		})
	})

	return router
}
