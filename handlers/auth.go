package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"workhours/apperror"
	"workhours/database"
	"workhours/middleware"
	"workhours/web"
)

const (
	msgInvalidCredentials = "Please enter a correct username and password."
	msgNotStaff           = "You do not have permission to access the admin area."
)

type AuthHandler struct {
	store *database.Store
	auth  *middleware.Authenticator
	views *web.Renderer
	log   *zap.Logger
}

func NewAuthHandler(store *database.Store, auth *middleware.Authenticator, views *web.Renderer, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		store: store,
		auth:  auth,
		views: views,
		log:   log,
	}
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get("next")
	if _, err := h.auth.Authenticate(r); err == nil {
		http.Redirect(w, r, middleware.SafeRedirect(next, "/dashboard"), http.StatusSeeOther)
		return
	}

	h.renderLogin(w, http.StatusOK, next, r.URL.Query().Get("error"))
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, status int, next, message string) {
	h.views.Render(w, status, "login", map[string]interface{}{
		"Next":  next,
		"Error": message,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, http.StatusBadRequest, "", "Invalid form data")
		return
	}

	form := loginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
		Next:     r.PostFormValue("next"),
	}
	if err := validate.Struct(form); err != nil {
		h.renderLogin(w, http.StatusUnprocessableEntity, form.Next, apperror.Message(validationError(err), msgInvalidCredentials))
		return
	}

	user, err := h.store.FindUserByUsername(r.Context(), form.Username)
	if err != nil {
		if !apperror.IsNotFound(err) {
			h.log.Error("look up user", zap.String("username", form.Username), zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		h.renderLogin(w, http.StatusUnauthorized, form.Next, msgInvalidCredentials)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.Password)); err != nil {
		h.renderLogin(w, http.StatusUnauthorized, form.Next, msgInvalidCredentials)
		return
	}

	if !user.CanSignIn() {
		h.log.Warn("sign-in refused", zap.String("username", user.Username))
		h.renderLogin(w, http.StatusForbidden, form.Next, msgNotStaff)
		return
	}

	if err := h.auth.SetSession(w, user); err != nil {
		h.log.Error("issue session token", zap.Error(err))
		h.renderLogin(w, http.StatusInternalServerError, form.Next, "Failed to generate token")
		return
	}
	h.log.Info("user signed in", zap.String("username", user.Username))

	if user.MustChangePassword {
		http.Redirect(w, r, "/change-password", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, middleware.SafeRedirect(form.Next, "/dashboard"), http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearSession(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) ChangePasswordPage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	data := map[string]interface{}{
		"User":  user,
		"Error": r.URL.Query().Get("error"),
	}
	h.views.Render(w, http.StatusOK, "change-password", data)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/change-password", "error", "Invalid form data")
		return
	}

	form := passwordForm{
		CurrentPassword: r.PostFormValue("current_password"),
		NewPassword:     r.PostFormValue("new_password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}

	// Verify current password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.CurrentPassword)); err != nil {
		redirectWith(w, r, "/change-password", "error", "Current password is incorrect")
		return
	}

	if err := validate.Struct(form); err != nil {
		redirectWith(w, r, "/change-password", "error", apperror.Message(validationError(err), "Invalid form data"))
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(form.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		redirectWith(w, r, "/change-password", "error", "Failed to hash password")
		return
	}

	user.PasswordHash = string(hashedPassword)
	user.MustChangePassword = false
	if err := h.store.SaveUser(r.Context(), user); err != nil {
		h.log.Error("save password", zap.String("username", user.Username), zap.Error(err))
		redirectWith(w, r, "/change-password", "error", "Failed to update password")
		return
	}

	// Regenerate token with updated user info
	if err := h.auth.SetSession(w, user); err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	redirectWith(w, r, "/dashboard", "success", "Password changed")
}
