package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"folio/internal/apperr"
	"folio/internal/identity"
	"folio/internal/middleware"
	"folio/internal/render"
	"folio/internal/session"
)

// Auth groups the login, registration and logout handlers.
type Auth struct {
	renderer *render.Renderer
	sessions SessionManager
	identity identity.Provider
}

// NewAuth creates a new Auth handler group.
func NewAuth(renderer *render.Renderer, sessions SessionManager, provider identity.Provider) *Auth {
	return &Auth{
		renderer: renderer,
		sessions: sessions,
		identity: provider,
	}
}

// LoginPage renders the login form.
func (a *Auth) LoginPage(w http.ResponseWriter, r *http.Request) {
	redirectTo := safeRedirect(r.URL.Query().Get("redirectTo"))
	if middleware.SessionFromCtx(r.Context()) != nil {
		http.Redirect(w, r, redirectTo, http.StatusSeeOther)
		return
	}
	a.renderer.Page(w, r, "login", &render.PageData{
		Title: "Sign in",
		Data:  map[string]any{"RedirectTo": redirectTo},
	})
}

// LoginSubmit checks the credentials and starts a session.
func (a *Auth) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	redirectTo := safeRedirect(r.FormValue("redirectTo"))

	page := &render.PageData{
		Title: "Sign in",
		Data:  map[string]any{"Email": email, "RedirectTo": redirectTo},
	}

	user, err := a.identity.Authenticate(r.Context(), email, password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		slog.Warn("login failed", "email", email, "ip", r.RemoteAddr)
		page.Error = "Invalid email or password."
		a.renderer.PageStatus(w, r, http.StatusUnauthorized, "login", page)
		return
	}
	if err != nil {
		logFailure(r, "login", err)
		page.Error = msgTryAgain
		a.renderer.PageStatus(w, r, http.StatusInternalServerError, "login", page)
		return
	}

	if !a.startSession(w, r, session.FromUser(user), page, "login") {
		return
	}
	slog.Info("user logged in", "user_id", user.ID)
	http.Redirect(w, r, redirectTo, http.StatusSeeOther)
}

// RegisterPage renders the registration form.
func (a *Auth) RegisterPage(w http.ResponseWriter, r *http.Request) {
	redirectTo := safeRedirect(r.URL.Query().Get("redirectTo"))
	if middleware.SessionFromCtx(r.Context()) != nil {
		http.Redirect(w, r, redirectTo, http.StatusSeeOther)
		return
	}
	a.renderer.Page(w, r, "register", &render.PageData{
		Title: "Register",
		Data:  map[string]any{"RedirectTo": redirectTo},
	})
}

// RegisterSubmit creates an author account and signs the new user in.
func (a *Auth) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	displayName := strings.TrimSpace(r.FormValue("display_name"))
	redirectTo := safeRedirect(r.FormValue("redirectTo"))

	page := &render.PageData{
		Title: "Register",
		Data: map[string]any{
			"Email":       email,
			"DisplayName": displayName,
			"RedirectTo":  redirectTo,
		},
	}

	user, err := a.identity.Register(r.Context(), email, r.FormValue("password"), displayName)
	if err != nil {
		if v, ok := apperr.AsValidation(err); ok {
			page.Errors = v.Fields
			a.renderer.PageStatus(w, r, http.StatusUnprocessableEntity, "register", page)
			return
		}
		logFailure(r, "register", err)
		page.Error = msgTryAgain
		a.renderer.PageStatus(w, r, http.StatusInternalServerError, "register", page)
		return
	}

	if !a.startSession(w, r, session.FromUser(user), page, "register") {
		return
	}
	render.SetFlash(w, "success", "Welcome to Folio, "+user.DisplayName+".")
	http.Redirect(w, r, redirectTo, http.StatusSeeOther)
}

// Logout destroys the session and returns to the home page.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Error("session destroy failed", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *Auth) startSession(w http.ResponseWriter, r *http.Request, data *session.Data, page *render.PageData, name string) bool {
	if _, err := a.sessions.Create(r.Context(), w, data); err != nil {
		slog.Error("session create failed", "error", err, "user_id", data.UserID)
		page.Error = msgTryAgain
		a.renderer.PageStatus(w, r, http.StatusInternalServerError, name, page)
		return false
	}
	return true
}
