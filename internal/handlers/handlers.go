package handlers

import (
	"encoding/base64"
	"errors"
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/sujkovic/kevin-authenticated-db/internal/auth"
	"github.com/sujkovic/kevin-authenticated-db/internal/session"
	"github.com/sujkovic/kevin-authenticated-db/internal/storage"
)

// FlashCookieName is the name of the one-request flash message cookie.
const FlashCookieName = "flash"

// MinPasswordLength is the minimum accepted password length at sign-up.
const MinPasswordLength = 8

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db            *storage.DB
	authenticator *auth.Authenticator
	sessions      *session.Manager
	templateDir   string
	hashCost      int
}

// NewHandlers creates a new Handlers instance. hashCost is the bcrypt work
// factor used when registering new accounts.
func NewHandlers(db *storage.DB, sessions *session.Manager, templateDir string, hashCost int) *Handlers {
	return &Handlers{
		db:            db,
		authenticator: auth.NewAuthenticator(db),
		sessions:      sessions,
		templateDir:   templateDir,
		hashCost:      hashCost,
	}
}

// HomeViewModel holds data for the landing page.
type HomeViewModel struct {
	Username string
	Flash    string
}

// Home renders the landing page, greeting the signed-in user if there is one.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	vm := HomeViewModel{Flash: h.popFlash(w, r)}
	if user := session.UserFromContext(r); user != nil {
		vm.Username = user.Username
	}
	h.render(w, "home.html", vm)
}

// SignUpViewModel holds data for the registration page.
type SignUpViewModel struct {
	Username      string
	Errors        map[string]string
	UsernameTaken bool
}

// SignUpForm renders the registration form.
func (h *Handlers) SignUpForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, "signup.html", SignUpViewModel{})
}

// SignUp handles the registration form submission.
func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, "signup.html", SignUpViewModel{
			Errors: map[string]string{"form": "Invalid form submission"},
		})
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	vm := SignUpViewModel{Username: username, Errors: map[string]string{}}
	if username == "" {
		vm.Errors["username"] = "Username is required"
	}
	if len(password) < MinPasswordLength {
		vm.Errors["password"] = "Password must be at least 8 characters"
	}
	if len(vm.Errors) > 0 {
		h.render(w, "signup.html", vm)
		return
	}

	hash, err := auth.HashPasswordWithCost(password, h.hashCost)
	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if _, err := h.db.CreateUser(username, hash); err != nil {
		if errors.Is(err, storage.ErrUsernameTaken) {
			vm.UsernameTaken = true
			w.WriteHeader(http.StatusUnprocessableEntity)
			h.render(w, "signup.html", vm)
			return
		}
		log.Printf("Failed to create user %q: %v", username, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// LogIn handles the log-in form submission.
func (h *Handlers) LogIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.setFlash(w, "Invalid form submission")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	user, err := h.authenticator.Authenticate(username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.setFlash(w, "Invalid username or password")
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		log.Printf("Login error for %q: %v", username, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.sessions.Establish(w, user.ID); err != nil {
		log.Printf("Failed to establish session for %q: %v", username, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// LogOut destroys the current session.
func (h *Handlers) LogOut(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}

// setFlash attaches a message to the response that survives exactly one
// redirect; the next render pops it.
func (h *Handlers) setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    base64.URLEncoding.EncodeToString([]byte(msg)),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the flash cookie.
func (h *Handlers) popFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	msg, err := base64.URLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return ""
	}
	return string(msg)
}

func (h *Handlers) render(w http.ResponseWriter, viewName string, data any) {
	tmpl, err := template.ParseFiles(filepath.Join(h.templateDir, "base.html"), filepath.Join(h.templateDir, viewName))
	if err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Template execution error: %v", err)
	}
}
