package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/sujkovic/kevin-authenticated-db/internal/auth"
	"github.com/sujkovic/kevin-authenticated-db/internal/handlers"
	"github.com/sujkovic/kevin-authenticated-db/internal/session"
	"github.com/sujkovic/kevin-authenticated-db/internal/storage"
)

func main() {
	port := getEnv("PORT", "3000")
	dbPath := getEnv("DB_PATH", "auth.db")
	secureCookies := os.Getenv("SECURE_COOKIES") == "true"

	sessionDuration := session.DefaultDuration
	if days, err := strconv.Atoi(os.Getenv("SESSION_DAYS")); err == nil && days > 0 {
		sessionDuration = time.Duration(days) * 24 * time.Hour
	}

	hashCost := auth.DefaultCost
	if cost, err := strconv.Atoi(os.Getenv("BCRYPT_COST")); err == nil && cost > 0 {
		hashCost = cost
	}

	db, err := storage.NewDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	sessions := session.NewManager(db, sessionDuration, secureCookies)
	h := handlers.NewHandlers(db, sessions, "web/templates", hashCost)

	// Sweep expired sessions hourly so the table does not grow unbounded.
	go func() {
		for range time.Tick(time.Hour) {
			if err := db.CleanExpiredSessions(); err != nil {
				log.Printf("Failed to clean expired sessions: %v", err)
			}
		}
	}()

	handler := setupRouter(h, sessions, "web/static")

	log.Printf("Server started on port %s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// setupRouter registers all routes and wraps them with the identity middleware.
func setupRouter(h *handlers.Handlers, sessions *session.Manager, staticDir string) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("GET /sign-up", h.SignUpForm)
	mux.HandleFunc("POST /sign-up", h.SignUp)
	mux.HandleFunc("POST /log-in", h.LogIn)
	mux.HandleFunc("GET /log-out", h.LogOut)

	return sessions.WithUser(mux)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
