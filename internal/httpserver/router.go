package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lingochat/internal/config"
	"lingochat/internal/security"
	"lingochat/internal/service"
	"lingochat/internal/store/sqlite"
	"lingochat/internal/translate"
	"lingochat/internal/ws"
)

// NewRouter constructs the main HTTP router and wires routes, services, and middleware.
func NewRouter(
	cfg *config.Config,
	db *sql.DB,
	hub *ws.Hub,
	tokenSvc *security.TokenService,
	passwordHasher *security.PasswordHasher,
	encryptor *security.Encryptor,
	translator *translate.Client,
) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Repositories
	userRepo := sqlite.NewUserRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)
	settingsRepo := sqlite.NewSettingsRepo(db)

	// Services
	authSvc := service.NewAuthService(userRepo, settingsRepo, tokenSvc, passwordHasher)
	userSvc := service.NewUserService(userRepo, passwordHasher, cfg.MaxImageBytes)
	msgSvc := service.NewMessageService(msgRepo, userRepo, encryptor, cfg.MaxMessagesPerConversation, cfg.MaxImageBytes)
	settingsSvc := service.NewSettingsService(settingsRepo)

	rateLimited := RateLimitByIP(cfg.AuthRateLimit)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"lingochat API","version":"1.0.0"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Use(rateLimited)
			r.Post("/register", handleRegister(authSvc))
			r.Post("/login", handleLogin(authSvc))
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokenSvc, userRepo))

			r.Post("/auth/logout", handleLogout(authSvc))
			r.Get("/auth/me", handleMe())

			// Profile
			r.Put("/profile", handleUpdateProfile(userSvc))
			r.Put("/profile/password", handleChangePassword(userSvc))

			// Messages
			r.Route("/messages", func(r chi.Router) {
				r.Get("/contacts", handleContacts(userSvc))
				r.Get("/chats", handleChatPartners(userSvc))
				r.Get("/{userID}", handleHistory(msgSvc))
				r.Post("/send/{userID}", handleSendMessage(msgSvc, hub))
			})

			// Settings
			r.Route("/settings", func(r chi.Router) {
				r.Get("/", handleGetSettings(settingsSvc))
				r.Put("/", handleUpdateSettings(settingsSvc))
				r.Get("/user/{userID}", handleCounterpartLanguage(settingsSvc))
			})

			// Translation proxy
			r.Route("/translate", func(r chi.Router) {
				r.Use(rateLimited)
				r.Post("/", handleTranslate(translator, settingsSvc))
				r.Post("/detect", handleDetect(translator, settingsSvc))
			})
		})
	})

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(hub, tokenSvc, userRepo, cfg.CORSOrigins))

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
