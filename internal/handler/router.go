package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mentoria/mentoria-go/internal/middleware"
)

// RouterConfig holds the tunables of the HTTP surface.
type RouterConfig struct {
	CORSOrigins   []string
	AuthRateRPS   float64
	AuthRateBurst int
	LLMRateRPS    float64
	LLMRateBurst  int
	ExposeMetrics bool
}

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth     *AuthHandler
	Profile  *ProfileHandler
	Chat     *ChatHandler
	Quiz     *QuizHandler
	Health   *HealthHandler
	Sessions middleware.SessionValidator
}

// NewRouter builds the chi router for the whole API.
func NewRouter(cfg RouterConfig, h Handlers, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"WWW-Authenticate", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	r.Get("/health", h.Health.HandleHealth)
	r.Get("/ready", h.Health.HandleReady)
	if cfg.ExposeMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.AuthRateRPS, cfg.AuthRateBurst))
		r.Post("/register", h.Auth.HandleRegister)
		r.Post("/login", h.Auth.HandleLogin)
	})
	r.Post("/logout", h.Auth.HandleLogout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(h.Sessions, logger))

		r.Get("/user-info", h.Auth.HandleUserInfo)
		r.Delete("/user/delete-account", h.Auth.HandleDeleteAccount)

		r.Route("/profile", func(r chi.Router) {
			r.Put("/username", h.Profile.HandleUpdateUsername)
			r.Put("/email", h.Profile.HandleUpdateEmail)
			r.Put("/password", h.Profile.HandleUpdatePassword)
			r.Put("/update-all", h.Profile.HandleUpdateAll)
			r.Get("/settings", h.Profile.HandleGetSettings)
			r.Put("/settings", h.Profile.HandleUpdateSettings)
		})

		r.Route("/chats", func(r chi.Router) {
			r.Get("/sessions", h.Chat.HandleListSessions)
			r.Post("/sessions", h.Chat.HandleCreateSession)
			r.Delete("/", h.Chat.HandleDeleteAll)
			r.Get("/{id}/messages", h.Chat.HandleMessages)
			r.Patch("/{id}", h.Chat.HandleRenameSession)
			r.Delete("/{id}", h.Chat.HandleDeleteSession)
		})

		r.Get("/quizzes/recent", h.Quiz.HandleRecent)
		r.Get("/quizzes/{id}", h.Quiz.HandleGet)
		r.Post("/quizzes/{id}/attempt", h.Quiz.HandleAttempt)
		r.Get("/progress/summary", h.Quiz.HandleProgress)

		// Routes that call the model share a tighter limit.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.LLMRateRPS, cfg.LLMRateBurst))
			r.Post("/chat", h.Chat.HandleChat)
			r.Post("/quizzes/generate", h.Quiz.HandleGenerate)
		})
	})

	return r
}
