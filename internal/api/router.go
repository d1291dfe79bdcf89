package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/checkflow/internal/api/handlers"
	"github.com/baharkarakas/checkflow/internal/auth"
	"github.com/baharkarakas/checkflow/internal/config"
	"github.com/baharkarakas/checkflow/internal/metrics"
	"github.com/baharkarakas/checkflow/internal/middleware"
	"github.com/baharkarakas/checkflow/internal/services"
)

type RouterDeps struct {
	Cfg      config.Config
	Tokens   *auth.TokenManager
	Parties  *services.PartyService
	Commands *services.CommandService
	Audit    *services.AuditService
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
	}))

	// health & metrics
	r.Get("/health", handlers.Health)
	r.Handle("/metrics", metrics.Handler())

	authH := handlers.NewAuthHandler(d.Tokens, d.Parties)
	checkH := handlers.NewCheckHandler(d.Commands, d.Audit)
	authMW := middleware.NewAuthMiddleware(d.Tokens, d.Cfg.Env)
	limit := middleware.RateLimit(d.Cfg.RateRPS)

	r.Route("/api/v1", func(r chi.Router) {
		// ---------- auth ----------
		r.Group(func(r chi.Router) {
			r.Use(limit)
			r.Post("/auth/register", authH.Register)
			r.Post("/auth/login", authH.Login)
			r.Post("/auth/refresh", authH.Refresh)
		})

		// ---------- authenticated ----------
		r.Group(func(r chi.Router) {
			r.Use(authMW.Auth, limit)

			r.Get("/me", authH.Me)
			r.Get("/balance", checkH.Balance)
			r.Get("/history", checkH.History)

			r.Get("/checks", checkH.List)
			r.Post("/checks", checkH.Issue)
			r.Post("/checks/accept", checkH.Accept)
			r.Post("/checks/deny", checkH.Deny)
			r.Post("/checks/revoke", checkH.Revoke)
			r.Post("/checks/{id}/accept", checkH.AcceptOne)
			r.Post("/checks/{id}/deny", checkH.DenyOne)
			r.Post("/checks/{id}/forward", checkH.Forward)
			r.Post("/checks/{id}/revoke", checkH.RevokeOne)

			r.Post("/commands", checkH.Command)
		})
	})

	return r
}
