package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tracker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tracker/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/tracker/internal/httpserver/mw"
)

func init() { Register(registerJokes) }

func registerJokes(r chi.Router, d deps.Deps) {
	if d.Jokes == nil {
		return
	}
	limit := mw.RateLimit(mw.RateLimitConfig{
		Name:              "jokes-fetch",
		Burst:             d.RateBurst,
		RefillPerIPPerMin: d.RatePerMin,
		MaxEntries:        10000,
		TrustProxy:        d.TrustProxy,
		Log:               d.Logger,
	})

	r.Route("/api/jokes", func(r chi.Router) {
		r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger), apiTimeout(d))
		r.Get("/", handlers.ListJokes(d))
		r.With(limit).Post("/fetch", handlers.FetchJokes(d))
		r.Delete("/{id}", handlers.DeleteJoke(d))
	})
}
