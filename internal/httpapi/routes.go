package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-champ-roulette/internal/ws"
)

func SetupRoutes(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.NewCode == nil {
		d.NewCode = GenerateCode
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Post("/games", CreateGame(d))
	r.Route("/games/{code}", func(r chi.Router) {
		r.Get("/", GetGame(d))
		r.Put("/", UpdateGame(d))
		r.Post("/reroll", Reroll(d))
	})
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(d.Hub, d.Log))
	return r
}
