package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"runwayproxy/internal/http/handlers"
	"runwayproxy/internal/middleware"
)

func NewRouter(app *handlers.App, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
	)
	r.Use(middleware.Logger(logger))
	// CORS answers OPTIONS preflights itself, before routing.
	r.Use(middleware.CORS())

	r.Get("/healthz", app.Health)
	r.Post("/ai", app.AI)

	return r
}
