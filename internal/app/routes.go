package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/resumeblast/internal/handler"
	"github.com/resumeblast/internal/web"
)

func (app *App) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/api/health", handler.Health(app.store))

	sessionHandler := handler.NewSessionHandler(
		app.logger,
		app.controller,
		app.tracker,
		web.Templates,
		app.config.OperatorZone,
		app.config.MaxUploadSizeMB,
	)
	r.Get("/", sessionHandler.Form)
	r.Post("/api/session", sessionHandler.Start)
	r.Get("/api/session", sessionHandler.Status)
	r.Get("/api/session/failures.csv", sessionHandler.Failures)

	return r
}
