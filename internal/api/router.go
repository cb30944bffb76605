package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(app.logger()))
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)
	if app.Metrics != nil {
		r.Handle("/metrics", app.Metrics)
	}

	r.Route("/tours", func(r chi.Router) {
		r.Get("/", app.ListToursHandler)
		r.Post("/", app.StartTourHandler)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.GetTourHandler)
			r.Get("/events", app.TourEventsHandler)
			r.Get("/video", app.StreamTourVideoHandler)
			r.Get("/clips/{label}", app.StreamClipHandler)
		})
	})

	r.Get("/usage", app.UsageHandler)

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
