package routers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/IamSiddharthChoudhary/Assessly/internal/api"
	"github.com/IamSiddharthChoudhary/Assessly/internal/metrics"
)

func New(h *api.Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
		metrics.Middleware,
	)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/execute", h.Execute)
		r.Get("/languages", h.ListLanguages)
		r.Get("/webrtc/config", h.GetWebRTCConfig)

		r.Post("/interviews", h.CreateInterview)
		r.Get("/rooms/{roomToken}", h.GetInterviewByRoomToken)
		r.Post("/rooms/{roomToken}/join", h.JoinRoom)
		r.Post("/interviews/{id}/end", h.EndInterview)
		r.Post("/interviews/{id}/cancel", h.CancelInterview)

		r.Get("/interviews/{id}/chat", h.ChatWS)
		r.Get("/interviews/{id}/session", h.SessionWS)
		r.Get("/interviews/{id}/signaling", h.SignalingWS)
	})

	return r
}
