package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/boss-battle-client/internal/hub"
	"github.com/DoyleJ11/boss-battle-client/internal/metrics"
)

func SetupRoutes(h *hub.Hub, m *metrics.Metrics, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", ListSessions(h))
		r.Route("/{key}", func(r chi.Router) {
			r.Get("/state", GetState(h))
			r.Get("/watch", Watch(h))
			r.Post("/answer", SubmitAnswer(h))
			r.Post("/revive", Revive(h))
			r.Post("/leave", Leave(h, log))
		})
	})
	return r
}
