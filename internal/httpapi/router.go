// Package httpapi exposes signaling, presence and games over HTTP+JSON.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/park285/famhub/internal/games"
	"github.com/park285/famhub/internal/obslog"
	"github.com/park285/famhub/internal/signaling"
	"go.uber.org/zap"
)

// Users records who is active so they show up in player lists.
type Users interface {
	TouchUser(ctx context.Context, id, name string) error
	DisplayName(ctx context.Context, id string) (string, error)
}

// Check is a named readiness check reported by /api/health.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

type Handler struct {
	Signaling *signaling.Service
	Games     *games.Coordinator
	Users     Users
	Checks    []Check
	log       *zap.Logger
}

func NewHandler(sig *signaling.Service, g *games.Coordinator, users Users, checks ...Check) *Handler {
	return &Handler{
		Signaling: sig,
		Games:     g,
		Users:     users,
		Checks:    checks,
		log:       obslog.Named("http"),
	}
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/api/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(requireUser)

		r.Post("/api/user/heartbeat", h.heartbeat)
		r.Get("/api/user/online", h.online)

		r.Route("/api/voice", func(r chi.Router) {
			r.Post("/call", h.initiateCall)
			r.Get("/check-call", h.checkCall)
			r.Get("/call-status", h.callStatus)
			r.Post("/answer", h.answerCall)
			r.Post("/decline", h.declineCall)
			r.Post("/end-call", h.endCall)
		})

		r.Route("/api/games/{kind}", func(r chi.Router) {
			r.Use(withKind)
			r.Get("/players", h.players)
			r.Post("/invite", h.sendInvite)
			r.Get("/invite/check", h.checkInvite)
			r.Post("/invite/respond", h.respondInvite)
			r.Get("/invite/status/{inviteId}", h.inviteStatus)
			r.Get("/match/{id}", h.pollMatch)
			r.Post("/move", h.submitMove)
			r.Post("/finish", h.finishMatch)
		})
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	status := http.StatusOK
	checks := make(map[string]string, len(h.Checks))
	for _, c := range h.Checks {
		if err := c.Fn(ctx); err != nil {
			checks[c.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[c.Name] = "ok"
	}
	body := map[string]any{"status": "ok", "checks": checks}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	writeJSON(w, status, body)
}
