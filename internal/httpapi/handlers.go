package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/boss-battle-client/internal/badges"
	"github.com/DoyleJ11/boss-battle-client/internal/battle"
	"github.com/DoyleJ11/boss-battle-client/internal/effects"
	"github.com/DoyleJ11/boss-battle-client/internal/engine"
	"github.com/DoyleJ11/boss-battle-client/internal/hub"
)

type StateResponse struct {
	battle.View
	Badges  []badges.Item      `json:"badges"`
	Numbers []effects.Floating `json:"damageNumbers"`
}

type AnswerRequest struct {
	QuestionID   string `json:"questionId"`
	DisplayIndex int    `json:"displayIndex"`
}

type ReviveRequest struct {
	Code string `json:"code"`
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps rejections to HTTP codes. Conflicts are about timing, 422s
// about the request itself.
func statusFor(err error) int {
	switch {
	case errors.Is(err, hub.ErrNotMounted):
		return http.StatusNotFound
	case errors.Is(err, battle.ErrClosed):
		return http.StatusGone
	case errors.Is(err, engine.ErrUnknownChoice),
		errors.Is(err, engine.ErrInvalidReviveCode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrNotAnswerable),
		errors.Is(err, engine.ErrStaleQuestion),
		errors.Is(err, engine.ErrPlayerDead),
		errors.Is(err, engine.ErrReviveInFlight),
		errors.Is(err, engine.ErrLeft),
		errors.Is(err, engine.ErrNotMounted):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Error: err.Error()})
}

func lookup(h *hub.Hub, w http.ResponseWriter, r *http.Request) (*battle.Battle, bool) {
	b, err := h.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeErr(w, err)
		return nil, false
	}
	return b, true
}

func ListSessions(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys, err := h.List(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Sessions []string `json:"sessions"`
		}{Sessions: keys})
	}
}

func GetState(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := lookup(h, w, r)
		if !ok {
			return
		}
		v, err := b.State(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, StateResponse{View: v, Badges: b.Badges(), Numbers: b.Numbers()})
	}
}

func SubmitAnswer(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnswerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		b, ok := lookup(h, w, r)
		if !ok {
			return
		}
		err := b.Handle(r.Context(), engine.SubmitAnswer{QuestionID: req.QuestionID, DisplayIndex: req.DisplayIndex})
		if err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func Revive(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReviveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		b, ok := lookup(h, w, r)
		if !ok {
			return
		}
		if err := b.Handle(r.Context(), engine.SubmitRevivalCode{Code: req.Code}); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// Leave tells the server we are going, then unmounts the screen.
func Leave(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		b, ok := lookup(h, w, r)
		if !ok {
			return
		}
		if err := b.Handle(r.Context(), engine.Leave{}); err != nil && !errors.Is(err, engine.ErrLeft) {
			log.Warn("leave rejected", zap.String("session_key", key), zap.Error(err))
		}
		if err := h.Unmount(r.Context(), key); err != nil && !errors.Is(err, hub.ErrNotMounted) {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Watch streams every state version as a server-sent event until the client
// goes away or the screen is unmounted.
func Watch(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := lookup(h, w, r)
		if !ok {
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		id := uuid.NewString()
		outbox := make(chan battle.View, 16)
		if err := b.Watch(id, outbox); err != nil {
			writeErr(w, err)
			return
		}
		defer b.Unwatch(id)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-b.Done():
				return
			case v, open := <-outbox:
				if !open {
					return
				}
				data, err := json.Marshal(v)
				if err != nil {
					return
				}
				if _, err := fmt.Fprintf(w, "id: %d\nevent: state\ndata: %s\n\n", v.Version, data); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
