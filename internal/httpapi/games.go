package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/park285/famhub/internal/games"
	"github.com/park285/famhub/pkg/famdto"
)

type kindKey struct{}

func withKind(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind, err := games.ParseKind(chi.URLParam(r, "kind"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), kindKey{}, kind)))
	})
}

func kindFrom(r *http.Request) games.Kind {
	k, _ := r.Context().Value(kindKey{}).(games.Kind)
	return k
}

func (h *Handler) players(w http.ResponseWriter, r *http.Request) {
	players, err := h.Games.ListPlayers(r.Context(), identityFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, famdto.PlayersResponse{Players: players})
}

func (h *Handler) sendInvite(w http.ResponseWriter, r *http.Request) {
	var req famdto.InviteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := identityFrom(r.Context())
	inv, err := h.Games.SendInvite(r.Context(), kindFrom(r), id.UserID, h.displayName(r, id), req.OpponentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, famdto.InviteResponse{Success: true, InviteID: inv.ID})
}

func (h *Handler) checkInvite(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Games.CheckInvite(r.Context(), kindFrom(r), identityFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, famdto.CheckInviteResponse{Invite: inv.DTO()})
}

func (h *Handler) respondInvite(w http.ResponseWriter, r *http.Request) {
	var req famdto.RespondInviteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := identityFrom(r.Context())
	inv, err := h.Games.RespondInvite(r.Context(), kindFrom(r), req.InviteID, id.UserID, h.displayName(r, id), req.Accepted)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, famdto.RespondInviteResponse{Success: true, MatchID: inv.MatchID})
}

func (h *Handler) inviteStatus(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Games.InviteStatus(r.Context(), kindFrom(r), chi.URLParam(r, "inviteId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if inv == nil {
		writeJSON(w, http.StatusOK, famdto.InviteStatusResponse{Exists: false})
		return
	}
	writeJSON(w, http.StatusOK, famdto.InviteStatusResponse{Exists: true, Status: string(inv.Status), MatchID: inv.MatchID})
}

func (h *Handler) pollMatch(w http.ResponseWriter, r *http.Request) {
	m, err := h.Games.PollMatch(r.Context(), kindFrom(r), chi.URLParam(r, "id"), identityFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, famdto.MatchResponse{Match: m.DTO()})
}

func (h *Handler) submitMove(w http.ResponseWriter, r *http.Request) {
	var req famdto.MoveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.Games.SubmitMove(r.Context(), kindFrom(r), req.MatchID, identityFrom(r.Context()).UserID, req.Index, req.MoveNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, famdto.MoveResponse{Success: true, Match: m.DTO()})
}

func (h *Handler) finishMatch(w http.ResponseWriter, r *http.Request) {
	var req famdto.FinishRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.Games.FinishMatch(r.Context(), kindFrom(r), req.MatchID, identityFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, famdto.MoveResponse{Success: true, Match: m.DTO()})
}

// displayName prefers the account store over the request header.
func (h *Handler) displayName(r *http.Request, id Identity) string {
	if h.Users != nil {
		if n, err := h.Users.DisplayName(r.Context(), id.UserID); err == nil && n != "" {
			return n
		}
	}
	return id.Name
}
