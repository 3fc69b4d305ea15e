package httpapi

import (
	"net/http"

	"github.com/park285/famhub/pkg/famdto"
	"go.uber.org/zap"
)

func (h *Handler) heartbeat(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	h.Signaling.Heartbeat(id.UserID)
	if h.Users != nil {
		if err := h.Users.TouchUser(r.Context(), id.UserID, id.Name); err != nil {
			// presence does not depend on the account store
			h.log.Warn("user_touch_failed", zap.String("user_id", id.UserID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, famdto.OKResponse{Success: true})
}

func (h *Handler) online(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Signaling.ListOnline())
}

func (h *Handler) initiateCall(w http.ResponseWriter, r *http.Request) {
	var req famdto.InitiateCallRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := identityFrom(r.Context())
	resp, err := h.Signaling.InitiateCall(r.Context(), id.UserID, id.Name, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) checkCall(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Signaling.CheckIncoming(identityFrom(r.Context()).UserID))
}

func (h *Handler) callStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Signaling.OutgoingStatus(identityFrom(r.Context()).UserID))
}

func (h *Handler) answerCall(w http.ResponseWriter, r *http.Request) {
	var req famdto.AnswerCallRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Signaling.Accept(identityFrom(r.Context()).UserID, req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, famdto.OKResponse{Success: true})
}

func (h *Handler) declineCall(w http.ResponseWriter, r *http.Request) {
	var req famdto.DeclineCallRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Signaling.Decline(identityFrom(r.Context()).UserID, req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, famdto.OKResponse{Success: true})
}

func (h *Handler) endCall(w http.ResponseWriter, r *http.Request) {
	var req famdto.EndCallRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user := identityFrom(r.Context()).UserID
	if req.CallID != "" {
		h.Signaling.EndSession(user, req.CallID)
	} else {
		h.Signaling.End(user)
	}
	writeJSON(w, http.StatusOK, famdto.OKResponse{Success: true})
}
