package famdto

import (
	"encoding/json"
	"time"
)

// Call states as reported to pollers.
const (
	CallPending    = "pending"
	CallAccepted   = "accepted"
	CallDeclined   = "declined"
	CallSuperseded = "superseded"
	CallNone       = "none"
)

type OnlineResponse struct {
	OnlineUserIDs []string `json:"onlineUserIds"`
}

// Offer and Answer are opaque session descriptions; the server never inspects them.
type InitiateCallRequest struct {
	ToUserID string          `json:"toUserId"`
	Offer    json.RawMessage `json:"offer"`
}

type InitiateCallResponse struct {
	Success bool   `json:"success"`
	CallID  string `json:"callId"`
}

type IncomingCall struct {
	CallID     string          `json:"callId"`
	CallerID   string          `json:"callerId"`
	CallerName string          `json:"callerName"`
	Offer      json.RawMessage `json:"offer"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type CheckCallResponse struct {
	Call *IncomingCall `json:"call"`
}

type CallStatusResponse struct {
	Status string          `json:"status"`
	CallID string          `json:"callId,omitempty"`
	Answer json.RawMessage `json:"answer,omitempty"`
}

type AnswerCallRequest struct {
	CallID string          `json:"callId"`
	Answer json.RawMessage `json:"answer"`
}

type DeclineCallRequest struct {
	CallID string `json:"callId"`
}

// EndCallRequest is optional. An empty CallID ends every live session of the user.
type EndCallRequest struct {
	CallID string `json:"callId,omitempty"`
}
