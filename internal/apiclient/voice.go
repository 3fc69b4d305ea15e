package apiclient

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/park285/famhub/pkg/famdto"
	"github.com/valyala/fasthttp"
)

// Health returns the health body. A degraded server answers 503 with the
// same body, which is returned without an error.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.doJSON(ctx, fasthttp.MethodGet, "/api/health", nil, &out, false)
	var se *StatusError
	if errors.As(err, &se) && se.Status == fasthttp.StatusServiceUnavailable {
		if jerr := json.Unmarshal([]byte(se.Body), &out); jerr == nil {
			return out, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Heartbeat(ctx context.Context) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/api/user/heartbeat", nil, nil, true)
}

func (c *Client) Online(ctx context.Context) ([]string, error) {
	var out famdto.OnlineResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/user/online", nil, &out, true); err != nil {
		return nil, err
	}
	return out.OnlineUserIDs, nil
}

func (c *Client) InitiateCall(ctx context.Context, toUserID string, offer []byte) (string, error) {
	var out famdto.InitiateCallResponse
	req := famdto.InitiateCallRequest{ToUserID: toUserID, Offer: json.RawMessage(offer)}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/voice/call", req, &out, false); err != nil {
		return "", err
	}
	return out.CallID, nil
}

// CheckIncoming returns the pending call addressed to this user, if any.
func (c *Client) CheckIncoming(ctx context.Context) (*famdto.IncomingCall, error) {
	var out famdto.CheckCallResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/voice/check-call", nil, &out, false); err != nil {
		return nil, err
	}
	return out.Call, nil
}

func (c *Client) CallStatus(ctx context.Context) (famdto.CallStatusResponse, error) {
	var out famdto.CallStatusResponse
	err := c.doJSON(ctx, fasthttp.MethodGet, "/api/voice/call-status", nil, &out, false)
	return out, err
}

func (c *Client) Answer(ctx context.Context, callID string, answer []byte) error {
	req := famdto.AnswerCallRequest{CallID: callID, Answer: json.RawMessage(answer)}
	return c.doJSON(ctx, fasthttp.MethodPost, "/api/voice/answer", req, nil, false)
}

func (c *Client) Decline(ctx context.Context, callID string) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/api/voice/decline", famdto.DeclineCallRequest{CallID: callID}, nil, false)
}

func (c *Client) EndCall(ctx context.Context) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/api/voice/end-call", nil, nil, true)
}

// CancelCall ends only callID and leaves any other live session alone.
func (c *Client) CancelCall(ctx context.Context, callID string) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/api/voice/end-call", famdto.EndCallRequest{CallID: callID}, nil, true)
}
