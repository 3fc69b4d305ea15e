package apiclient

import (
	"context"
	"net/url"

	"github.com/park285/famhub/pkg/famdto"
	"github.com/valyala/fasthttp"
)

func gamePath(kind, rest string) string {
	return "/api/games/" + url.PathEscape(kind) + rest
}

func (c *Client) Players(ctx context.Context, kind string) ([]famdto.Player, error) {
	var out famdto.PlayersResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, gamePath(kind, "/players"), nil, &out, true); err != nil {
		return nil, err
	}
	return out.Players, nil
}

func (c *Client) Invite(ctx context.Context, kind, opponentID string) (string, error) {
	var out famdto.InviteResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(kind, "/invite"), famdto.InviteRequest{OpponentID: opponentID}, &out, false); err != nil {
		return "", err
	}
	return out.InviteID, nil
}

func (c *Client) CheckInvite(ctx context.Context, kind string) (*famdto.Invite, error) {
	var out famdto.CheckInviteResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, gamePath(kind, "/invite/check"), nil, &out, true); err != nil {
		return nil, err
	}
	return out.Invite, nil
}

func (c *Client) RespondInvite(ctx context.Context, kind, inviteID string, accepted bool) (string, error) {
	var out famdto.RespondInviteResponse
	req := famdto.RespondInviteRequest{InviteID: inviteID, Accepted: accepted}
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(kind, "/invite/respond"), req, &out, false); err != nil {
		return "", err
	}
	return out.MatchID, nil
}

func (c *Client) InviteStatus(ctx context.Context, kind, inviteID string) (famdto.InviteStatusResponse, error) {
	var out famdto.InviteStatusResponse
	err := c.doJSON(ctx, fasthttp.MethodGet, gamePath(kind, "/invite/status/"+url.PathEscape(inviteID)), nil, &out, true)
	return out, err
}

func (c *Client) Match(ctx context.Context, kind, matchID string) (*famdto.Match, error) {
	var out famdto.MatchResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, gamePath(kind, "/match/"+url.PathEscape(matchID)), nil, &out, true); err != nil {
		return nil, err
	}
	return out.Match, nil
}

// Move submits a move. moveNumber is the move count observed before it, so
// the call is safe to repeat.
func (c *Client) Move(ctx context.Context, kind, matchID string, index, moveNumber int) (*famdto.Match, error) {
	var out famdto.MoveResponse
	req := famdto.MoveRequest{MatchID: matchID, Index: index, MoveNumber: &moveNumber}
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(kind, "/move"), req, &out, true); err != nil {
		return nil, err
	}
	return out.Match, nil
}

func (c *Client) Finish(ctx context.Context, kind, matchID string) (*famdto.Match, error) {
	var out famdto.MoveResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(kind, "/finish"), famdto.FinishRequest{MatchID: matchID}, &out, true); err != nil {
		return nil, err
	}
	return out.Match, nil
}
