package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/famhub/internal/calls"
	"github.com/park285/famhub/internal/games"
	"github.com/park285/famhub/internal/presence"
	"github.com/park285/famhub/internal/signaling"
	"github.com/park285/famhub/internal/store"
	"github.com/park285/famhub/pkg/famdto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	t *testing.T
}

func newTestServer(t *testing.T, checks ...Check) *testServer {
	t.Helper()
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb, err := games.OpenRedis(ctx, fmt.Sprintf("redis://%s/0", mr.Addr()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	db, err := store.Open(ctx, "sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tracker := presence.NewTracker(15 * time.Second)
	dir := calls.NewDirectory(calls.DefaultConfig(), calls.WithOnline(tracker.IsOnline))
	sig := signaling.NewService(dir, tracker, db)
	coord := games.NewCoordinator(games.NewStore(rdb, time.Hour), games.WithResults(db), games.WithRoster(db))

	srv := httptest.NewServer(NewHandler(sig, coord, db, checks...).NewRouter())
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, t: t}
}

func (s *testServer) do(method, path, user string, body any, out any) int {
	s.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.URL+path, rd)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(HeaderUserID, user)
		req.Header.Set(HeaderUserName, "name-"+user)
	}
	resp, err := s.Client().Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestMissingUserIsUnauthorized(t *testing.T) {
	s := newTestServer(t)
	var e famdto.ErrorResponse
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/user/online", "", nil, &e))
	assert.Equal(t, famdto.CodeInvalidArgs, e.Error.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Check{Name: "redis", Fn: func(context.Context) error { return nil }})
	var body map[string]any
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/health", "", nil, &body))
	assert.Equal(t, "ok", body["status"])

	bad := newTestServer(t, Check{Name: "db", Fn: func(context.Context) error { return errors.New("down") }})
	assert.Equal(t, http.StatusServiceUnavailable, bad.do(http.MethodGet, "/api/health", "", nil, &body))
	assert.Equal(t, "degraded", body["status"])
}

func TestPresenceOverHTTP(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/user/heartbeat", "u1", nil, nil))
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/user/heartbeat", "u2", nil, nil))

	var online famdto.OnlineResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/user/online", "u1", nil, &online))
	assert.Equal(t, []string{"u1", "u2"}, online.OnlineUserIDs)

	var players famdto.PlayersResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/games/gebeta/players", "u1", nil, &players))
	require.Len(t, players.Players, 1)
	assert.Equal(t, "name-u2", players.Players[0].Name)
}

func TestCallFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)

	var e famdto.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/voice/call", "u1",
		famdto.InitiateCallRequest{ToUserID: "u1", Offer: json.RawMessage(`{"sdp":"x"}`)}, &e))
	assert.Equal(t, famdto.CodeSelfTarget, e.Error.Code)

	var started famdto.InitiateCallResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/voice/call", "u1",
		famdto.InitiateCallRequest{ToUserID: "u2", Offer: json.RawMessage(`{"sdp":"x"}`)}, &started))
	require.NotEmpty(t, started.CallID)

	var incoming famdto.CheckCallResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/voice/check-call", "u2", nil, &incoming))
	require.NotNil(t, incoming.Call)
	assert.Equal(t, "name-u1", incoming.Call.CallerName)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/voice/answer", "u3",
		famdto.AnswerCallRequest{CallID: started.CallID, Answer: json.RawMessage(`{"sdp":"y"}`)}, &e))

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/voice/answer", "u2",
		famdto.AnswerCallRequest{CallID: started.CallID, Answer: json.RawMessage(`{"sdp":"y"}`)}, nil))
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/voice/answer", "u2",
		famdto.AnswerCallRequest{CallID: started.CallID, Answer: json.RawMessage(`{"sdp":"y"}`)}, &e))
	assert.Equal(t, famdto.CodeInvalidState, e.Error.Code)

	var st famdto.CallStatusResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/voice/call-status", "u1", nil, &st))
	assert.Equal(t, famdto.CallAccepted, st.Status)
	assert.JSONEq(t, `{"sdp":"y"}`, string(st.Answer))

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/voice/end-call", "u1", nil, nil))
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/voice/end-call", "u1", nil, nil))
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/voice/call-status", "u1", nil, &st))
	assert.Equal(t, famdto.CallNone, st.Status)
}

func TestEndCallScopedToCallID(t *testing.T) {
	s := newTestServer(t)

	var in, out famdto.InitiateCallResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/voice/call", "u3",
		famdto.InitiateCallRequest{ToUserID: "u1", Offer: json.RawMessage(`{"sdp":"a"}`)}, &in))
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/voice/call", "u1",
		famdto.InitiateCallRequest{ToUserID: "u2", Offer: json.RawMessage(`{"sdp":"b"}`)}, &out))

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/voice/end-call", "u1",
		famdto.EndCallRequest{CallID: out.CallID}, nil))

	var check famdto.CheckCallResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/voice/check-call", "u2", nil, &check))
	assert.Nil(t, check.Call)
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/voice/check-call", "u1", nil, &check))
	require.NotNil(t, check.Call)
	assert.Equal(t, in.CallID, check.Call.CallID)
}

func TestMalformedBody(t *testing.T) {
	s := newTestServer(t)
	req, err := http.NewRequest(http.MethodPost, s.URL+"/api/voice/call", bytes.NewBufferString("{"))
	require.NoError(t, err)
	req.Header.Set(HeaderUserID, "u1")
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGameFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)

	var e famdto.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/games/chess/players", "u1", nil, &e))

	var inv famdto.InviteResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/games/tictactoe/invite", "u1",
		famdto.InviteRequest{OpponentID: "u2"}, &inv))

	var check famdto.CheckInviteResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/games/tictactoe/invite/check", "u2", nil, &check))
	require.NotNil(t, check.Invite)
	assert.Equal(t, inv.InviteID, check.Invite.ID)

	var resp famdto.RespondInviteResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/games/tictactoe/invite/respond", "u2",
		famdto.RespondInviteRequest{InviteID: inv.InviteID, Accepted: true}, &resp))
	require.NotEmpty(t, resp.MatchID)

	var status famdto.InviteStatusResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/games/tictactoe/invite/status/"+inv.InviteID, "u1", nil, &status))
	assert.True(t, status.Exists)
	assert.Equal(t, "accepted", status.Status)
	assert.Equal(t, resp.MatchID, status.MatchID)

	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/games/tictactoe/move", "u2",
		famdto.MoveRequest{MatchID: resp.MatchID, Index: 0}, &e))

	var mv famdto.MoveResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/games/tictactoe/move", "u1",
		famdto.MoveRequest{MatchID: resp.MatchID, Index: 4}, &mv))
	assert.Equal(t, "X", mv.Match.Cells[4])
	assert.Equal(t, "u2", mv.Match.CurrentTurn)

	var poll famdto.MatchResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/games/tictactoe/match/"+resp.MatchID, "u2", nil, &poll))
	assert.Equal(t, 1, poll.Match.MoveCount)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/games/tictactoe/match/"+resp.MatchID, "u9", nil, &e))

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/games/tictactoe/finish", "u2",
		famdto.FinishRequest{MatchID: resp.MatchID}, &mv))
	assert.True(t, mv.Match.Finished)
	assert.Equal(t, "u1", mv.Match.Winner)

	var players famdto.PlayersResponse
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/games/tictactoe/players", "u2", nil, &players))
	require.Len(t, players.Players, 1)
	assert.Equal(t, 20, players.Players[0].Coins)
}
