package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/park285/famhub/internal/msgcat"
	"github.com/park285/famhub/internal/poll"
	"github.com/park285/famhub/pkg/famdto"
	"github.com/spf13/cobra"
)

// GameAPI is the part of the API a match needs once it has started.
type GameAPI interface {
	Match(ctx context.Context, kind, matchID string) (*famdto.Match, error)
	Move(ctx context.Context, kind, matchID string, index, moveNumber int) (*famdto.Match, error)
	Finish(ctx context.Context, kind, matchID string) (*famdto.Match, error)
}

var errInviteDeclined = errors.New("invite declined")

func newPlayCmd(a *app) *cobra.Command {
	var (
		wait     time.Duration
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "play <tictactoe|gebeta> [opponent-id]",
		Short: "Invite a player, or wait for an invite, and play the match",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			hb := a.keepAlive(ctx)
			defer hb.Stop()

			kind := strings.ToLower(args[0])
			out := cmd.OutOrStdout()
			var (
				matchID string
				err     error
			)
			if len(args) == 2 {
				matchID, err = a.inviteAndWait(ctx, out, kind, args[1], wait, interval)
			} else {
				matchID, err = a.awaitInvite(ctx, out, kind, wait, interval)
			}
			if err != nil {
				return err
			}
			return runMatch(ctx, a.api, matchSession{
				kind: kind, matchID: matchID, me: a.userID,
				in: bufio.NewReader(a.in), out: out, msgs: a.msgs, interval: interval,
			})
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 2*time.Minute, "how long to wait for an invite or a reply")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "poll interval")
	return cmd
}

func (a *app) inviteAndWait(ctx context.Context, out io.Writer, kind, opponent string, wait, interval time.Duration) (string, error) {
	inviteID, err := a.api.Invite(ctx, kind, opponent)
	if err != nil {
		return "", err
	}
	fmt.Fprintln(out, a.msgs.Text("game.invited", map[string]any{"InviteID": inviteID, "Opponent": opponent}))

	var (
		matchID string
		pollErr error
	)
	if !waitFor(ctx, wait, interval, func(ctx context.Context) bool {
		st, err := a.api.InviteStatus(ctx, kind, inviteID)
		if err != nil {
			return false
		}
		switch {
		case st.Status == "accepted" && st.MatchID != "":
			matchID = st.MatchID
			return true
		case st.Status == "declined":
			pollErr = errInviteDeclined
			return true
		case !st.Exists:
			pollErr = fmt.Errorf("invite %s expired", inviteID)
			return true
		}
		return false
	}) {
		return "", fmt.Errorf("no reply to invite %s", inviteID)
	}
	if errors.Is(pollErr, errInviteDeclined) {
		fmt.Fprintln(out, a.msgs.Text("game.declined", map[string]any{"Opponent": opponent}))
	}
	return matchID, pollErr
}

func (a *app) awaitInvite(ctx context.Context, out io.Writer, kind string, wait, interval time.Duration) (string, error) {
	fmt.Fprintln(out, a.msgs.Text("game.waiting_invite", nil))
	var inv *famdto.Invite
	if !waitFor(ctx, wait, interval, func(ctx context.Context) bool {
		got, err := a.api.CheckInvite(ctx, kind)
		if err != nil || got == nil {
			return false
		}
		inv = got
		return true
	}) {
		return "", errors.New("no invite arrived")
	}
	matchID, err := a.api.RespondInvite(ctx, kind, inv.ID, true)
	if err != nil {
		return "", err
	}
	fmt.Fprintln(out, a.msgs.Text("game.accepted", map[string]any{"InviteID": inv.ID, "From": inv.FromUsername}))
	return matchID, nil
}

// waitFor polls fn until it reports done, and reports false when the
// window or ctx ran out first.
func waitFor(ctx context.Context, window, interval time.Duration, fn poll.Func) bool {
	done := false
	t := poll.Start(ctx, poll.Options{Interval: interval, Window: window, Immediate: true}, func(ctx context.Context) bool {
		done = fn(ctx)
		return done
	})
	<-t.Done()
	return done
}

type matchSession struct {
	kind     string
	matchID  string
	me       string
	in       *bufio.Reader
	out      io.Writer
	msgs     *msgcat.Catalog
	interval time.Duration
}

// runMatch alternates between reading our moves and waiting for the
// opponent until the match finishes. Typing q forfeits.
func runMatch(ctx context.Context, api GameAPI, s matchSession) error {
	m, err := api.Match(ctx, s.kind, s.matchID)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, s.msgs.Text("game.started", map[string]any{
		"MatchID": m.ID, "P1": nameOr(m.Player1Name, m.Player1ID), "P2": nameOr(m.Player2Name, m.Player2ID),
	}))
	settled := false
	for {
		if m.Finished && !settled {
			// finishing a finished match makes the server retry a result
			// write that failed on the winning move
			if m, err = api.Finish(ctx, s.kind, s.matchID); err != nil {
				return fmt.Errorf("record result: %w", err)
			}
			settled = true
		}
		fmt.Fprint(s.out, renderBoard(m))
		if m.Finished {
			fmt.Fprintln(s.out, outcomeText(s.msgs, m, s.me))
			return nil
		}
		if m.CurrentTurn != s.me {
			fmt.Fprintln(s.out, s.msgs.Text("game.their_turn", map[string]any{"Opponent": opponentName(m, s.me)}))
			if m, err = waitForChange(ctx, api, s, m.MoveCount); err != nil {
				return err
			}
			continue
		}

		fmt.Fprint(s.out, s.msgs.Text("game.your_turn", map[string]any{"Prompt": movePrompt(m, s.me)}))
		line, rerr := s.in.ReadString('\n')
		line = strings.TrimSpace(line)
		if rerr != nil && line == "" {
			if errors.Is(rerr, io.EOF) {
				line = "q"
			} else {
				return rerr
			}
		}
		if line == "q" || line == "quit" {
			if m, err = api.Finish(ctx, s.kind, s.matchID); err != nil {
				return err
			}
			settled = true
			continue
		}
		idx, perr := strconv.Atoi(line)
		if perr != nil {
			fmt.Fprintln(s.out, s.msgs.Text("game.bad_input", map[string]any{"Input": line}))
			continue
		}
		next, err := api.Move(ctx, s.kind, s.matchID, idx, m.MoveCount)
		var de famdto.DomainError
		if errors.As(err, &de) && de.Code != famdto.CodeInternal {
			fmt.Fprintln(s.out, de.Message)
			if m, err = api.Match(ctx, s.kind, s.matchID); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		m = next
	}
}

func waitForChange(ctx context.Context, api GameAPI, s matchSession, seen int) (*famdto.Match, error) {
	var (
		latest  *famdto.Match
		lastErr error
	)
	t := poll.Start(ctx, poll.Options{Interval: s.interval}, func(ctx context.Context) bool {
		m, err := api.Match(ctx, s.kind, s.matchID)
		if err != nil {
			lastErr = err
			var de famdto.DomainError
			return errors.As(err, &de) && de.Code == famdto.CodeNotFound
		}
		if m.MoveCount != seen || m.Finished {
			latest = m
			return true
		}
		return false
	})
	<-t.Done()
	if latest != nil {
		return latest, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ctx.Err()
}

func outcomeText(msgs *msgcat.Catalog, m *famdto.Match, me string) string {
	var b strings.Builder
	switch {
	case m.Draw:
		b.WriteString(msgs.Text("game.draw", nil))
	case m.Winner == me:
		b.WriteString(msgs.Text("game.won", map[string]any{"Method": m.Method}))
	default:
		b.WriteString(msgs.Text("game.lost", map[string]any{"Winner": winnerName(m), "Method": m.Method}))
	}
	if len(m.Pits) > 0 {
		b.WriteString("\n" + msgs.Text("game.scores", map[string]any{"P1": m.Player1Score, "P2": m.Player2Score}))
	}
	return b.String()
}

func winnerName(m *famdto.Match) string {
	if m.Winner == m.Player1ID {
		return nameOr(m.Player1Name, m.Player1ID)
	}
	return nameOr(m.Player2Name, m.Player2ID)
}

func opponentName(m *famdto.Match, me string) string {
	if me == m.Player1ID {
		return nameOr(m.Player2Name, m.Player2ID)
	}
	return nameOr(m.Player1Name, m.Player1ID)
}

func nameOr(name, id string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return id
}
