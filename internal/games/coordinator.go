// Package games coordinates invitations and turn-based matches between two
// players. Redis holds live state; finished results go to a ResultStore.
package games

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/famhub/internal/obslog"
	"github.com/park285/famhub/pkg/famdto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrUnknownKind   = famdto.DomainError{Code: famdto.CodeInvalidArgs, Message: "unknown game"}
	ErrInvalidArgs   = famdto.DomainError{Code: famdto.CodeInvalidArgs, Message: "invalid game arguments"}
	ErrSelfTarget    = famdto.DomainError{Code: famdto.CodeSelfTarget, Message: "cannot invite yourself"}
	ErrNotFound      = famdto.DomainError{Code: famdto.CodeNotFound, Message: "not found"}
	ErrInvalidState  = famdto.DomainError{Code: famdto.CodeInvalidState, Message: "invite is no longer pending"}
	ErrNotYourTurn   = famdto.DomainError{Code: famdto.CodeInvalidState, Message: "not your turn"}
	ErrIllegalMove   = famdto.DomainError{Code: famdto.CodeInvalidState, Message: "illegal move"}
	ErrMatchFinished = famdto.DomainError{Code: famdto.CodeInvalidState, Message: "match is finished"}
	ErrConflict      = famdto.DomainError{Code: famdto.CodeInvalidState, Message: "match changed concurrently, retry", Retryable: true}
)

// ResultStore persists final results. SaveResult must be idempotent per
// match and report whether the reward was credited by this call.
type ResultStore interface {
	SaveResult(ctx context.Context, r Result) (credited bool, err error)
}

// Roster lists the people a user can play against.
type Roster interface {
	ListExcept(ctx context.Context, userID string) ([]famdto.Player, error)
}

type Coordinator struct {
	store   *Store
	results ResultStore
	roster  Roster
	reward  int
	now     func() time.Time
	log     *zap.Logger
}

type Option func(*Coordinator)

func WithClock(now func() time.Time) Option { return func(c *Coordinator) { c.now = now } }

func WithResults(r ResultStore) Option { return func(c *Coordinator) { c.results = r } }

func WithRoster(r Roster) Option { return func(c *Coordinator) { c.roster = r } }

// WithReward sets the coins credited to a winner.
func WithReward(n int) Option { return func(c *Coordinator) { c.reward = n } }

func NewCoordinator(store *Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  store,
		reward: 20,
		now:    time.Now,
		log:    obslog.Named("games"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) ListPlayers(ctx context.Context, userID string) ([]famdto.Player, error) {
	if c.roster == nil {
		return []famdto.Player{}, nil
	}
	players, err := c.roster.ListExcept(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return players, nil
}

func (c *Coordinator) SendInvite(ctx context.Context, kind Kind, fromID, fromName, toID string) (*Invite, error) {
	fromID, toID = strings.TrimSpace(fromID), strings.TrimSpace(toID)
	if fromID == "" || toID == "" {
		return nil, ErrInvalidArgs
	}
	if fromID == toID {
		return nil, ErrSelfTarget
	}
	if strings.TrimSpace(fromName) == "" {
		fromName = fromID
	}
	inv := &Invite{
		ID:           "inv_" + uuid.NewString(),
		Kind:         kind,
		FromUserID:   fromID,
		FromUsername: fromName,
		ToUserID:     toID,
		Status:       InvitePending,
		CreatedAt:    c.now(),
	}
	if err := c.store.SaveInvite(ctx, inv); err != nil {
		return nil, fmt.Errorf("save invite: %w", err)
	}
	c.log.Info("match_invite", zap.String("kind", string(kind)), zap.String("invite_id", inv.ID), zap.String("from", fromID), zap.String("to", toID))
	return inv, nil
}

// CheckInvite returns the newest pending invite addressed to userID, or nil.
// Answered or expired entries are pruned from the inbox on the way.
func (c *Coordinator) CheckInvite(ctx context.Context, kind Kind, userID string) (*Invite, error) {
	ids, err := c.store.Inbox(ctx, kind, userID)
	if err != nil {
		return nil, fmt.Errorf("load inbox: %w", err)
	}
	var stale []string
	var found *Invite
	for _, id := range ids {
		inv, err := c.store.LoadInvite(ctx, kind, id)
		if err != nil {
			return nil, fmt.Errorf("load invite: %w", err)
		}
		if inv == nil || inv.Status != InvitePending {
			stale = append(stale, id)
			continue
		}
		found = inv
		break
	}
	if err := c.store.DropFromInbox(ctx, kind, userID, stale...); err != nil {
		c.log.Warn("inbox_prune_failed", zap.String("user_id", userID), zap.Error(err))
	}
	return found, nil
}

// RespondInvite answers an invite addressed to userID. Accepting creates the
// match in the same transaction that closes the invite.
func (c *Coordinator) RespondInvite(ctx context.Context, kind Kind, inviteID, userID, userName string, accepted bool) (*Invite, error) {
	key := inviteKey(kind, inviteID)
	var out *Invite
	err := c.store.rdb.Watch(ctx, func(tx *redis.Tx) error {
		inv, err := getJSON[Invite](ctx, tx, key)
		if err != nil {
			return err
		}
		if inv == nil || inv.ToUserID != strings.TrimSpace(userID) {
			return ErrNotFound
		}
		if inv.Status != InvitePending {
			return ErrInvalidState
		}
		now := c.now()
		inv.RespondedAt = now

		var m *Match
		if accepted {
			inv.Status = InviteAccepted
			if strings.TrimSpace(userName) == "" {
				userName = userID
			}
			m = &Match{
				ID:          "match_" + uuid.NewString(),
				Kind:        kind,
				Player1ID:   inv.FromUserID,
				Player1Name: inv.FromUsername,
				Player2ID:   inv.ToUserID,
				Player2Name: userName,
				Turn:        1,
				Moves:       []AppliedMove{},
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			rulesFor(kind).Init(m)
			inv.MatchID = m.ID
		} else {
			inv.Status = InviteDeclined
		}

		pipe := tx.TxPipeline()
		if err := c.store.queue(ctx, pipe, key, inv); err != nil {
			return err
		}
		if m != nil {
			if err := c.store.queue(ctx, pipe, matchKey(kind, m.ID), m); err != nil {
				return err
			}
		}
		pipe.ZRem(ctx, inboxKey(kind, inv.ToUserID), inv.ID)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		out = inv
		return nil
	}, key)
	if err != nil {
		return nil, c.mapTxErr("invite_respond", err)
	}
	c.log.Info("match_invite_respond",
		zap.String("kind", string(kind)),
		zap.String("invite_id", out.ID),
		zap.Bool("accepted", accepted),
		zap.String("match_id", out.MatchID),
	)
	return out, nil
}

// InviteStatus returns the invite by id, or nil when it never existed or expired.
func (c *Coordinator) InviteStatus(ctx context.Context, kind Kind, inviteID string) (*Invite, error) {
	inv, err := c.store.LoadInvite(ctx, kind, inviteID)
	if err != nil {
		return nil, fmt.Errorf("load invite: %w", err)
	}
	return inv, nil
}

// PollMatch returns the match if userID is one of its players.
func (c *Coordinator) PollMatch(ctx context.Context, kind Kind, matchID, userID string) (*Match, error) {
	m, err := c.store.LoadMatch(ctx, kind, matchID)
	if err != nil {
		return nil, fmt.Errorf("load match: %w", err)
	}
	if m == nil || m.Seat(userID) == 0 {
		return nil, ErrNotFound
	}
	return m, nil
}

// SubmitMove applies index for userID. moveNumber, when set, is the move
// count the client observed; resubmitting an applied move returns the
// current match unchanged.
func (c *Coordinator) SubmitMove(ctx context.Context, kind Kind, matchID, userID string, index int, moveNumber *int) (*Match, error) {
	key := matchKey(kind, matchID)
	rules := rulesFor(kind)
	var (
		out     *Match
		applied bool
	)
	err := c.store.rdb.Watch(ctx, func(tx *redis.Tx) error {
		m, err := getJSON[Match](ctx, tx, key)
		if err != nil {
			return err
		}
		if m == nil {
			return ErrNotFound
		}
		seat := m.Seat(userID)
		if seat == 0 {
			return ErrNotFound
		}
		if moveNumber != nil {
			n := *moveNumber
			if n >= 0 && n < m.MoveCount() {
				if m.Moves[n] == (AppliedMove{Seat: seat, Index: index}) {
					out = m
					return nil
				}
				return ErrConflict
			}
			if n != m.MoveCount() {
				return ErrConflict
			}
		}
		if m.Finished {
			return ErrMatchFinished
		}
		if m.Turn != seat {
			return ErrNotYourTurn
		}
		if err := rules.Apply(m, seat, index); err != nil {
			return fmt.Errorf("%w: %v", ErrIllegalMove, err)
		}
		m.Moves = append(m.Moves, AppliedMove{Seat: seat, Index: index})
		m.UpdatedAt = c.now()
		if winner, draw, over, method := rules.Outcome(m); over {
			m.Finished = true
			m.Draw = draw
			m.Winner = m.PlayerID(winner)
			m.Method = method
		} else {
			m.Turn = 3 - seat
		}

		pipe := tx.TxPipeline()
		if err := c.store.queue(ctx, pipe, key, m); err != nil {
			return err
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		out, applied = m, true
		return nil
	}, key)
	if err != nil {
		return nil, c.mapTxErr("match_move", err)
	}
	if !applied {
		c.log.Debug("match_move_replay", zap.String("match_id", out.ID), zap.String("user_id", userID))
		if out.Finished {
			if err := c.persistResult(ctx, out); err != nil {
				c.log.Warn("match_result_deferred", zap.String("match_id", out.ID), zap.Error(err))
			}
		}
		return out, nil
	}

	c.log.Info("match_move",
		zap.String("kind", string(kind)),
		zap.String("match_id", out.ID),
		zap.String("user_id", userID),
		zap.Int("index", index),
		zap.Int("move_count", out.MoveCount()),
		zap.Bool("finished", out.Finished),
	)
	if out.Finished {
		// The move stays committed. Clients call FinishMatch on every
		// finished match, which writes the result again.
		if err := c.persistResult(ctx, out); err != nil {
			c.log.Warn("match_result_deferred", zap.String("match_id", out.ID), zap.Error(err))
		}
	}
	return out, nil
}

// FinishMatch closes the match for userID. An unfinished match is forfeited
// by the caller. Calling it again on a finished match only re-runs result
// persistence, which credits the reward at most once.
func (c *Coordinator) FinishMatch(ctx context.Context, kind Kind, matchID, userID string) (*Match, error) {
	key := matchKey(kind, matchID)
	var out *Match
	err := c.store.rdb.Watch(ctx, func(tx *redis.Tx) error {
		m, err := getJSON[Match](ctx, tx, key)
		if err != nil {
			return err
		}
		if m == nil {
			return ErrNotFound
		}
		seat := m.Seat(userID)
		if seat == 0 {
			return ErrNotFound
		}
		out = m
		if m.Finished {
			return nil
		}
		m.Finished = true
		m.Winner = m.PlayerID(3 - seat)
		m.Method = MethodForfeit
		m.UpdatedAt = c.now()
		pipe := tx.TxPipeline()
		if err := c.store.queue(ctx, pipe, key, m); err != nil {
			return err
		}
		_, err = pipe.Exec(ctx)
		return err
	}, key)
	if err != nil {
		return nil, c.mapTxErr("match_finish", err)
	}
	if out.Method == MethodForfeit {
		c.log.Info("match_forfeit", zap.String("match_id", out.ID), zap.String("by", userID), zap.String("winner", out.Winner))
	}
	if err := c.persistResult(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Coordinator) persistResult(ctx context.Context, m *Match) error {
	if c.results == nil || m == nil || !m.Finished {
		return nil
	}
	p1, p2 := rulesFor(m.Kind).Scores(m)
	res := Result{
		MatchID:      m.ID,
		Kind:         m.Kind,
		Player1ID:    m.Player1ID,
		Player2ID:    m.Player2ID,
		WinnerID:     m.Winner,
		Draw:         m.Draw,
		Method:       m.Method,
		Player1Score: p1,
		Player2Score: p2,
		MoveCount:    m.MoveCount(),
		StartedAt:    m.CreatedAt,
		EndedAt:      m.UpdatedAt,
		Reward:       c.reward,
	}
	credited, err := c.results.SaveResult(ctx, res)
	if err != nil {
		c.log.Error("match_result_persist_error", zap.String("match_id", m.ID), zap.Error(err))
		return fmt.Errorf("persist result: %w", err)
	}
	c.log.Info("match_result_persist",
		zap.String("match_id", m.ID),
		zap.String("winner", m.Winner),
		zap.String("method", m.Method),
		zap.Bool("credited", credited),
	)
	return nil
}

// mapTxErr passes domain errors through and turns a lost WATCH race into
// ErrConflict.
func (c *Coordinator) mapTxErr(op string, err error) error {
	var de famdto.DomainError
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, redis.TxFailedErr):
		c.log.Info(op+"_conflict", zap.Error(err))
		return ErrConflict
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
