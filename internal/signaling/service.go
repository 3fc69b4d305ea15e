// Package signaling implements the polling exchange on top of the call
// directory and the presence tracker.
package signaling

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/park285/famhub/internal/calls"
	"github.com/park285/famhub/internal/obslog"
	"github.com/park285/famhub/internal/presence"
	"github.com/park285/famhub/pkg/famdto"
	"go.uber.org/zap"
)

// Accounts resolves display names for callers.
type Accounts interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

type Service struct {
	dir      *calls.Directory
	presence *presence.Tracker
	accounts Accounts
	log      *zap.Logger
}

func NewService(dir *calls.Directory, tracker *presence.Tracker, accounts Accounts) *Service {
	return &Service{
		dir:      dir,
		presence: tracker,
		accounts: accounts,
		log:      obslog.Named("signaling"),
	}
}

func (s *Service) Heartbeat(userID string) {
	s.presence.Heartbeat(userID)
}

func (s *Service) ListOnline() famdto.OnlineResponse {
	return famdto.OnlineResponse{OnlineUserIDs: s.presence.Online()}
}

// InitiateCall places a call. fallbackName is used when the account store
// has no name for the caller.
func (s *Service) InitiateCall(ctx context.Context, callerID, fallbackName string, req famdto.InitiateCallRequest) (famdto.InitiateCallResponse, error) {
	name := s.callerName(ctx, callerID, fallbackName)
	sess, err := s.dir.CreatePending(callerID, name, req.ToUserID, req.Offer)
	if err != nil {
		s.log.Info("call_initiate_rejected",
			zap.String("caller", callerID),
			zap.String("callee", req.ToUserID),
			zap.Error(err),
		)
		return famdto.InitiateCallResponse{}, err
	}
	s.log.Info("call_initiate",
		zap.String("call_id", sess.ID),
		zap.String("caller", sess.CallerID),
		zap.String("callee", sess.CalleeID),
		zap.Bool("callee_online", s.presence.IsOnline(sess.CalleeID)),
	)
	return famdto.InitiateCallResponse{Success: true, CallID: sess.ID}, nil
}

func (s *Service) CheckIncoming(userID string) famdto.CheckCallResponse {
	sess := s.dir.PendingFor(userID)
	if sess == nil {
		return famdto.CheckCallResponse{}
	}
	return famdto.CheckCallResponse{Call: &famdto.IncomingCall{
		CallID:     sess.ID,
		CallerID:   sess.CallerID,
		CallerName: sess.CallerName,
		Offer:      json.RawMessage(sess.Offer),
		CreatedAt:  sess.CreatedAt,
	}}
}

func (s *Service) OutgoingStatus(userID string) famdto.CallStatusResponse {
	st := s.dir.OutgoingStatus(userID)
	resp := famdto.CallStatusResponse{Status: string(st.State), CallID: st.CallID}
	if len(st.Answer) > 0 {
		resp.Answer = json.RawMessage(st.Answer)
	}
	return resp
}

func (s *Service) Accept(userID string, req famdto.AnswerCallRequest) error {
	sess, err := s.dir.Accept(req.CallID, userID, req.Answer)
	if err != nil {
		return err
	}
	s.log.Info("call_accept", zap.String("call_id", sess.ID), zap.String("caller", sess.CallerID), zap.String("callee", sess.CalleeID))
	return nil
}

func (s *Service) Decline(userID string, req famdto.DeclineCallRequest) error {
	sess, err := s.dir.Decline(req.CallID, userID)
	if err != nil {
		return err
	}
	s.log.Info("call_decline", zap.String("call_id", sess.ID), zap.String("caller", sess.CallerID))
	return nil
}

func (s *Service) End(userID string) {
	for _, sess := range s.dir.End(userID) {
		s.logEnd(sess, userID)
	}
}

// EndSession ends one session the user takes part in. Unknown ids are a no-op.
func (s *Service) EndSession(userID, callID string) {
	if sess := s.dir.EndSession(userID, callID); sess != nil {
		s.logEnd(sess, userID)
	}
}

func (s *Service) logEnd(sess *calls.Session, userID string) {
	s.log.Info("call_end",
		zap.String("call_id", sess.ID),
		zap.String("by", userID),
		zap.Duration("age", sess.ClosedAt.Sub(sess.CreatedAt)),
	)
}

func (s *Service) callerName(ctx context.Context, callerID, fallback string) string {
	if s.accounts != nil {
		name, err := s.accounts.DisplayName(ctx, callerID)
		if err != nil {
			s.log.Warn("caller_name_lookup_failed", zap.String("caller", callerID), zap.Error(err))
		} else if strings.TrimSpace(name) != "" {
			return name
		}
	}
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return callerID
}
