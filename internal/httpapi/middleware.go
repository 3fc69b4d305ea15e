package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/park285/famhub/pkg/famdto"
	"go.uber.org/zap"
)

const (
	HeaderUserID   = "X-User-Id"
	HeaderUserName = "X-User-Name"
)

type identityKey struct{}

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID string
	Name   string
}

func identityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}

// requireUser rejects requests without a user id header.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if id == "" {
			writeJSON(w, http.StatusUnauthorized, famdto.ErrorResponse{Error: famdto.DomainError{
				Code:    famdto.CodeInvalidArgs,
				Message: "missing " + HeaderUserID,
			}})
			return
		}
		ident := Identity{UserID: id, Name: strings.TrimSpace(r.Header.Get(HeaderUserName))}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, ident)))
	})
}

// requestLogger logs one line per request. Clients poll several times a
// second, so successful requests go to debug.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}
			switch {
			case ww.Status() >= 500:
				log.Warn("http_request", fields...)
			case ww.Status() >= 400:
				log.Info("http_request", fields...)
			default:
				log.Debug("http_request", fields...)
			}
		})
	}
}
