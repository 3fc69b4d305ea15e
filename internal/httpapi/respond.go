package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/park285/famhub/internal/obslog"
	"github.com/park285/famhub/pkg/famdto"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obslog.L().Debug("http_write_failed", zap.Error(err))
	}
}

func statusFor(code string) int {
	switch code {
	case famdto.CodeNotFound:
		return http.StatusNotFound
	case famdto.CodeInvalidState:
		return http.StatusConflict
	case famdto.CodeSelfTarget, famdto.CodeInvalidArgs:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err in the shared envelope. Anything that is not a
// DomainError is logged and reported as a retryable internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de famdto.DomainError
	if !errors.As(err, &de) {
		obslog.L().Error("http_internal_error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		de = famdto.DomainError{Code: famdto.CodeInternal, Message: "internal error", Retryable: true}
	} else {
		de.Message = err.Error()
	}
	writeJSON(w, statusFor(de.Code), famdto.ErrorResponse{Error: de})
}

var errBadBody = famdto.DomainError{Code: famdto.CodeInvalidArgs, Message: "malformed request body"}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errBadBody
	}
	return nil
}

// decodeOptional is decode that accepts an empty body.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return errBadBody
	}
	return nil
}
