package famdto

// Error codes carried by DomainError on the wire.
const (
	CodeNotFound     = "not_found"
	CodeInvalidState = "invalid_state"
	CodeSelfTarget   = "self_target"
	CodeInvalidArgs  = "invalid_args"
	CodeInternal     = "internal"
)

// DomainError is the error shape shared by server handlers and the API client.
// It is a comparable value, so package sentinels work with errors.Is.
type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "famhub error"
}

// ErrorResponse is the JSON envelope of every non-2xx response.
type ErrorResponse struct {
	Error DomainError `json:"error"`
}

// OKResponse acknowledges a command without payload.
type OKResponse struct {
	Success bool `json:"success"`
}
