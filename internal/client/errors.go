package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/microcosm-cc/bluemonday"
)

// Kind classifies a client failure for retry and presentation decisions.
type Kind string

const (
	KindNetwork Kind = "network"
	KindTimeout Kind = "timeout"
	KindHTTP    Kind = "http"
	KindDecode  Kind = "decode"
	KindConfig  Kind = "config"
)

const (
	CodeNetwork = "NETWORK_ERROR"
	CodeTimeout = "TIMEOUT"
	CodeHTTP    = "HTTP_ERROR"
	CodeDecode  = "DECODE_ERROR"
	CodeConfig  = "CONFIG_ERROR"
)

// Error categories registered with go-errors.
const (
	CategoryNetwork goerrors.Category = "listbind_network"
	CategoryTimeout goerrors.Category = "listbind_timeout"
	CategoryHTTP    goerrors.Category = "listbind_http"
	CategoryDecode  goerrors.Category = "listbind_decode"
	CategoryConfig  goerrors.Category = "listbind_config"
)

var (
	ErrMissingAPIKey    = errors.New("client: api key is required")
	ErrMissingProgramID = errors.New("client: program id is required")
	ErrMissingRecordID  = errors.New("client: record id is required")
)

// Error is the normalized failure surfaced by every client operation. Code is
// machine readable (the server-provided code when one was parseable), Message
// is fit for display and Status is the HTTP status when a response arrived.
type Error struct {
	Kind     Kind
	Code     string
	Message  string
	Status   int
	Attempts int
	err      error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("client: %s (status %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("client: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Retryable reports whether the failure is transient: 5xx, 429 or no response at all.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetwork:
		return true
	case KindHTTP:
		return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
	default:
		return false
	}
}

// AsError extracts a client error from err.
func AsError(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) && target != nil {
		return target, true
	}
	return nil, false
}

// IsTimeout reports whether err is a request timeout.
func IsTimeout(err error) bool {
	e, ok := AsError(err)
	return ok && e.Kind == KindTimeout
}

func newError(kind Kind, code, message string, status int, cause error) *Error {
	if cause == nil {
		cause = errors.New(message)
	}
	wrapped := goerrors.Wrap(cause, categoryFor(kind), message).WithTextCode(code)
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		Status:  status,
		err:     wrapped,
	}
}

func categoryFor(kind Kind) goerrors.Category {
	switch kind {
	case KindNetwork:
		return CategoryNetwork
	case KindTimeout:
		return CategoryTimeout
	case KindHTTP:
		return CategoryHTTP
	case KindDecode:
		return CategoryDecode
	default:
		return CategoryConfig
	}
}

// ConfigError reports a missing or invalid identifier as a CONFIG_ERROR.
func ConfigError(cause error) *Error {
	return configError(cause)
}

func configError(cause error) *Error {
	return newError(KindConfig, CodeConfig, cause.Error(), 0, cause)
}

func networkError(cause error) *Error {
	return newError(KindNetwork, CodeNetwork, "network request failed", 0, cause)
}

func timeoutError(cause error) *Error {
	return newError(KindTimeout, CodeTimeout, "request timed out", 0, cause)
}

func decodeError(resource string, cause error) *Error {
	return newError(KindDecode, CodeDecode, fmt.Sprintf("unexpected %s payload", resource), 0, cause)
}

func contextError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutError(err)
	}
	return networkError(err)
}

var messagePolicy = bluemonday.StrictPolicy()

// httpError builds the error for a non-2xx response, preferring the server's
// own code and message when the body carries them.
func httpError(status int, body []byte) *Error {
	code, message := parseServerError(body)
	if code == "" {
		code = CodeHTTP
	}
	message = strings.TrimSpace(messagePolicy.Sanitize(message))
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = fmt.Sprintf("unexpected status %d", status)
	}
	return newError(KindHTTP, code, message, status, fmt.Errorf("status %d", status))
}

type serverError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

func parseServerError(body []byte) (string, string) {
	var payload serverError
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return "", ""
	}
	if len(payload.Error) > 0 {
		var nested struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(payload.Error, &nested) == nil {
			if payload.Code == "" {
				payload.Code = nested.Code
			}
			if payload.Message == "" {
				payload.Message = nested.Message
			}
		} else {
			var text string
			if json.Unmarshal(payload.Error, &text) == nil && payload.Message == "" {
				payload.Message = text
			}
		}
	}
	return strings.TrimSpace(payload.Code), payload.Message
}
