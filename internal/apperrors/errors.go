package apperrors

import (
	"errors"
	"strings"
)

// Kind classifies a translation-service failure.
type Kind string

const (
	KindTransient  Kind = "transient"
	KindRateLimit  Kind = "rate_limit"
	KindQuota      Kind = "quota"
	KindAuth       Kind = "auth"
	KindValidation Kind = "validation"
	KindBadRequest Kind = "bad_request"
)

// Error carries a Kind plus a message that is safe to show and log.
// The Cause may contain upstream response bodies and must stay internal.
type Error struct {
	Kind        Kind
	SafeMessage string
	Cause       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.SafeMessage); msg != "" {
		return msg
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func defaultSafeMessage(kind Kind) string {
	switch kind {
	case KindTransient:
		return "Temporary upstream error. Please try again."
	case KindRateLimit:
		return "Rate limit exceeded. Please try again later."
	case KindQuota:
		return "Translation quota exhausted."
	case KindAuth:
		return "Authentication failed. Please verify your API key and permissions."
	case KindValidation:
		return "Response validation failed."
	case KindBadRequest:
		return "Request rejected by upstream API."
	default:
		return "Request failed."
	}
}

// New builds an *Error; an empty safeMessage falls back to a per-kind default.
func New(kind Kind, safeMessage string, cause error) error {
	msg := strings.TrimSpace(safeMessage)
	if msg == "" {
		msg = defaultSafeMessage(kind)
	}
	return &Error{
		Kind:        kind,
		SafeMessage: msg,
		Cause:       cause,
	}
}

func Transient(err error) error  { return New(KindTransient, "", err) }
func RateLimit(err error) error  { return New(KindRateLimit, "", err) }
func Auth(err error) error       { return New(KindAuth, "", err) }
func Validation(err error) error { return New(KindValidation, "", err) }
func BadRequest(err error) error { return New(KindBadRequest, "", err) }

func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}

func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}

// IsRetryable reports whether another attempt could plausibly succeed.
// Validation failures are retryable because model output is non-deterministic.
func IsRetryable(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	return kind == KindTransient || kind == KindRateLimit || kind == KindValidation
}

// IsPermanent reports whether the error will repeat on every attempt with the same
// credentials and request (bad key, exhausted quota, rejected request).
func IsPermanent(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	return kind == KindAuth || kind == KindQuota || kind == KindBadRequest
}

func IsRateLimit(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindRateLimit
}
