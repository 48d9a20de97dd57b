// Package apperr defines the error taxonomy shared by every component.
//
// Kinds are sentinel errors rather than strings so handlers can classify
// failures with errors.Is/errors.As instead of matching on message text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies one of the taxonomy buckets from the error handling design.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindTooEarly
	KindUpstream
	KindParseFailure
	KindCorruptInput
	KindDegraded
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindTooEarly:
		return "too_early"
	case KindUpstream:
		return "upstream"
	case KindParseFailure:
		return "parse_failure"
	case KindCorruptInput:
		return "corrupt_input"
	case KindDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Sentinel root errors. Wrap these with fmt.Errorf("%w: ...", ErrX) to add
// detail while keeping errors.Is(err, ErrX) working.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrTooEarly     = errors.New("result not ready")
	ErrUpstream     = errors.New("upstream error")
	ErrRateLimit    = fmt.Errorf("%w: rate limited", ErrUpstream)
	ErrTimeout      = fmt.Errorf("%w: timeout", ErrUpstream)
	ErrParseFailure = errors.New("parse failure")
	ErrCorruptInput = errors.New("corrupt input")
	ErrDegraded     = errors.New("degraded")
)

// Classify maps an error to its taxonomy Kind by walking the wrap chain.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrTooEarly):
		return KindTooEarly
	case errors.Is(err, ErrParseFailure):
		return KindParseFailure
	case errors.Is(err, ErrCorruptInput):
		return KindCorruptInput
	case errors.Is(err, ErrDegraded):
		return KindDegraded
	case errors.Is(err, ErrUpstream):
		return KindUpstream
	default:
		return KindUnknown
	}
}

// HTTPStatus maps an error to the status code the HTTP surface should return.
func HTTPStatus(err error) int {
	switch Classify(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindTooEarly:
		return http.StatusTooEarly
	case KindUpstream, KindParseFailure, KindCorruptInput:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Validation wraps msg as a validation error.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound wraps msg as a not-found error.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// TooEarly wraps msg as a too-early error.
func TooEarly(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTooEarly, fmt.Sprintf(format, args...))
}

// Upstream wraps msg as a generic upstream error.
func Upstream(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUpstream, fmt.Sprintf(format, args...))
}

// ParseFailure wraps msg as a parse-failure error.
func ParseFailure(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParseFailure, fmt.Sprintf(format, args...))
}

// CorruptInput wraps msg as a corrupt-input error.
func CorruptInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptInput, fmt.Sprintf(format, args...))
}
