package genclient

// #region imports
import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// #endregion

// #region kind

// Kind categorizes a generation failure. Every kind is non-fatal to a solve
// call: the orchestrator converts failures into inadequate-result signals.
type Kind string

const (
	KindTimeout     Kind = "timeout"
	KindAuth        Kind = "auth"
	KindQuota       Kind = "quota"
	KindMalformed   Kind = "malformed"
	KindUnavailable Kind = "unavailable"
)

// #endregion

// #region gen-error

// Error is a classified generation failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generation %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// #endregion

// #region classify

// Classify wraps err with its failure kind.
func Classify(err error) *Error {
	kind := KindUnavailable

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = KindTimeout
	default:
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			switch {
			case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
				kind = KindAuth
			case apiErr.HTTPStatusCode == 429:
				kind = KindQuota
			case apiErr.HTTPStatusCode >= 500:
				kind = KindUnavailable
			default:
				kind = KindMalformed
			}
		}
	}

	return &Error{Kind: kind, Err: err}
}

// KindOf reports the classified kind of err, or KindUnavailable for
// unclassified errors.
func KindOf(err error) Kind {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return KindUnavailable
}

// #endregion
