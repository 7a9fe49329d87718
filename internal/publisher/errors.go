package publisher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a publish failure for retry policy decisions.
type Kind string

const (
	// KindAuth means the platform rejected the credential. Retrying with
	// the same token is futile; the user must re-authenticate.
	KindAuth Kind = "auth"
	// KindTransient covers network timeouts, rate limits and 5xx replies.
	KindTransient Kind = "transient"
	// KindPermanent means the platform rejected the content itself.
	KindPermanent Kind = "permanent"
	// KindConfig means the request could never succeed as issued
	// (unsupported platform, missing required media).
	KindConfig Kind = "config"
)

type Error struct {
	Platform string
	Kind     Kind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s publish failed (%s): %v", e.Platform, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(platform string, kind Kind, err error) *Error {
	return &Error{Platform: platform, Kind: kind, Err: err}
}

func Errorf(platform string, kind Kind, format string, args ...any) *Error {
	return &Error{Platform: platform, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the failure kind from an adapter error. Errors that carry
// no classification (transport failures, context deadlines) are treated as
// transient.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindTransient
	}
	return KindTransient
}

func classifyStatus(code int) Kind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusTooManyRequests || code >= 500:
		return KindTransient
	default:
		return KindPermanent
	}
}
