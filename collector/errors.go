package collector

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type FetchErrorKind string

const (
	FetchErrorNetwork   FetchErrorKind = "network"
	FetchErrorAuth      FetchErrorKind = "auth"
	FetchErrorRateLimit FetchErrorKind = "rate_limit"
	FetchErrorConfig    FetchErrorKind = "config"
	FetchErrorUpstream  FetchErrorKind = "upstream"
)

// FetchError is a failure to obtain records from a platform. It is isolated to
// the source being fetched, Retryable ones are retried by the job runner.
type FetchError struct {
	Platform  string
	Kind      FetchErrorKind
	Retryable bool
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s fetch error (%s): %v", e.Platform, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func NewFetchError(platform string, kind FetchErrorKind, err error) *FetchError {
	retryable := kind == FetchErrorNetwork || kind == FetchErrorRateLimit || kind == FetchErrorUpstream
	return &FetchError{Platform: platform, Kind: kind, Retryable: retryable, Err: err}
}

// FetchErrorFromStatus maps a non-2xx http status to a FetchError.
func FetchErrorFromStatus(platform string, status int) *FetchError {
	err := errors.Errorf("unexpected http status %d", status)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewFetchError(platform, FetchErrorAuth, err)
	case status == http.StatusTooManyRequests:
		return NewFetchError(platform, FetchErrorRateLimit, err)
	case status >= 500:
		return NewFetchError(platform, FetchErrorUpstream, err)
	default:
		return &FetchError{Platform: platform, Kind: FetchErrorUpstream, Retryable: false, Err: err}
	}
}

// ParseError is a malformed platform record. Only the record is skipped.
type ParseError struct {
	Platform string
	NativeId string
	Reason   string
	Err      error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s parse error on %q: %s", e.Platform, e.NativeId, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func NewParseError(platform, nativeId, reason string, err error) *ParseError {
	return &ParseError{Platform: platform, NativeId: nativeId, Reason: reason, Err: err}
}

func IsRetryable(err error) bool {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Retryable
	}
	return false
}

func IsParseError(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}
