package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. The string values are part of the
// HTTP error body contract and must stay stable.
type Kind string

const (
	KindUnsupportedPlatform Kind = "unsupported_platform"
	KindContentNotFound     Kind = "content_not_found"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindFormatNotFound      Kind = "format_not_found"
	KindRelayTimeout        Kind = "relay_timeout"
	KindUpstreamRead        Kind = "upstream_read"
	KindSinkWrite           Kind = "sink_write"
	KindRequestTimeout      Kind = "request_timeout"
	KindServiceBusy         Kind = "service_busy"
	KindBadRequest          Kind = "bad_request"
)

// Error carries a failure kind up to the orchestrator unchanged so the
// HTTP layer can pick a precise status and message.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with a kind. Returns nil for a nil err.
func E(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Errorf builds a kinded error from a format string.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// WrapKind classifies err with kind unless it already carries one.
func WrapKind(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf reports the kind of err, or KindUpstreamUnavailable for errors
// that reached the orchestrator without classification.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUpstreamUnavailable
}
