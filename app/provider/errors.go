package provider

import (
	"errors"
	"fmt"
)

// Kind classifies a provider failure so callers can branch on it: auth
// failures abort the run, throttled/unavailable are retried with backoff,
// everything else fails the single (entity, metric) pair.
type Kind int

const (
	KindOther Kind = iota
	KindAuth
	KindThrottled
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindThrottled:
		return "throttled"
	case KindUnavailable:
		return "unavailable"
	default:
		return "other"
	}
}

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the classification of err, or KindOther when err carries
// no provider classification.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindOther
}

func IsAuth(err error) bool { return KindOf(err) == KindAuth }

func IsThrottled(err error) bool { return KindOf(err) == KindThrottled }

func IsUnavailable(err error) bool { return KindOf(err) == KindUnavailable }

// IsRetryable reports whether the failure is worth retrying with backoff.
func IsRetryable(err error) bool {
	k := KindOf(err)
	return k == KindThrottled || k == KindUnavailable
}
