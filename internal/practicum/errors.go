package practicum

import (
	"errors"
	"fmt"
)

var (
	ErrUnreachable = errors.New("status endpoint unreachable")
	ErrMalformed   = errors.New("status endpoint returned malformed body")
)

type Kind int

const (
	KindUnreachable Kind = iota
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// FetchError is returned by Client.Fetch for every failed request.
// StatusCode is 0 when no HTTP response was received.
type FetchError struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Kind == KindUnreachable && e.StatusCode != 0:
		return fmt.Sprintf("fetch statuses: endpoint answered http %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch statuses: %s: %v", e.Kind, e.Err)
	default:
		return "fetch statuses: " + e.Kind.String()
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrUnreachable:
		return e.Kind == KindUnreachable
	case ErrMalformed:
		return e.Kind == KindMalformed
	}
	return false
}
