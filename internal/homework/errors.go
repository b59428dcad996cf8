package homework

import (
	"errors"
	"fmt"
)

var (
	ErrNotAMapping   = errors.New("response is not an object")
	ErrMissingField  = errors.New("required field missing")
	ErrWrongType     = errors.New("field has wrong type")
	ErrUnknownStatus = errors.New("unknown homework status")
)

type ValidationKind int

const (
	NotAMapping ValidationKind = iota
	MissingField
	WrongType
)

func (k ValidationKind) String() string {
	switch k {
	case NotAMapping:
		return "not_a_mapping"
	case MissingField:
		return "missing_field"
	case WrongType:
		return "wrong_type"
	default:
		return "unknown"
	}
}

// ValidationError reports a response that does not have the expected shape.
type ValidationError struct {
	Kind  ValidationKind
	Field string
	Got   string // JSON type actually received
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case NotAMapping:
		return fmt.Sprintf("validate response: expected object, got %s", e.Got)
	case MissingField:
		return fmt.Sprintf("validate response: %q is missing", e.Field)
	case WrongType:
		return fmt.Sprintf("validate response: %q must be an array, got %s", e.Field, e.Got)
	default:
		return "validate response: invalid"
	}
}

func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrNotAMapping:
		return e.Kind == NotAMapping
	case ErrMissingField:
		return e.Kind == MissingField
	case ErrWrongType:
		return e.Kind == WrongType
	}
	return false
}

type ExtractionKind int

const (
	ExtractMissingField ExtractionKind = iota
	ExtractUnknownStatus
)

func (k ExtractionKind) String() string {
	switch k {
	case ExtractMissingField:
		return "missing_field"
	case ExtractUnknownStatus:
		return "unknown_status"
	default:
		return "unknown"
	}
}

// ExtractionError reports a status record that cannot be turned into a message.
type ExtractionError struct {
	Kind  ExtractionKind
	Field string
	Code  string
}

func (e *ExtractionError) Error() string {
	if e.Kind == ExtractUnknownStatus {
		return fmt.Sprintf("extract status: unknown status code %q", e.Code)
	}
	return fmt.Sprintf("extract status: %q is missing", e.Field)
}

func (e *ExtractionError) Is(target error) bool {
	switch target {
	case ErrMissingField:
		return e.Kind == ExtractMissingField
	case ErrUnknownStatus:
		return e.Kind == ExtractUnknownStatus
	}
	return false
}
