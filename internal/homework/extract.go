package homework

import (
	"errors"
	"fmt"
	"strings"
)

// Verdicts is an immutable status code to verdict text table.
type Verdicts struct {
	m map[string]string
}

// DefaultVerdicts returns the table used when the config has no statuses.
func DefaultVerdicts() map[string]string {
	return map[string]string{
		"approved":  "The work has been reviewed: no remarks.",
		"reviewing": "The work has been taken for review.",
		"rejected":  "The work has been reviewed: there are remarks.",
	}
}

// NewVerdicts copies table; later changes to table are not observed.
func NewVerdicts(table map[string]string) (Verdicts, error) {
	if len(table) == 0 {
		return Verdicts{}, errors.New("verdict table is empty")
	}
	m := make(map[string]string, len(table))
	for code, text := range table {
		code = strings.TrimSpace(code)
		if code == "" {
			return Verdicts{}, errors.New("verdict table has an empty status code")
		}
		if strings.TrimSpace(text) == "" {
			return Verdicts{}, fmt.Errorf("verdict for %q is empty", code)
		}
		m[code] = text
	}
	return Verdicts{m: m}, nil
}

func (v Verdicts) Lookup(code string) (string, bool) {
	text, ok := v.m[code]
	return text, ok
}

func (v Verdicts) Len() int { return len(v.m) }

// Extractor turns a status record into the notification text.
type Extractor struct {
	verdicts Verdicts
}

func NewExtractor(v Verdicts) *Extractor {
	return &Extractor{verdicts: v}
}

// Extract requires both status and homework_name; a record without a status
// never reaches the verdict lookup.
func (x *Extractor) Extract(r Record) (string, error) {
	status, ok := stringField(r, FieldStatus)
	if !ok {
		return "", &ExtractionError{Kind: ExtractMissingField, Field: FieldStatus}
	}
	name, ok := stringField(r, FieldName)
	if !ok {
		return "", &ExtractionError{Kind: ExtractMissingField, Field: FieldName}
	}
	verdict, ok := x.verdicts.Lookup(status)
	if !ok {
		return "", &ExtractionError{Kind: ExtractUnknownStatus, Code: status}
	}
	return FormatChange(name, verdict), nil
}

// FormatChange renders the message sent when a submission changes state.
func FormatChange(name, verdict string) string {
	return fmt.Sprintf("Changed status of submission \"%s\": %s", name, verdict)
}

func stringField(r Record, key string) (string, bool) {
	if r == nil {
		return "", false
	}
	s, ok := r[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
