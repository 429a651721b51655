package core

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a load or record operation failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindFeedUnavailable
	KindMissingField
	KindUnexpectedColumn
	KindValidation
	KindStorageIntegrity
	KindDuplicateKey
	KindNotFound
)

// Sentinels for errors.Is, one per Kind.
var (
	ErrFeedUnavailable  = errors.New("feed unavailable")
	ErrMissingField     = errors.New("missing field")
	ErrUnexpectedColumn = errors.New("unexpected column")
	ErrValidation       = errors.New("validation failure")
	ErrStorageIntegrity = errors.New("storage integrity violation")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrNotFound         = errors.New("not found")
)

var kindSentinels = map[Kind]error{
	KindFeedUnavailable:  ErrFeedUnavailable,
	KindMissingField:     ErrMissingField,
	KindUnexpectedColumn: ErrUnexpectedColumn,
	KindValidation:       ErrValidation,
	KindStorageIntegrity: ErrStorageIntegrity,
	KindDuplicateKey:     ErrDuplicateKey,
	KindNotFound:         ErrNotFound,
}

func (k Kind) String() string {
	if err, ok := kindSentinels[k]; ok {
		return err.Error()
	}
	return "unknown"
}

// Error carries the context needed to locate a bad record: the feed line,
// the column or field, and the offending value.
type Error struct {
	Kind  Kind
	Field string // column or attribute name
	Value string
	Line  int // 1-based feed line; 0 when not reading a feed
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %q", e.Field)
	}
	if e.Kind == KindValidation || e.Value != "" {
		fmt.Fprintf(&b, " value %q", e.Value)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s, ok := kindSentinels[e.Kind]; ok {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newError(kind Kind, field, value string, line int, cause error) *Error {
	return &Error{Kind: kind, Field: field, Value: value, Line: line, Err: cause}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
