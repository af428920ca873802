package domain

import "fmt"

// Kind classifies failures produced by the accounting engine.
type Kind string

const (
	KindInvalidDate       Kind = "invalid_date"
	KindInvalidRange      Kind = "invalid_range"
	KindRangeExceeded     Kind = "range_exceeded"
	KindOverlap           Kind = "overlap"
	KindObligation        Kind = "obligation"
	KindUnknownPrayerType Kind = "unknown_prayer_type"
	KindOutOfBoundsAmount Kind = "out_of_bounds_amount"
	KindInvalidTransition Kind = "invalid_transition"
	KindInvalidInput      Kind = "invalid_input"
)

// Error is the typed failure returned by the engine packages. Value holds the
// offending input (a date string, a travel period, a prayer key, an amount).
type Error struct {
	Kind    Kind
	Message string
	Value   any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Value == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Value)
}

// Is reports whether target is an *Error of the same kind, so the sentinels
// below can be used with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is comparisons. They carry no message or value.
var (
	ErrInvalidDate       = &Error{Kind: KindInvalidDate}
	ErrInvalidRange      = &Error{Kind: KindInvalidRange}
	ErrRangeExceeded     = &Error{Kind: KindRangeExceeded}
	ErrOverlap           = &Error{Kind: KindOverlap}
	ErrObligation        = &Error{Kind: KindObligation}
	ErrUnknownPrayerType = &Error{Kind: KindUnknownPrayerType}
	ErrOutOfBoundsAmount = &Error{Kind: KindOutOfBoundsAmount}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
)

// NewError builds a typed engine error.
func NewError(kind Kind, value any, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Value: value}
}
