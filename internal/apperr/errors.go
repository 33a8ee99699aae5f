package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks malformed or missing request fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownLine marks a line name that is not in the station table.
	ErrUnknownLine = errors.New("unknown line")

	// ErrUnknownStation marks a station name that is not on the requested line.
	ErrUnknownStation = errors.New("unknown station")

	// ErrUpstreamUnavailable marks a venue API or romanizer failure.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

type Kind int

const (
	InvalidInput Kind = iota
	UnknownLine
	UnknownStation
)

func (k Kind) String() string {
	switch k {
	case UnknownLine:
		return "unknown_line"
	case UnknownStation:
		return "unknown_station"
	default:
		return "invalid_input"
	}
}

// Which side of the section failed station validation.
const (
	Start = "start"
	End   = "end"
)

// ValidationError is returned by the route resolver when a request cannot be
// resolved. Suggestions holds up to three alternative names.
type ValidationError struct {
	Kind        Kind
	Field       string
	Value       string
	Line        string
	Which       string
	Suggestions []string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case UnknownLine:
		return fmt.Sprintf("unknown line %q", e.Value)
	case UnknownStation:
		return fmt.Sprintf("unknown %s station %q on line %q", e.Which, e.Value, e.Line)
	default:
		return fmt.Sprintf("invalid input: %s is required", e.Field)
	}
}

// Is implements errors.Is for ValidationError
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrInvalidInput:
		return e.Kind == InvalidInput
	case ErrUnknownLine:
		return e.Kind == UnknownLine
	case ErrUnknownStation:
		return e.Kind == UnknownStation
	}
	return false
}

func MissingField(field string) *ValidationError {
	return &ValidationError{Kind: InvalidInput, Field: field}
}

func NewUnknownLine(line string, suggestions []string) *ValidationError {
	return &ValidationError{Kind: UnknownLine, Field: "line", Value: line, Suggestions: suggestions}
}

func NewUnknownStation(line, which, name string, suggestions []string) *ValidationError {
	return &ValidationError{Kind: UnknownStation, Field: which, Value: name, Line: line, Which: which, Suggestions: suggestions}
}
