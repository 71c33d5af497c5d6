package engine

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Every typed error below matches exactly one of them.
var (
	ErrLoad            = errors.New("dataset load failed")
	ErrSchema          = errors.New("dataset schema invalid")
	ErrInvalidRange    = errors.New("invalid year range")
	ErrInvalidArgument = errors.New("invalid argument")
)

// LoadError reports a source that could not be fetched, read or parsed.
// It is fatal for the session: there is no data to query.
type LoadError struct {
	URI        string
	Op         string // "fetch", "read" or "parse"
	StatusCode int    // HTTP status for non-2xx responses, 0 otherwise
	Err        error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("load %s: %s failed", e.URI, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// SchemaError reports a required column that is absent or ambiguous.
type SchemaError struct {
	URI    string
	Column string
	Reason string // "missing" or "duplicate"
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s: column %q %s", e.URI, e.Column, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// InvalidRangeError is returned for a year range with Min > Max.
type InvalidRangeError struct {
	Min, Max int
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid year range [%d, %d]: min must not exceed max", e.Min, e.Max)
}

func (e *InvalidRangeError) Is(target error) bool { return target == ErrInvalidRange }

// InvalidArgumentError is returned for a bad caller-supplied query parameter.
type InvalidArgumentError struct {
	Name   string
	Value  any
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s=%v: %s", e.Name, e.Value, e.Reason)
}

func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }
