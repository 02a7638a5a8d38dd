package acis

import (
	"errors"
	"fmt"
)

// ErrStreamConsumed is returned when a Stream is iterated a second time.
var ErrStreamConsumed = errors.New("acis: stream already consumed")

// InvalidIntervalError reports an interval that is neither a known name nor
// a valid (years, months, days) triple.
type InvalidIntervalError struct {
	Value  any
	Reason string
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("invalid interval %v: %s", e.Value, e.Reason)
}

// MissingDateError is returned when call parameters carry neither "sdate"
// nor "date".
type MissingDateError struct{}

func (e *MissingDateError) Error() string {
	return "missing start date: params need sdate or date"
}

// UnboundedSpanError is returned when a span bounded by the period of record
// is expanded into concrete dates.
type UnboundedSpanError struct {
	Bound string
}

func (e *UnboundedSpanError) Error() string {
	return fmt.Sprintf("cannot expand date span: %s is bounded by the period of record", e.Bound)
}

// ResultError is an error reported in, or detected in, a server result
// object.
type ResultError struct {
	Message string
}

func (e *ResultError) Error() string {
	return "result error: " + e.Message
}

// MalformedPayloadError is returned when a query lacks its params or result.
type MalformedPayloadError struct {
	Field string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed payload: missing %q", e.Field)
}

// RequestError means the server rejected the request. For HTTP failures
// StatusCode is set; for a CSV error sentinel it is zero.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request error (status %d): %s", e.StatusCode, e.Message)
	}
	return "request error: " + e.Message
}

// ParameterError reports an invalid request option.
type ParameterError struct {
	Param   string
	Message string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Message)
}
