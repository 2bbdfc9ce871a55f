package logger

import (
	"encoding"
	"encoding/json"
	"fmt"
	"net/http"
)

var _ encoding.TextMarshaler = LogContext{}

// A LogContext provides additional information
// for a [Logger] method that cannot be tersely captured in the message itself.
type LogContext struct {
	// Data is any information pertinent at the time of the logging event.
	Data map[string]any

	// Error is the error that may or may not have instigated a logging event.
	Error error

	// Request is the *http.Request that may or may not have been open during the logging event.
	Request *http.Request

	// RequestID is the unique ID relay assigned the request being dispatched.
	RequestID string

	// SessionID is the ID of the session active during the logging event, if any.
	//
	// SessionID identifies a live server-side session;
	// treat logs carrying one as sensitive.
	SessionID string
}

// MarshalText converts LogContext into a JSON representation,
// eliminating zero-value fields or fields not requiring logging.
//
// Values in LogContext.Data that cannot be represented in JSON will cause an error to be thrown.
//
// MarshalText implements [encoding.TextMarshaler].
func (lc LogContext) MarshalText() ([]byte, error) {
	m := make(map[string]any)
	if lc.Data != nil {
		m["data"] = lc.Data
	}

	if lc.Error != nil {
		m["error"] = lc.Error.Error()
	}

	if lc.Request != nil {
		r := make(map[string]any)
		r["method"] = lc.Request.Method
		r["url"] = lc.Request.URL.String()
		m["request"] = r
	}

	if lc.RequestID != "" {
		m["requestID"] = lc.RequestID
	}

	if lc.SessionID != "" {
		m["sessionID"] = lc.SessionID
	}

	return json.Marshal(m)
}

// String stringifies LogContext as a JSON representation of it.
func (lc LogContext) String() string {
	b, err := json.Marshal(lc)
	if err != nil {
		fmt.Println(err)
		return ""
	}
	return string(b)
}
