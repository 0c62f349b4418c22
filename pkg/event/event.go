// Package event defines the request event and log entry types shared by the
// snapwyr pipeline, the console formatter and the dashboard server.
package event

import "time"

// Direction reports whether the host process served the request (incoming)
// or issued it to another service (outgoing).
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
)

// Event is one observed HTTP request/response (or failed attempt) in raw
// form, as constructed by an adapter before filtering.
//
// Status == 0 means no response was received; Error is set instead for
// transport-level failures. A record may carry both a status and an error in
// partial-failure scenarios.
type Event struct {
	ID           string    `json:"id"`
	Method       string    `json:"method"`
	URL          string    `json:"url"`
	Status       int       `json:"status,omitempty"`
	Duration     int64     `json:"duration"`
	Timestamp    int64     `json:"timestamp"`
	RequestBody  string    `json:"requestBody,omitempty"`
	ResponseBody string    `json:"responseBody,omitempty"`
	Error        string    `json:"error,omitempty"`
	RequestSize  int       `json:"requestSize,omitempty"`
	ResponseSize int       `json:"responseSize,omitempty"`
	Direction    Direction `json:"direction,omitempty"`
}

// Entry is the filtered, redacted, size-annotated output form of an Event.
// It is created once by the pipeline and immutable thereafter.
//
// Field names in JSON match the dashboard wire protocol.
type Entry struct {
	ID           string    `json:"id"`
	Timestamp    string    `json:"timestamp"`
	Method       string    `json:"method"`
	URL          string    `json:"url"`
	Status       int       `json:"status,omitempty"`
	Duration     int64     `json:"duration"`
	Slow         bool      `json:"slow"`
	Error        string    `json:"error,omitempty"`
	RequestBody  string    `json:"requestBody,omitempty"`
	ResponseBody string    `json:"responseBody,omitempty"`
	Prefix       string    `json:"prefix,omitempty"`
	RequestSize  *int      `json:"requestSize,omitempty"`
	ResponseSize *int      `json:"responseSize,omitempty"`
	TotalSize    *int      `json:"totalSize,omitempty"`
	Direction    Direction `json:"direction,omitempty"`
}

// ISOTimestamp renders epoch milliseconds as an RFC 3339 / ISO-8601 string
// with millisecond precision in UTC, matching the wire format the dashboard
// expects.
func ISOTimestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z")
}
