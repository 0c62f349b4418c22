package dashboard

import (
	"strings"
	"time"

	snapwyr "github.com/snapwyr/snapwyr-go"
	"github.com/snapwyr/snapwyr-go/pkg/event"
)

// bridge receives filtered events from the emitter and pushes them into
// the retention buffer. Malformed fields get safe defaults instead of
// rejecting the event; the dashboard should show something for every
// accepted request.
func (s *Server) bridge(e event.Event) {
	if e.ID == "" {
		e.ID = snapwyr.GenerateRequestID()
	}
	if e.Method == "" {
		e.Method = "GET"
	}
	if e.URL == "" {
		e.URL = "/"
	}
	if e.Duration < 0 {
		e.Duration = 0
	}
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().UnixMilli()
	}

	o := s.emitter.Options()

	entry := event.Entry{
		ID:        e.ID,
		Timestamp: event.ISOTimestamp(e.Timestamp),
		Method:    strings.ToUpper(e.Method),
		URL:       e.URL,
		Status:    e.Status,
		Duration:  e.Duration,
		Slow:      event.IsSlow(e.Duration, o.SlowThreshold),
		Error:     e.Error,
		Direction: e.Direction,
	}
	if o.LogBody {
		entry.RequestBody = e.RequestBody
		entry.ResponseBody = e.ResponseBody
	}
	if o.SizeTracking {
		requestSize := e.RequestSize
		if requestSize == 0 && e.RequestBody != "" {
			requestSize = event.ByteSize(e.RequestBody)
		}
		responseSize := e.ResponseSize
		if responseSize == 0 && e.ResponseBody != "" {
			responseSize = event.ByteSize(e.ResponseBody)
		}
		total := requestSize + responseSize
		entry.RequestSize = &requestSize
		entry.ResponseSize = &responseSize
		entry.TotalSize = &total
	}

	s.Push(entry)
}
