package dashboard

import (
	"math"
	"time"

	"github.com/snapwyr/snapwyr-go/pkg/event"
)

// Stats are the derived numbers shown in the dashboard header.
type Stats struct {
	TotalRequests     int     `json:"totalRequests"`
	AvgDuration       int64   `json:"avgDuration"`
	ErrorRate         int     `json:"errorRate"`
	RequestsPerSecond float64 `json:"requestsPerSecond"`
}

func calculateStats(entries []event.Entry) Stats {
	if len(entries) == 0 {
		return Stats{}
	}

	var totalDuration int64
	errors := 0
	for _, e := range entries {
		totalDuration += e.Duration
		if e.Error != "" || e.Status >= 400 {
			errors++
		}
	}

	n := int64(len(entries))
	return Stats{
		TotalRequests:     len(entries),
		AvgDuration:       (totalDuration + n/2) / n,
		ErrorRate:         int(math.Round(float64(errors) / float64(len(entries)) * 100)),
		RequestsPerSecond: requestsPerSecond(entries),
	}
}

// requestsPerSecond is derived from the timestamp span of the retained
// entries. A single entry (or an unparseable span) yields 0.
func requestsPerSecond(entries []event.Entry) float64 {
	if len(entries) < 2 {
		return 0
	}
	first, err1 := time.Parse(time.RFC3339Nano, entries[0].Timestamp)
	last, err2 := time.Parse(time.RFC3339Nano, entries[len(entries)-1].Timestamp)
	if err1 != nil || err2 != nil {
		return 0
	}
	span := last.Sub(first).Seconds()
	if span <= 0 {
		return 0
	}
	return math.Round(float64(len(entries))/span*100) / 100
}
