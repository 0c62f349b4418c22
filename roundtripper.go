package snapwyr

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/snapwyr/snapwyr-go/pkg/event"
)

type roundTripper struct {
	s    *Service
	next http.RoundTripper
}

// Wrap returns a new http client that calls the original and also logs
// every request through the service. The application opts in by using the
// returned client (or by setting http.DefaultClient to it); responses and
// errors pass through untouched.
func (s *Service) Wrap(client *http.Client) *http.Client {
	next := client.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	return &http.Client{
		Transport:     &roundTripper{s: s, next: next},
		CheckRedirect: client.CheckRedirect,
		Jar:           client.Jar,
		Timeout:       client.Timeout,
	}
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	o := rt.s.Options()
	if o.Disabled {
		return rt.next.RoundTrip(req)
	}

	id := GenerateRequestID()
	start := clock()
	startWall := time.Now()

	var requestBody string
	if o.LogBody && req.Body != nil {
		requestBody, req.Body = captureBody(req.Body, o.BodySizeLimit)
	}

	resp, err := rt.next.RoundTrip(req)
	duration := time.Since(startWall).Milliseconds()

	e := event.Event{
		ID:          id,
		Method:      req.Method,
		URL:         req.URL.String(),
		Duration:    duration,
		Timestamp:   start,
		RequestBody: requestBody,
		Direction:   event.Outgoing,
	}
	if err != nil {
		e.Error = err.Error()
	} else {
		e.Status = resp.StatusCode
		if o.LogBody && resp.Body != nil {
			e.ResponseBody, resp.Body = captureBody(resp.Body, o.BodySizeLimit)
		}
	}

	rt.s.EmitRequest(e)
	return resp, err
}

// captureBody reads the body for logging and hands the caller back an
// equivalent reader so the wrapped transport sees the same stream. The
// captured copy is capped at limit bytes; the replacement reader is not.
func captureBody(r io.ReadCloser, limit int) (string, io.ReadCloser) {
	b, err := io.ReadAll(r)
	rc := &replayReader{c: r, r: bytes.NewReader(b), e: err}

	captured := b
	if limit > 0 && len(captured) > limit {
		captured = captured[:limit]
	}
	return string(captured), rc
}

type replayReader struct {
	c io.ReadCloser
	r *bytes.Reader
	e error
}

func (rr *replayReader) Read(b []byte) (int, error) {
	if rr.e != nil {
		return 0, rr.e
	}
	return rr.r.Read(b)
}

func (rr *replayReader) Close() error {
	return rr.c.Close()
}
