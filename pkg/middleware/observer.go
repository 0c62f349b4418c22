// Package middleware holds the response writer wrapper used by the
// incoming net/http adapter to observe status codes and bodies.
package middleware

import (
	"bytes"
	"net/http"
)

// ResponseObserver wraps an http.ResponseWriter and records the status
// code and (up to BodyLimit bytes of) the response body while passing
// everything through to the client untouched. BodyLimit <= 0 disables body
// capture.
type ResponseObserver struct {
	http.ResponseWriter
	Status      int
	BodyLimit   int
	body        bytes.Buffer
	wroteHeader bool
}

func (o *ResponseObserver) Write(p []byte) (n int, err error) {
	if !o.wroteHeader {
		o.WriteHeader(http.StatusOK)
	}
	n, err = o.ResponseWriter.Write(p)
	if o.BodyLimit > 0 && o.body.Len() < o.BodyLimit {
		remaining := o.BodyLimit - o.body.Len()
		if len(p) > remaining {
			p = p[:remaining]
		}
		o.body.Write(p)
	}
	return
}

func (o *ResponseObserver) WriteHeader(code int) {
	o.ResponseWriter.WriteHeader(code)
	if o.wroteHeader {
		return
	}
	o.wroteHeader = true
	o.Status = code
}

// Body returns the captured response body.
func (o *ResponseObserver) Body() string {
	return o.body.String()
}

// StatusCode returns the observed status, defaulting to 200 when the
// handler never wrote a header explicitly.
func (o *ResponseObserver) StatusCode() int {
	if o.Status == 0 {
		return http.StatusOK
	}
	return o.Status
}

// Flush passes through to the underlying writer when it supports it, so
// streaming handlers keep working behind the observer.
func (o *ResponseObserver) Flush() {
	if f, ok := o.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
