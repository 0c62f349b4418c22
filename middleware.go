package snapwyr

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/snapwyr/snapwyr-go/pkg/event"
	"github.com/snapwyr/snapwyr-go/pkg/middleware"
)

// Middleware returns a net/http middleware that logs every request served
// by the wrapped handler through the service. Request bodies are snapshot
// and restored so downstream handlers read them normally; panics in the
// handler are logged as 500s and re-raised.
func Middleware(s *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			o := s.Options()
			if o.Disabled {
				next.ServeHTTP(w, r)
				return
			}

			id := GenerateRequestID()
			start := clock()
			startWall := time.Now()

			var requestBody string
			if o.LogBody && r.Body != nil {
				raw, _ := io.ReadAll(r.Body)
				_ = r.Body.Close()
				r.Body = io.NopCloser(bytes.NewReader(raw))
				if o.BodySizeLimit > 0 && len(raw) > o.BodySizeLimit {
					raw = raw[:o.BodySizeLimit]
				}
				requestBody = string(raw)
			}

			if o.RequestID {
				w.Header().Set("X-Request-ID", id)
			}

			bodyLimit := 0
			if o.LogBody {
				bodyLimit = o.BodySizeLimit
			}
			observer := &middleware.ResponseObserver{ResponseWriter: w, BodyLimit: bodyLimit}

			var recovered any
			func() {
				defer func() {
					recovered = recover()
				}()
				next.ServeHTTP(observer, r)
			}()

			status := observer.StatusCode()
			errMsg := ""
			if recovered != nil {
				status = http.StatusInternalServerError
				errMsg = "panic in handler"
			}

			s.EmitRequest(event.Event{
				ID:           id,
				Method:       r.Method,
				URL:          r.URL.RequestURI(),
				Status:       status,
				Duration:     time.Since(startWall).Milliseconds(),
				Timestamp:    start,
				RequestBody:  requestBody,
				ResponseBody: observer.Body(),
				Error:        errMsg,
				Direction:    event.Incoming,
			})

			if recovered != nil {
				panic(recovered)
			}
		})
	}
}
