// Package fasthttp provides middleware for instrumenting
// github.com/valyala/fasthttp handlers with snapwyr.
package fasthttp

import (
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	snapwyr "github.com/snapwyr/snapwyr-go"
	"github.com/snapwyr/snapwyr-go/pkg/event"
)

// Middleware wraps a fasthttp handler so every request it serves is logged
// through the service. Panics in the handler are logged as 500s and
// re-raised.
func Middleware(s *snapwyr.Service, next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		o := s.Options()
		if o.Disabled {
			next(ctx)
			return
		}

		id := snapwyr.GenerateRequestID()
		start := time.Now()

		var requestBody string
		if o.LogBody {
			requestBody = capped(ctx.PostBody(), o.BodySizeLimit)
		}

		if o.RequestID {
			ctx.Response.Header.Set("X-Request-ID", id)
		}

		var recovered any
		func() {
			defer func() {
				recovered = recover()
			}()
			next(ctx)
		}()

		status := ctx.Response.StatusCode()
		errMsg := ""
		if recovered != nil {
			status = fasthttp.StatusInternalServerError
			errMsg = "panic in handler"
		}

		var responseBody string
		if o.LogBody && recovered == nil {
			responseBody = capped(ctx.Response.Body(), o.BodySizeLimit)
		}

		s.EmitRequest(event.Event{
			ID:           id,
			Method:       strings.ToUpper(string(ctx.Method())),
			URL:          string(ctx.URI().RequestURI()),
			Status:       status,
			Duration:     time.Since(start).Milliseconds(),
			Timestamp:    start.UnixMilli(),
			RequestBody:  requestBody,
			ResponseBody: responseBody,
			Error:        errMsg,
			Direction:    event.Incoming,
		})

		if recovered != nil {
			panic(recovered)
		}
	}
}

func capped(b []byte, limit int) string {
	if limit > 0 && len(b) > limit {
		b = b[:limit]
	}
	return string(append([]byte(nil), b...))
}
