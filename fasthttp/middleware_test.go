package fasthttp

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	snapwyr "github.com/snapwyr/snapwyr-go"
)

func newService(t *testing.T, o *snapwyr.Options) (*snapwyr.Service, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	if o == nil {
		o = &snapwyr.Options{}
	}
	o.Output = out
	no := false
	o.Color = &no
	s, err := snapwyr.New(o)
	require.NoError(t, err)
	return s, out
}

func runRequest(handler fasthttp.RequestHandler, method, uri string, body []byte) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	if body != nil {
		req.SetBody(body)
	}
	ctx.Init(&req, nil, nil)
	handler(&ctx)
	return &ctx
}

func TestMiddleware_logsRequest(t *testing.T) {
	s, out := newService(t, &snapwyr.Options{LogBody: true, Format: snapwyr.FormatJSON})

	handler := Middleware(s, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusCreated)
		ctx.SetBodyString(`{"id":7}`)
	})

	ctx := runRequest(handler, "POST", "/api/users", []byte(`{"name":"A"}`))
	require.Equal(t, fasthttp.StatusCreated, ctx.Response.StatusCode())

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Equal(t, "POST", got["method"])
	require.Equal(t, "/api/users", got["url"])
	require.Equal(t, float64(201), got["status"])
	require.Equal(t, `{"name":"A"}`, got["requestBody"])
	require.Equal(t, `{"id":7}`, got["responseBody"])
	require.Equal(t, "incoming", got["direction"])
}

func TestMiddleware_requestIDHeader(t *testing.T) {
	s, _ := newService(t, &snapwyr.Options{RequestID: true, Silent: true})

	handler := Middleware(s, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString("ok")
	})

	ctx := runRequest(handler, "GET", "/", nil)
	require.NotEmpty(t, ctx.Response.Header.Peek("X-Request-ID"))
}

func TestMiddleware_panicLoggedAndRethrown(t *testing.T) {
	s, out := newService(t, &snapwyr.Options{Format: snapwyr.FormatJSON})

	handler := Middleware(s, func(ctx *fasthttp.RequestCtx) {
		panic("handler exploded")
	})

	require.Panics(t, func() { runRequest(handler, "GET", "/boom", nil) })

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Equal(t, float64(500), got["status"])
	require.NotEmpty(t, got["error"])
}

func TestMiddleware_disabledPassesThrough(t *testing.T) {
	s, out := newService(t, &snapwyr.Options{Disabled: true})

	called := false
	handler := Middleware(s, func(ctx *fasthttp.RequestCtx) { called = true })
	runRequest(handler, "GET", "/", nil)

	require.True(t, called)
	require.Empty(t, out.String())
}
