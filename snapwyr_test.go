package snapwyr

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/snapwyr/snapwyr-go/pkg/event"
	"github.com/snapwyr/snapwyr-go/pkg/redact"
)

func newService(t *testing.T, o *Options) (*Service, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	if o == nil {
		o = &Options{}
	}
	o.Output = out
	no := false
	if o.Color == nil {
		o.Color = &no
	}
	s, err := New(o)
	require.NoError(t, err)
	return s, out
}

func sampleEvent() event.Event {
	return event.Event{
		ID:        "id-1",
		Method:    "POST",
		URL:       "/api/users",
		Status:    201,
		Duration:  45,
		Timestamp: 1705314600500,
	}
}

func TestEmitRequest_jsonEndToEnd(t *testing.T) {
	s, out := newService(t, &Options{LogBody: true, Format: FormatJSON})

	e := sampleEvent()
	e.RequestBody = `{"name":"A"}`
	s.EmitRequest(e)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	require.Equal(t, "POST", got["method"])
	require.Equal(t, float64(201), got["status"])
	require.Equal(t, false, got["slow"])
	require.Equal(t, `{"name":"A"}`, got["requestBody"])
	require.Equal(t, "2024-01-15T10:30:00.500Z", got["timestamp"])
}

func TestEmitRequest_disabled(t *testing.T) {
	s, out := newService(t, &Options{Disabled: true})
	s.EmitRequest(sampleEvent())
	require.Empty(t, out.String())
}

func TestEmitRequest_filteredEventSkipsSubscribers(t *testing.T) {
	s, out := newService(t, &Options{ErrorsOnly: true})

	notified := 0
	s.Subscribe(func(event.Event) { notified++ })

	s.EmitRequest(sampleEvent()) // 201, no error: rejected
	require.Empty(t, out.String())
	require.Zero(t, notified)

	e := sampleEvent()
	e.Status = 500
	s.EmitRequest(e)
	require.Equal(t, 1, notified)
	require.NotEmpty(t, out.String())
}

func TestEmitRequest_silentStillNotifies(t *testing.T) {
	var transported []event.Entry
	s, out := newService(t, &Options{
		Silent:    true,
		Transport: func(e event.Entry) { transported = append(transported, e) },
	})

	notified := 0
	s.Subscribe(func(event.Event) { notified++ })
	s.EmitRequest(sampleEvent())

	require.Empty(t, out.String())
	require.Equal(t, 1, notified)
	require.Len(t, transported, 1)
	require.Equal(t, "POST", transported[0].Method)
}

func TestEmitRequest_subscriberPanicIsContained(t *testing.T) {
	var swallowed []error
	s, out := newService(t, &Options{
		OnError: func(err error) { swallowed = append(swallowed, err) },
	})

	order := []string{}
	s.Subscribe(func(event.Event) { order = append(order, "a"); panic("boom") })
	s.Subscribe(func(event.Event) { order = append(order, "b") })

	require.NotPanics(t, func() { s.EmitRequest(sampleEvent()) })
	require.Equal(t, []string{"a", "b"}, order)
	require.Len(t, swallowed, 1)
	require.ErrorContains(t, swallowed[0], "subscriber panic")
	require.NotEmpty(t, out.String())
}

func TestEmitRequest_transportPanicIsContained(t *testing.T) {
	var swallowed []error
	s, _ := newService(t, &Options{
		Transport: func(event.Entry) { panic(errors.New("sink died")) },
		OnError:   func(err error) { swallowed = append(swallowed, err) },
	})

	require.NotPanics(t, func() { s.EmitRequest(sampleEvent()) })
	require.Len(t, swallowed, 1)
	require.ErrorContains(t, swallowed[0], "transport panic")
}

func TestEmitRequest_redactsBodies(t *testing.T) {
	s, out := newService(t, &Options{
		LogBody: true,
		Format:  FormatJSON,
		Redact:  redact.Keys("password"),
	})

	e := sampleEvent()
	e.RequestBody = `{"password":"secret","name":"Jo"}`
	s.EmitRequest(e)

	require.Contains(t, out.String(), `"[REDACTED]"`)
	require.NotContains(t, out.String(), "secret")
	require.Contains(t, out.String(), "Jo")
}

func TestEmitRequest_sizeTrackingDerivesFromBodies(t *testing.T) {
	s, out := newService(t, &Options{LogBody: true, SizeTracking: true, Format: FormatJSON})

	e := sampleEvent()
	e.RequestBody = "1234"
	e.ResponseBody = "123456"
	s.EmitRequest(e)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Equal(t, float64(4), got["requestSize"])
	require.Equal(t, float64(6), got["responseSize"])
	require.Equal(t, float64(10), got["totalSize"])
}

func TestEmitRequest_bodyOmittedWithoutLogBody(t *testing.T) {
	s, out := newService(t, &Options{Format: FormatJSON})

	e := sampleEvent()
	e.RequestBody = `{"name":"A"}`
	s.EmitRequest(e)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.NotContains(t, got, "requestBody")
}

func TestUnsubscribe(t *testing.T) {
	s, _ := newService(t, nil)

	calls := 0
	unsubscribe := s.Subscribe(func(event.Event) { calls++ })
	s.EmitRequest(sampleEvent())
	unsubscribe()
	s.EmitRequest(sampleEvent())

	require.Equal(t, 1, calls)
}

// exercised under -race: emission must not alias the listener slice that a
// concurrent unsubscribe mutates.
func TestEmitRequest_concurrentUnsubscribe(t *testing.T) {
	s, _ := newService(t, &Options{Silent: true})

	var head, tail atomic.Int64
	s.Subscribe(func(event.Event) { head.Add(1) })
	churn := s.Subscribe(func(event.Event) {})
	s.Subscribe(func(event.Event) { tail.Add(1) })

	const emits = 2000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < emits; i++ {
			churn()
			churn = s.Subscribe(func(event.Event) {})
		}
	}()

	for i := 0; i < emits; i++ {
		s.EmitRequest(sampleEvent())
	}
	<-done

	require.EqualValues(t, emits, head.Load())
	require.EqualValues(t, emits, tail.Load())
}

func TestStart_idempotent(t *testing.T) {
	t.Setenv("GO_ENV", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("NODE_ENV", "")

	var warnings []error
	s, _ := newService(t, &Options{OnError: func(err error) { warnings = append(warnings, err) }})

	require.NoError(t, s.Start(nil))
	require.True(t, s.Active())

	require.NoError(t, s.Start(nil))
	require.Len(t, warnings, 1)
	require.ErrorContains(t, warnings[0], "already started")
}

func TestStart_refusesInProduction(t *testing.T) {
	t.Setenv("GO_ENV", "production")

	s, _ := newService(t, nil)
	require.NoError(t, s.Start(nil))
	require.False(t, s.Active())

	require.NoError(t, s.ForceStart(nil))
	require.True(t, s.Active())
}

func TestStop_dropsSubscribersAndRestarts(t *testing.T) {
	t.Setenv("GO_ENV", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("NODE_ENV", "")

	s, _ := newService(t, nil)
	require.NoError(t, s.Start(nil))

	calls := 0
	s.Subscribe(func(event.Event) { calls++ })
	s.Stop()
	require.False(t, s.Active())

	s.EmitRequest(sampleEvent())
	require.Zero(t, calls)

	require.NoError(t, s.Start(nil))
	require.True(t, s.Active())
}

func TestConfigure_mergesAndValidates(t *testing.T) {
	s, _ := newService(t, &Options{Prefix: "[A]"})

	require.NoError(t, s.Configure(&Options{LogBody: true}))
	require.True(t, s.Options().LogBody)
	require.Equal(t, "[A]", s.Options().Prefix)

	require.Error(t, s.Configure(&Options{Format: "nope"}))
	// failed reconfiguration leaves the previous config in place
	require.Equal(t, FormatPretty, s.Options().Format)
}

func TestLogRequest_defaults(t *testing.T) {
	s, out := newService(t, &Options{Format: FormatJSON})

	restore := clock
	clock = func() int64 { return 1705314600500 }
	defer func() { clock = restore }()

	s.LogRequest(LogParams{Status: 200, Duration: 10})

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Equal(t, "GET", got["method"])
	require.Equal(t, "/", got["url"])
	require.NotEmpty(t, got["id"])
	require.Equal(t, "2024-01-15T10:30:00.500Z", got["timestamp"])
}

func TestDefault_singleton(t *testing.T) {
	require.Same(t, Default(), Default())
}

func TestEmitRequest_pretty(t *testing.T) {
	s, out := newService(t, &Options{Prefix: "[API]", RequestID: true})

	e := sampleEvent()
	e.Duration = 1500
	s.EmitRequest(e)

	line := out.String()
	require.True(t, strings.HasPrefix(line, "[API] [id-1]"))
	require.Contains(t, line, "POST")
	require.Contains(t, line, "201")
	require.Contains(t, line, "1500ms [SLOW]")
	require.Contains(t, line, "/api/users")
}
