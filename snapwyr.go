// Package snapwyr observes HTTP traffic in and out of a process and turns
// each request into a structured, filtered, redacted log record.
//
// Outgoing calls are captured by wrapping an [http.Client] with
// [Service.Wrap]; incoming calls by installing [Middleware] (or the
// fasthttp variant). Both feed the same pipeline, which writes to the
// console, to an optional user transport, and to any in-process subscriber
// such as the live dashboard in pkg/dashboard.
package snapwyr

import (
	"fmt"
	"strings"
	"sync"

	"github.com/snapwyr/snapwyr-go/pkg/event"
	"github.com/snapwyr/snapwyr-go/pkg/format"
	"github.com/snapwyr/snapwyr-go/pkg/redact"
)

// overridden in tests
var clock = nowMillis

// Service owns the pipeline configuration and fans observed events out to
// subscribers, the user transport and the console.
//
// The zero Service is not usable; construct one with New, or use the
// package-level functions which share a single process-wide instance.
type Service struct {
	mu        sync.RWMutex
	options   *Options
	active    bool
	listeners []listener
	nextToken int
}

type listener struct {
	token int
	fn    func(event.Event)
}

// New returns a Service with the given options applied. An error is
// returned only if the configuration is invalid.
func New(o *Options) (*Service, error) {
	o, err := o.parse()
	if err != nil {
		return nil, err
	}
	return &Service{options: o}, nil
}

var (
	defaultService *Service
	defaultOnce    sync.Once
)

// Default returns the shared process-wide Service. Every adapter in the
// process that uses the package-level functions observes the same event
// stream through it.
func Default() *Service {
	defaultOnce.Do(func() {
		defaultService, _ = New(nil) // nil options never fail to parse
	})
	return defaultService
}

// Start activates the shared Service. See [Service.Start].
func Start(o *Options) error { return Default().Start(o) }

// Stop deactivates the shared Service. See [Service.Stop].
func Stop() { Default().Stop() }

// Configure merges options into the shared Service. See
// [Service.Configure].
func Configure(o *Options) error { return Default().Configure(o) }

// EmitRequest feeds an event through the shared Service. See
// [Service.EmitRequest].
func EmitRequest(e event.Event) { Default().EmitRequest(e) }

// Start activates the service. It is idempotent: calls after the first
// successful activation are no-ops, reported through OnError as a warning
// rather than an error return. Start refuses to activate when the process
// looks like a production deployment (GO_ENV, APP_ENV or NODE_ENV set to
// "production"); use ForceStart to override that deliberately.
func (s *Service) Start(o *Options) error {
	if inProduction() {
		return nil
	}
	return s.ForceStart(o)
}

// ForceStart activates the service even in production. This is the
// explicit opt-in path for embedders that understand the cost.
func (s *Service) ForceStart(o *Options) error {
	s.mu.Lock()
	if s.active {
		onError := s.options.OnError
		s.mu.Unlock()
		onError(fmt.Errorf("snapwyr: already started"))
		return nil
	}
	s.mu.Unlock()

	if err := s.Configure(o); err != nil {
		return err
	}

	s.mu.Lock()
	s.active = true
	s.mu.Unlock()
	return nil
}

// Stop deactivates the service and removes all subscribers. A stopped
// service can be started again.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.listeners = nil
}

// Active reports whether Start has run.
func (s *Service) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Configure merges the given options into the current configuration and
// re-validates. Safe to call repeatedly; not intended for the per-request
// hot path.
func (s *Service) Configure(o *Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := *s.options
	merged.merge(o)
	parsed, err := merged.parse()
	if err != nil {
		return err
	}
	s.options = parsed
	return nil
}

// Options returns the current configuration. The returned value is shared
// and must not be mutated; reconfigure through Configure.
func (s *Service) Options() *Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.options
}

// Subscribe registers fn to run synchronously for every event that passes
// the filter, in registration order. A panicking subscriber is recovered
// and does not affect other subscribers or the emitting caller. The
// returned function removes the subscription.
func (s *Service) Subscribe(fn func(event.Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextToken++
	token := s.nextToken
	s.listeners = append(s.listeners, listener{token: token, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.token == token {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// EmitRequest runs one observed request through the pipeline: filter,
// redact, annotate, fan out, print. It never panics and never returns an
// error; the host application's request handling must not be affected by
// logging.
func (s *Service) EmitRequest(e event.Event) {
	s.mu.RLock()
	o := s.options
	// copied, not aliased: unsubscribe shifts s.listeners in place under
	// the write lock while this fan-out runs unlocked
	listeners := make([]listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	if o.Disabled {
		return
	}
	if !shouldLog(o, &e) {
		return
	}

	entry := buildEntry(o, &e)

	for _, l := range listeners {
		s.invoke(o, l.fn, e)
	}

	if o.Transport != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					o.OnError(fmt.Errorf("snapwyr: transport panic: %v", r))
				}
			}()
			o.Transport(entry)
		}()
	}

	if o.Silent {
		return
	}
	f := s.formatter(o)
	line := f.Format(&entry)
	if _, err := fmt.Fprintln(o.Output, line); err != nil {
		o.OnError(fmt.Errorf("snapwyr: console write: %w", err))
	}
}

// LogRequest is the adapter-facing ingestion call: it assembles an Event
// from the given parameters and emits it. Zero-value fields get safe
// defaults (generated id, GET, "/").
func (s *Service) LogRequest(p LogParams) {
	if p.ID == "" {
		p.ID = GenerateRequestID()
	}
	if p.Method == "" {
		p.Method = "GET"
	}
	if p.URL == "" {
		p.URL = "/"
	}
	if p.Timestamp == 0 {
		p.Timestamp = clock()
	}
	s.EmitRequest(event.Event{
		ID:           p.ID,
		Method:       strings.ToUpper(p.Method),
		URL:          p.URL,
		Status:       p.Status,
		Duration:     p.Duration,
		Timestamp:    p.Timestamp,
		RequestBody:  p.RequestBody,
		ResponseBody: p.ResponseBody,
		Error:        p.Error,
		Direction:    p.Direction,
	})
}

// LogParams are the fields adapters hand to LogRequest.
type LogParams struct {
	ID           string
	Method       string
	URL          string
	Status       int
	Duration     int64
	Timestamp    int64
	RequestBody  string
	ResponseBody string
	Error        string
	Direction    event.Direction
}

func (s *Service) invoke(o *Options, fn func(event.Event), e event.Event) {
	defer func() {
		if r := recover(); r != nil {
			o.OnError(fmt.Errorf("snapwyr: subscriber panic: %v", r))
		}
	}()
	fn(e)
}

func (s *Service) formatter(o *Options) *format.Formatter {
	color := false
	if o.Format == FormatPretty {
		if o.Color != nil {
			color = *o.Color
		} else {
			color = format.DetectColor()
		}
	}
	return &format.Formatter{
		JSON:          o.Format == FormatJSON,
		ShowTimestamp: !o.HideTimestamp,
		Emoji:         o.Emoji,
		RequestID:     o.RequestID,
		SizeTracking:  o.SizeTracking,
		Color:         color,
	}
}

// buildEntry produces the immutable output form of an event: redacted
// bodies, derived sizes, slow classification and an ISO timestamp.
func buildEntry(o *Options, e *event.Event) event.Entry {
	requestBody := e.RequestBody
	responseBody := e.ResponseBody

	requestSize := e.RequestSize
	if requestSize == 0 && requestBody != "" {
		requestSize = event.ByteSize(requestBody)
	}
	responseSize := e.ResponseSize
	if responseSize == 0 && responseBody != "" {
		responseSize = event.ByteSize(responseBody)
	}
	totalSize := requestSize + responseSize

	if len(o.Redact) > 0 {
		if requestBody != "" {
			requestBody = redact.Redact(requestBody, o.Redact)
		}
		if responseBody != "" {
			responseBody = redact.Redact(responseBody, o.Redact)
		}
	}

	entry := event.Entry{
		ID:        e.ID,
		Timestamp: event.ISOTimestamp(e.Timestamp),
		Method:    strings.ToUpper(e.Method),
		URL:       e.URL,
		Status:    e.Status,
		Duration:  e.Duration,
		Slow:      event.IsSlow(e.Duration, o.SlowThreshold),
		Error:     e.Error,
		Prefix:    o.Prefix,
		Direction: e.Direction,
	}
	if o.LogBody {
		entry.RequestBody = requestBody
		entry.ResponseBody = responseBody
	}
	if o.SizeTracking {
		entry.RequestSize = &requestSize
		entry.ResponseSize = &responseSize
		entry.TotalSize = &totalSize
	}
	return entry
}
