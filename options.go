package snapwyr

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/snapwyr/snapwyr-go/pkg/event"
	"github.com/snapwyr/snapwyr-go/pkg/redact"
)

// Transport is a user-supplied callback invoked with each log entry, for
// custom sink integration.
type Transport func(entry event.Entry)

// Options configure the snapwyr pipeline.
type Options struct {
	// Disabled turns logging off without removing the integration.
	// Logging is enabled by default. Setting the SNAPWYR_DISABLED
	// environment variable turns it off as well.
	Disabled bool

	// LogBody captures request and response bodies in log output.
	LogBody bool

	// BodySizeLimit caps captured bodies, in bytes (default 1000).
	BodySizeLimit int

	// IgnorePatterns are regular expressions matched against the request
	// URL; a match drops the event. An invalid pattern is a
	// configuration error.
	IgnorePatterns []string

	// Methods restricts logging to the listed HTTP verbs
	// (case-insensitive). Empty means all methods.
	Methods []string

	// ErrorsOnly drops everything except failed requests and 4xx/5xx
	// responses.
	ErrorsOnly bool

	// HideTimestamp removes the time-of-day segment from pretty output.
	// Timestamps are shown by default.
	HideTimestamp bool

	// Format selects "pretty" (default) or "json" console output.
	Format string

	// Silent suppresses all console output. Subscribers and the
	// Transport still run.
	Silent bool

	// Emoji adds status tier indicators to pretty output.
	Emoji bool

	// Prefix is prepended to every log line, e.g. "[API]".
	Prefix string

	// SlowThreshold marks requests at or above this duration in
	// milliseconds as slow (default 1000).
	SlowThreshold int64

	// Redact lists patterns whose matching body values are replaced with
	// "[REDACTED]" before any output.
	Redact []redact.Pattern

	// Transport receives every log entry after filtering and redaction.
	Transport Transport

	// RequestID echoes an X-Request-ID response header from the incoming
	// middleware and includes the id in log output.
	RequestID bool

	// StatusCodes restricts logging to the listed response codes. Empty
	// means all.
	StatusCodes []int

	// SizeTracking computes and displays payload byte sizes.
	SizeTracking bool

	// OnError receives errors the pipeline swallowed, such as a
	// panicking transport callback. Defaults to writing on os.Stderr.
	OnError func(error)

	// Output is where console lines go (defaults to os.Stdout). Tests
	// inject a buffer here.
	Output io.Writer

	// Color forces terminal styling on or off. When nil, styling follows
	// stdout TTY detection.
	Color *bool

	ignoreRegexps []*regexp.Regexp
	methodSet     map[string]bool
	statusSet     map[int]bool
}

const (
	// FormatPretty renders colorized human-readable lines.
	FormatPretty = "pretty"
	// FormatJSON renders one compact JSON object per line.
	FormatJSON = "json"
)

const defaultBodySizeLimit = 1000

func (o *Options) parse() (*Options, error) {
	if o == nil {
		o = &Options{}
	} else {
		dup := *o
		o = &dup
	}

	if os.Getenv("SNAPWYR_DISABLED") != "" {
		o.Disabled = true
	}

	if o.Format == "" {
		o.Format = FormatPretty
	}
	if o.Format != FormatPretty && o.Format != FormatJSON {
		return nil, fmt.Errorf("snapwyr: unknown format %q (want %q or %q)", o.Format, FormatPretty, FormatJSON)
	}

	if o.BodySizeLimit == 0 {
		o.BodySizeLimit = defaultBodySizeLimit
	}
	if o.BodySizeLimit < 0 {
		return nil, fmt.Errorf("snapwyr: BodySizeLimit must not be negative")
	}

	if o.SlowThreshold == 0 {
		o.SlowThreshold = event.DefaultSlowThreshold
	}
	if o.SlowThreshold < 0 {
		return nil, fmt.Errorf("snapwyr: SlowThreshold must not be negative")
	}

	o.ignoreRegexps = make([]*regexp.Regexp, 0, len(o.IgnorePatterns))
	for _, pattern := range o.IgnorePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("snapwyr: invalid ignore pattern %q: %w", pattern, err)
		}
		o.ignoreRegexps = append(o.ignoreRegexps, re)
	}

	o.methodSet = make(map[string]bool, len(o.Methods))
	for _, m := range o.Methods {
		o.methodSet[strings.ToUpper(m)] = true
	}

	o.statusSet = make(map[int]bool, len(o.StatusCodes))
	for _, s := range o.StatusCodes {
		o.statusSet[s] = true
	}

	if o.OnError == nil {
		o.OnError = func(e error) {
			fmt.Fprintln(os.Stderr, e)
		}
	}

	if o.Output == nil {
		o.Output = os.Stdout
	}

	return o, nil
}

// merge overlays the set fields of other onto o, last write wins per key.
// All boolean options are off by default, so true wins and false is a
// no-op; use a fresh Service to drop a previously-set flag.
func (o *Options) merge(other *Options) {
	if other == nil {
		return
	}
	o.Disabled = o.Disabled || other.Disabled
	o.LogBody = o.LogBody || other.LogBody
	o.ErrorsOnly = o.ErrorsOnly || other.ErrorsOnly
	o.HideTimestamp = o.HideTimestamp || other.HideTimestamp
	o.Silent = o.Silent || other.Silent
	o.Emoji = o.Emoji || other.Emoji
	o.RequestID = o.RequestID || other.RequestID
	o.SizeTracking = o.SizeTracking || other.SizeTracking

	if other.BodySizeLimit != 0 {
		o.BodySizeLimit = other.BodySizeLimit
	}
	if other.IgnorePatterns != nil {
		o.IgnorePatterns = other.IgnorePatterns
	}
	if other.Methods != nil {
		o.Methods = other.Methods
	}
	if other.Format != "" {
		o.Format = other.Format
	}
	if other.Prefix != "" {
		o.Prefix = other.Prefix
	}
	if other.SlowThreshold != 0 {
		o.SlowThreshold = other.SlowThreshold
	}
	if other.Redact != nil {
		o.Redact = other.Redact
	}
	if other.Transport != nil {
		o.Transport = other.Transport
	}
	if other.StatusCodes != nil {
		o.StatusCodes = other.StatusCodes
	}
	if other.OnError != nil {
		o.OnError = other.OnError
	}
	if other.Output != nil {
		o.Output = other.Output
	}
	if other.Color != nil {
		o.Color = other.Color
	}
}

// inProduction reports whether the process looks like a production
// deployment. Interception never activates in production through the
// default Start path.
func inProduction() bool {
	for _, key := range []string{"GO_ENV", "APP_ENV", "NODE_ENV"} {
		if strings.EqualFold(os.Getenv(key), "production") {
			return true
		}
	}
	return false
}
