// Package format renders log entries for the console, either as one
// colorized human-readable line or as compact line-delimited JSON.
package format

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/snapwyr/snapwyr-go/pkg/event"
)

const maxBodyPreview = 200

var (
	styleDim  = lipgloss.NewStyle().Faint(true)
	styleBold = lipgloss.NewStyle().Bold(true)

	styleOK          = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleRedirect    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	styleClientError = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleServerError = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	styleFast = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleSlow = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	methodStyles = map[string]lipgloss.Style{
		"GET":    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"POST":   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"PUT":    lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"PATCH":  lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
		"DELETE": lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
)

// Formatter renders entries according to the configured output options.
// The zero value renders plain pretty lines without color.
type Formatter struct {
	// JSON selects line-delimited JSON output instead of pretty lines.
	JSON bool
	// ShowTimestamp includes an HH:MM:SS.mmm segment in pretty lines.
	ShowTimestamp bool
	// Emoji prefixes the status with a tier indicator.
	Emoji bool
	// RequestID includes the bracketed request id.
	RequestID bool
	// SizeTracking includes the formatted total payload size.
	SizeTracking bool
	// Color enables terminal styling. Use DetectColor for the usual
	// isatty gate.
	Color bool
}

// DetectColor reports whether stdout is a terminal, the conventional
// default for the Color option.
func DetectColor() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// Format renders e as a single line (plus indented detail lines when an
// error or captured bodies are present). It never panics; malformed fields
// degrade to empty segments.
func (f *Formatter) Format(e *event.Entry) string {
	if f.JSON {
		return f.formatJSON(e)
	}
	return f.formatPretty(e)
}

func (f *Formatter) formatJSON(e *event.Entry) string {
	out, err := json.Marshal(e)
	if err != nil {
		// Entry contains only plain data; this is unreachable in
		// practice but the formatter must not fail.
		return "{}"
	}
	return string(out)
}

func (f *Formatter) formatPretty(e *event.Entry) string {
	var parts []string

	if e.Prefix != "" {
		parts = append(parts, f.dim(e.Prefix))
	}
	if f.RequestID && e.ID != "" {
		parts = append(parts, f.dim("["+e.ID+"]"))
	}
	if f.ShowTimestamp {
		if ts := timeOfDay(e.Timestamp); ts != "" {
			parts = append(parts, f.dim(ts))
		}
	}

	method := strings.ToUpper(e.Method)
	parts = append(parts, f.styleMethod(method, fmt.Sprintf("%-6s", method)))

	status := "ERROR"
	if e.Status != 0 {
		status = strconv.Itoa(e.Status)
	}
	parts = append(parts, f.styleStatus(e, f.emoji(e)+status))

	duration := f.styleDuration(e, strconv.FormatInt(e.Duration, 10)+"ms")
	if e.Slow {
		duration += " " + f.bold("[SLOW]")
	}
	parts = append(parts, duration)

	if f.SizeTracking && e.TotalSize != nil {
		parts = append(parts, f.dim(event.FormatBytes(*e.TotalSize)))
	}

	parts = append(parts, f.dim(e.URL))

	line := strings.Join(parts, " ")

	if e.Error != "" {
		line += "\n  " + f.dim("Error: "+truncate(e.Error))
	}
	if e.RequestBody != "" {
		line += "\n  " + f.dim("Request: "+truncate(e.RequestBody))
	}
	if e.ResponseBody != "" {
		line += "\n  " + f.dim("Response: "+truncate(e.ResponseBody))
	}
	return line
}

// timeOfDay extracts the HH:MM:SS.mmm slice from an ISO-8601 timestamp.
// Anything unparseable yields an empty segment.
func timeOfDay(iso string) string {
	if len(iso) < 23 || iso[10] != 'T' {
		return ""
	}
	return iso[11:23]
}

// truncate caps previews at maxBodyPreview characters, never splitting a
// multi-byte rune.
func truncate(body string) string {
	if len(body) <= maxBodyPreview {
		return body
	}
	runes := []rune(body)
	if len(runes) <= maxBodyPreview {
		return body
	}
	return string(runes[:maxBodyPreview]) + "..."
}

func (f *Formatter) emoji(e *event.Entry) string {
	if !f.Emoji {
		return ""
	}
	switch {
	case e.Error != "" || e.Status >= 500:
		return "✗ "
	case e.Status >= 400:
		return "⚠ "
	case e.Status >= 300:
		return "↪ "
	default:
		return "✓ "
	}
}

func (f *Formatter) styleMethod(method, rendered string) string {
	if !f.Color {
		return rendered
	}
	if st, ok := methodStyles[method]; ok {
		return st.Render(rendered)
	}
	return rendered
}

func (f *Formatter) styleStatus(e *event.Entry, s string) string {
	if !f.Color {
		return s
	}
	switch {
	case e.Error != "" || e.Status >= 500:
		return styleServerError.Render(s)
	case e.Status >= 400:
		return styleClientError.Render(s)
	case e.Status >= 300:
		return styleRedirect.Render(s)
	case e.Status > 0:
		return styleOK.Render(s)
	default:
		return styleServerError.Render(s)
	}
}

func (f *Formatter) styleDuration(e *event.Entry, s string) string {
	if !f.Color {
		return s
	}
	if e.Duration < 100 {
		return styleFast.Render(s)
	}
	return styleSlow.Render(s)
}

func (f *Formatter) dim(s string) string {
	if !f.Color {
		return s
	}
	return styleDim.Render(s)
}

func (f *Formatter) bold(s string) string {
	if !f.Color {
		return s
	}
	return styleBold.Render(s)
}
