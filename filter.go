package snapwyr

import (
	"strings"

	"github.com/snapwyr/snapwyr-go/pkg/event"
)

// shouldLog decides whether an event is observed at all. It is a pure
// function of the configuration and the event; every active gate must
// pass, evaluated in order, first rejection wins.
func shouldLog(o *Options, e *event.Event) bool {
	if o.ErrorsOnly && e.Error == "" && e.Status < 400 {
		return false
	}

	if len(o.methodSet) > 0 && !o.methodSet[strings.ToUpper(e.Method)] {
		return false
	}

	for _, re := range o.ignoreRegexps {
		if re.MatchString(e.URL) {
			return false
		}
	}

	if len(o.statusSet) > 0 {
		if e.Status == 0 || !o.statusSet[e.Status] {
			return false
		}
	}

	return true
}
