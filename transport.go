package snapwyr

import (
	"encoding/json"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/snapwyr/snapwyr-go/pkg/event"
)

// FileTransport returns a Transport that appends each entry as one JSON
// line to path, rotating the file once it passes maxSizeMB megabytes
// (default 100) and keeping a handful of old files. Write failures are
// dropped: a dead log file must not affect request handling.
func FileTransport(path string, maxSizeMB int) Transport {
	if maxSizeMB <= 0 {
		maxSizeMB = 100
	}
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: 3,
		Compress:   true,
	}
	return func(entry event.Entry) {
		line, err := json.Marshal(entry)
		if err != nil {
			return
		}
		line = append(line, '\n')
		_, _ = w.Write(line)
	}
}
