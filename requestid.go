package snapwyr

import (
	"math/rand"
	"strconv"
	"sync/atomic"
	"time"
)

var requestCounter atomic.Uint64

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// GenerateRequestID produces a cheap per-request identifier: base36 epoch
// milliseconds, a monotonically incrementing counter and a short random
// suffix. IDs are not cryptographic, only extremely unlikely to collide
// within the dashboard's retention window.
func GenerateRequestID() string {
	ts := strconv.FormatInt(clock(), 36)
	seq := strconv.FormatUint(requestCounter.Add(1), 36)
	suffix := strconv.FormatUint(uint64(rand.Uint32()), 36)
	return ts + "-" + seq + "-" + suffix
}
