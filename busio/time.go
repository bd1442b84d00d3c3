package busio

import (
	"math"
	"time"
)

// secondsToTime converts wire float seconds back to a time, rounded to the
// nearest microsecond: a float64 near the current epoch only resolves about
// a quarter of a microsecond, so finer digits are encoding noise.
func secondsToTime(seconds float64) time.Time {
	sec := math.Floor(seconds)
	usec := math.Round((seconds - sec) * 1e6)
	return time.Unix(int64(sec), int64(usec)*int64(time.Microsecond)).UTC()
}
