package lake

import "time"

// startTime converts an epoch-milliseconds value to absolute UTC time.
func startTime(ms int64) time.Time {
	return time.Unix(ms/1000, (ms%1000)*int64(time.Millisecond)).UTC()
}

// weekOfYear is the ISO 8601 week number, matching the engine convention
// the time dimension was originally built with.
func weekOfYear(t time.Time) int64 {
	_, wk := t.ISOWeek()
	return int64(wk)
}

// dayOfWeek numbers days 1=Sunday through 7=Saturday, the original
// engine's default convention.
func dayOfWeek(t time.Time) int64 {
	return int64(t.Weekday()) + 1
}
