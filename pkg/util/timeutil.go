package util

import "time"

// NowUTC exposes time.Now for deterministic testing.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// Clock returns the current time; services accept one so tests can pin it.
type Clock func() time.Time

// LocalClock reports wall time in the server's zone, which is what calendar
// features (hour, weekday) are expected to reflect.
func LocalClock() time.Time {
	return time.Now()
}
