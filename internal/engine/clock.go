package engine

import "time"

// Clock supplies the time used for elapsed-time measurement and record
// timestamps.
//
// SystemClock is used in production; tests use a fixed clock so rendered
// trees and stored timestamps are deterministic.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// CopenhagenLocation is the zone of record timestamps. It falls back to UTC
// when the zone database is unavailable.
func CopenhagenLocation() *time.Location {
	loc, err := time.LoadLocation("Europe/Copenhagen")
	if err != nil {
		return time.UTC
	}
	return loc
}
