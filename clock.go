package snowflake

import "time"

// Clock returns the current absolute time in Unix milliseconds.
//
// The generator subtracts its epoch from every reading and treats the result
// as untrusted: a reading earlier than the previous one fails NextID with
// ErrClockMovedBackwards.
type Clock func() int64

// SystemClock returns a Clock anchored to the wall clock at the time of the
// call and advanced by Go's monotonic clock afterwards.
//
// NTP steps and manual time changes made after the anchor do not move the
// readings backwards. A process restart re-anchors to the wall clock, which is
// where ErrClockMovedBackwards can still surface across restarts.
func SystemClock() Clock {
	anchor := time.Now()
	return func() int64 {
		return anchor.Add(time.Since(anchor)).UnixMilli()
	}
}

// WallClock is a Clock that reads time.Now on every call with no monotonic
// protection. Useful for reproducing clock-step behaviour.
func WallClock() int64 {
	return time.Now().UnixMilli()
}
