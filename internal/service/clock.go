package service

import "time"

// Clock is the source of "now" for every temporal rule (start in the past,
// event started, event ended).
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock reads the wall clock in UTC.
func SystemClock() Clock { return systemClock{} }
