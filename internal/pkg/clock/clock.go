package clock

import "time"

// Clock tells the current time
type Clock interface {
	Now() time.Time
}

// Real reads the wall clock in a fixed location
type Real struct {
	Location *time.Location
}

// New returns a wall clock in loc (time.Local when nil)
func New(loc *time.Location) Real {
	if loc == nil {
		loc = time.Local
	}
	return Real{Location: loc}
}

// Now returns the current time in the clock's location
func (r Real) Now() time.Time {
	return time.Now().In(r.Location)
}

// Func adapts a plain function to Clock
type Func func() time.Time

// Now calls f
func (f Func) Now() time.Time {
	return f()
}

// Fixed always returns t
func Fixed(t time.Time) Clock {
	return Func(func() time.Time { return t })
}
