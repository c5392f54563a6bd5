// The clock package lets code that depends on the time of day be tested
// without waiting for the time of day.  Production code uses the system
// clock, tests plug in a stopped clock or one that steps through a list of
// times.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System returns a Clock that supplies the system time.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Stopped is a Clock whose time only changes when it's set.  It's safe to
// set the time in one goroutine and read it in another.
type Stopped struct {
	mutex sync.Mutex
	time  time.Time
}

var _ Clock = (*Stopped)(nil)

// NewStopped creates a Stopped clock showing t.
func NewStopped(t time.Time) *Stopped {
	return &Stopped{time: t}
}

// Set sets the time.
func (c *Stopped) Set(t time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.time = t
}

// Advance moves the time on by d.
func (c *Stopped) Advance(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.time = c.time.Add(d)
}

// Now returns the time that was last set.
func (c *Stopped) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.time
}

// Stepping is a Clock that returns a list of times, one per call of Now.
// Once the list is used up it keeps returning the last one.  With an empty
// list it returns the Unix epoch.
type Stepping struct {
	mutex sync.Mutex
	next  int
	times []time.Time
}

var _ Clock = (*Stepping)(nil)

// NewStepping creates a Stepping clock.
func NewStepping(times ...time.Time) *Stepping {
	return &Stepping{times: times}
}

func (c *Stepping) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if len(c.times) == 0 {
		return time.Unix(0, 0).UTC()
	}
	if c.next == len(c.times) {
		return c.times[len(c.times)-1]
	}
	t := c.times[c.next]
	c.next++
	return t
}
