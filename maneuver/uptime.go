package maneuver

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Uptime counts milliseconds since its creation, wrapping around at the uint32 range.
type Uptime struct {
	clock clock.Clock
	boot  time.Time
}

func NewUptime(c clock.Clock) *Uptime {
	if c == nil {
		c = clock.New()
	}
	return &Uptime{
		clock: c,
		boot:  c.Now(),
	}
}

func (u *Uptime) Millis() uint32 {
	return uint32(u.clock.Since(u.boot) / time.Millisecond)
}

func (u *Uptime) Clock() clock.Clock {
	return u.clock
}
