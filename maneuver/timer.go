// Package maneuver tracks timed motion maneuvers without blocking. A maneuver is armed with a
// duration and an optional completion; expiry is only discovered when the owner polls the timer.
package maneuver

import (
	"fmt"
	"math"
	"time"
)

type Kind int

const (
	None Kind = iota
	Forward
	Backward
	Turn
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case Turn:
		return "turn"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Maneuver describes a timed motion. Param is the requested speed for straight moves
// and the angle for turns.
type Maneuver struct {
	Kind     Kind
	Param    int
	Duration time.Duration
}

func (m Maneuver) String() string {
	return fmt.Sprintf("%v(%v) for %v", m.Kind, m.Param, m.Duration)
}

// Completion is invoked synchronously from the poll that discovers the expiry. It may arm a new maneuver.
type Completion func(m Maneuver)

// Timer is either idle or armed with exactly one maneuver. Arming replaces any previous maneuver,
// whose completion is then never invoked.
type Timer struct {
	running    bool
	startMs    uint32
	durationMs uint32
	maneuver   Maneuver
	completion Completion
}

// Longest duration that can still expire within the wrapping millisecond range
const MaxDuration = (math.MaxUint32 - 1) * time.Millisecond

// Arm starts a maneuver. Negative durations are treated as zero and durations beyond
// MaxDuration are shortened to MaxDuration.
func (t *Timer) Arm(nowMs uint32, m Maneuver, completion Completion) {
	if m.Duration < 0 {
		m.Duration = 0
	} else if m.Duration > MaxDuration {
		m.Duration = MaxDuration
	}
	t.running = true
	t.startMs = nowMs
	t.durationMs = uint32(m.Duration / time.Millisecond)
	t.maneuver = m
	t.completion = completion
}

func (t *Timer) Disarm() {
	*t = Timer{}
}

func (t *Timer) Armed() bool {
	return t.running
}

// Current returns the armed maneuver
func (t *Timer) Current() (Maneuver, bool) {
	return t.maneuver, t.running
}

// Elapsed is wraparound safe, as long as maneuvers are shorter than the uint32 millisecond range.
func (t *Timer) Elapsed(nowMs uint32) uint32 {
	if !t.running {
		return 0
	}
	return nowMs - t.startMs
}

// Poll checks for expiry. An expired maneuver is moved out of the timer, which is idle afterwards.
// The caller must stop the motion before firing the returned Expired value, so a completion that
// arms a new maneuver is not affected by the cleanup of the old one.
func (t *Timer) Poll(nowMs uint32) (*Expired, bool) {
	if !t.running || t.Elapsed(nowMs) <= t.durationMs {
		return nil, false
	}
	expired := &Expired{
		Maneuver:   t.maneuver,
		completion: t.completion,
	}
	t.Disarm()
	return expired, true
}

type Expired struct {
	Maneuver   Maneuver
	completion Completion
}

// Fire invokes the completion of the expired maneuver, at most once.
func (e *Expired) Fire() bool {
	completion := e.completion
	e.completion = nil
	if completion == nil {
		return false
	}
	completion(e.Maneuver)
	return true
}
